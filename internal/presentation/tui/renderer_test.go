package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/wayfinder/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer(t *testing.T) {
	render, err := tui.NewRenderer(40)
	require.NoError(t, err)

	out, err := render("**Hello** there")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello")
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.False(t, strings.HasSuffix(out, "\n\n"))
}

func TestStyler_PlainWhenNotTTY(t *testing.T) {
	var buf bytes.Buffer
	s := tui.NewStyler(&buf)
	// A bytes.Buffer is not a terminal, so no escape sequences are added.
	assert.Equal(t, "bot:", s.Assistant("bot:"))
	assert.Equal(t, "you:", s.User("you:"))
	assert.Equal(t, "trace", s.Faint("trace"))
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|___/")
	assert.NotContains(t, buf.String(), "\x1b[")
}
