// Package tui holds terminal presentation helpers: banner, markdown
// rendering and speaker styling.
package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{` __        __          __ _           _`, "#818cf8"},
	{` \ \      / /_ _ _   _/ _(_)_ __   __| | ___ _ __`, "#a78bfa"},
	{`  \ \ /\ / / _` + "`" + ` | | | | |_| | '_ \ / _` + "`" + ` |/ _ \ '__|`, "#c084fc"},
	{`   \ V  V / (_| | |_| |  _| | | | | (_| |  __/ |`, "#e879f9"},
	{`    \_/\_/ \__,_|\__, |_| |_|_| |_|\__,_|\___|_|`, "#f472b6"},
	{`                 |___/`, "#fb7185"},
}

// PrintBanner writes the Wayfinder ASCII art banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
