package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.GraphLoader over a task graph file.
//
// Supported extensions are .json, .yaml and .yml. Nodes may be written as
// [id, {attrs}] pairs and edges as [source, target, {attrs}] triples, or
// both as plain objects.
type Loader struct {
	Path string
}

// NewLoader creates a Loader reading the file at path.
func NewLoader(path string) *Loader {
	return &Loader{Path: path}
}

type rawDefinition struct {
	Name          string             `mapstructure:"name"`
	Nodes         []any              `mapstructure:"nodes"`
	Edges         []any              `mapstructure:"edges"`
	ServicesNodes map[string]string  `mapstructure:"services_nodes"`
	Model         domain.ModelConfig `mapstructure:"model"`
}

// Load reads and decodes the task graph file. Structural validation is left
// to the engine.
func (l *Loader) Load(ctx context.Context) (*domain.Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task graph: %w", err)
	}
	def, err := Parse(data, filepath.Ext(l.Path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Path, err)
	}
	return def, nil
}

// Parse decodes a task graph document. ext selects the syntax (".json",
// ".yaml" or ".yml").
func Parse(data []byte, ext string) (*domain.Definition, error) {
	var doc map[string]any
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported task graph format %q", ext)
	}

	var raw rawDefinition
	if err := decode(doc, &raw); err != nil {
		return nil, err
	}

	def := &domain.Definition{
		Name:          raw.Name,
		Nodes:         make([]domain.Node, 0, len(raw.Nodes)),
		Edges:         make([]domain.Edge, 0, len(raw.Edges)),
		ServicesNodes: raw.ServicesNodes,
		Model:         raw.Model,
	}
	for i, item := range raw.Nodes {
		n, err := parseNode(item)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		def.Nodes = append(def.Nodes, n)
	}
	for i, item := range raw.Edges {
		e, err := parseEdge(item)
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		def.Edges = append(def.Edges, e)
	}
	return def, nil
}

func parseNode(item any) (domain.Node, error) {
	var n domain.Node
	switch v := item.(type) {
	case []any:
		if len(v) != 2 {
			return n, fmt.Errorf("expected [id, attrs], got %d elements", len(v))
		}
		if err := decode(v[1], &n); err != nil {
			return n, err
		}
		n.ID = fmt.Sprint(v[0])
	case map[string]any:
		if err := decode(v, &n); err != nil {
			return n, err
		}
	default:
		return n, fmt.Errorf("unexpected node form %T", item)
	}
	return n, nil
}

func parseEdge(item any) (domain.Edge, error) {
	var e domain.Edge
	switch v := item.(type) {
	case []any:
		if len(v) != 3 {
			return e, fmt.Errorf("expected [source, target, attrs], got %d elements", len(v))
		}
		if err := decode(v[2], &e); err != nil {
			return e, err
		}
		e.Source = fmt.Sprint(v[0])
		e.Target = fmt.Sprint(v[1])
	case map[string]any:
		if err := decode(v, &e); err != nil {
			return e, err
		}
	default:
		return e, fmt.Errorf("unexpected edge form %T", item)
	}
	return e, nil
}

func decode(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}
	return nil
}
