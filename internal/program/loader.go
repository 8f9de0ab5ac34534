package program

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrProgramNotFound is returned when the programs file has no section for the requested name.
var ErrProgramNotFound = errors.New("program not found")

// Loader handles loading and parsing of the programs file
type Loader struct {
	filePath string
}

// NewLoader creates a new programs file loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads the programs file and returns the program called name.
func (l *Loader) Load(name string) (*Program, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read programs file: %w", err)
	}
	return Parse(data, name)
}

// Parse decodes a programs document and extracts the program called name.
//
// The document is a mapping of program names to parameter trees. Nested
// mappings are flattened into dotted keys and scalars keep their literal text:
//
//	BASILIC:
//	  light:
//	    red: 70
//	  water.flow.on: 5
//
// yields light.red=70 and water.flow.on=5.
func Parse(data []byte, name string) (*Program, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse programs yaml: %w", err)
	}

	node, ok := doc[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProgramNotFound, name)
	}

	params := make(map[string]string)
	if err := flatten("", &node, params); err != nil {
		return nil, fmt.Errorf("program %s: %w", name, err)
	}

	return New(name, params), nil
}

func flatten(prefix string, n *yaml.Node, out map[string]string) error {
	switch n.Kind {
	case yaml.AliasNode:
		return flatten(prefix, n.Alias, out)
	case yaml.ScalarNode:
		if prefix == "" {
			return fmt.Errorf("expected a mapping of parameters, got scalar %q", n.Value)
		}
		if n.Tag == "!!null" {
			return nil
		}
		out[prefix] = n.Value
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if prefix != "" {
				key = prefix + "." + key
			}
			if err := flatten(key, n.Content[i+1], out); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported value for %q at line %d", prefix, n.Line)
	}
}
