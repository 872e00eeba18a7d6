package flow

import (
	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/baseline-runner/pkg/locator"
)

// Selector names an element by accessibility identifier or label.
// Exactly one of the two must be set.
type Selector struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

// UnmarshalYAML accepts a bare string as a label.
func (s *Selector) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Label = node.Value
		return nil
	}
	var raw struct {
		ID    string `yaml:"id"`
		Label string `yaml:"label"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	s.ID, s.Label = raw.ID, raw.Label
	return nil
}

// Key converts the selector into a locator key.
func (s Selector) Key() (locator.Key, error) {
	return locator.ParseKey(s.ID, s.Label)
}

// IsEmpty returns true if no selector properties are set.
func (s Selector) IsEmpty() bool {
	return s.ID == "" && s.Label == ""
}

// Describe returns a quoted description like label="value" or id="value".
func (s Selector) Describe() string {
	k, err := s.Key()
	if err != nil {
		return "<invalid selector>"
	}
	return k.String()
}
