// Package flow parses and runs YAML flows of UI steps, such as the onboarding
// flow baseline recovery fast-forwards through.
package flow

// Flow represents a parsed flow file.
type Flow struct {
	SourcePath string // Path to the source file
	Config     Config // Flow configuration (name, tags)
	Steps      []Step // Steps to execute
}

// Config represents flow-level configuration.
type Config struct {
	Name string   `yaml:"name"`
	Tags []string `yaml:"tags"`
}
