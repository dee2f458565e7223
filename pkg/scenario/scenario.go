// Package scenario handles parsing and representation of gesture-runner
// YAML scenario files.
package scenario

// Scenario is a parsed scenario: an ordered list of steps run against one
// session.
type Scenario struct {
	SourcePath string // Path to the source file, or builtin:<name>
	Config     Config // Scenario header (name, tags, env)
	Steps      []Step // Steps to execute
}

// Config is the optional header document of a scenario file.
type Config struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Tags        []string          `yaml:"tags"`
	Env         map[string]string `yaml:"env"`
}

// Name returns the configured name, falling back to the source path.
func (s *Scenario) Name() string {
	if s.Config.Name != "" {
		return s.Config.Name
	}
	return s.SourcePath
}

// HasTag reports whether the scenario carries tag.
func (s *Scenario) HasTag(tag string) bool {
	for _, t := range s.Config.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
