// Package step models the Bitrise step descriptor (step.yml): metadata,
// declared inputs with their required/sensitive flags, and validation of
// resolved input values against the declaration.
package step

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	steperrors "github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/errors"
)

// Manifest is the step.yml document.
type Manifest struct {
	Title           string   `yaml:"title"`
	Summary         string   `yaml:"summary"`
	Description     string   `yaml:"description,omitempty"`
	Website         string   `yaml:"website,omitempty"`
	SourceCodeURL   string   `yaml:"source_code_url,omitempty"`
	SupportURL      string   `yaml:"support_url,omitempty"`
	ProjectTypeTags []string `yaml:"project_type_tags,omitempty"`
	TypeTags        []string `yaml:"type_tags,omitempty"`
	HostOSTags      []string `yaml:"host_os_tags,omitempty"`
	IsAlwaysRun     bool     `yaml:"is_always_run"`
	IsSkippable     bool     `yaml:"is_skippable"`
	Inputs          []Input  `yaml:"inputs"`
}

// Input is one declared step input: its id, default value, and options.
//
// In step.yml each input is a single-key mapping (the id and its default)
// plus an opts mapping, so decoding needs a custom unmarshaler.
type Input struct {
	ID      string
	Default string
	Opts    InputOpts
}

// InputOpts are the declarative flags attached to an input.
type InputOpts struct {
	Title        string   `yaml:"title"`
	Summary      string   `yaml:"summary,omitempty"`
	Description  string   `yaml:"description,omitempty"`
	IsRequired   bool     `yaml:"is_required"`
	IsSensitive  bool     `yaml:"is_sensitive"`
	IsExpand     bool     `yaml:"is_expand"`
	ValueOptions []string `yaml:"value_options,omitempty"`
}

// UnmarshalYAML decodes the `{<id>: <default>, opts: {...}}` input shape.
func (i *Input) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("step input must be a mapping")
	}

	for idx := 0; idx+1 < len(node.Content); idx += 2 {
		keyNode := node.Content[idx]
		valueNode := node.Content[idx+1]

		if keyNode.Value == "opts" {
			if err := valueNode.Decode(&i.Opts); err != nil {
				return fmt.Errorf("invalid opts for input '%s': %w", i.ID, err)
			}
			continue
		}

		if i.ID != "" {
			return fmt.Errorf("step input declares multiple ids: '%s' and '%s'", i.ID, keyNode.Value)
		}
		i.ID = keyNode.Value
		if err := valueNode.Decode(&i.Default); err != nil {
			// Non-scalar defaults are kept empty; the env override still applies.
			i.Default = ""
		}
	}

	if i.ID == "" {
		return fmt.Errorf("step input has no id")
	}
	return nil
}

// MarshalYAML renders the input back into the step.yml shape.
func (i Input) MarshalYAML() (interface{}, error) {
	return map[string]interface{}{
		i.ID:   i.Default,
		"opts": i.Opts,
	}, nil
}

// Load reads and parses a step.yml manifest.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, steperrors.ConfigError{
				Field:      "step.yml",
				Value:      path,
				Message:    "step manifest not found",
				Suggestion: "Run the command from the step directory, or pass --manifest",
			}
		}
		return nil, fmt.Errorf("failed to read step manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, steperrors.ConfigError{
			Field:      "step.yml",
			Message:    "invalid YAML in step manifest",
			Suggestion: "Check for indentation errors or stray characters",
		}
	}

	if len(manifest.Inputs) == 0 {
		return nil, steperrors.ConfigError{
			Field:      "inputs",
			Message:    "step manifest declares no inputs",
			Suggestion: "Declare the step inputs under the 'inputs' key",
		}
	}

	return &manifest, nil
}

// Input returns the declared input with the given id.
func (m *Manifest) Input(id string) (*Input, bool) {
	for idx := range m.Inputs {
		if m.Inputs[idx].ID == id {
			return &m.Inputs[idx], true
		}
	}
	return nil, false
}

// SensitiveInputIDs returns the ids of all inputs marked is_sensitive.
// Their values must never reach the build log.
func (m *Manifest) SensitiveInputIDs() []string {
	var ids []string
	for _, input := range m.Inputs {
		if input.Opts.IsSensitive {
			ids = append(ids, input.ID)
		}
	}
	return ids
}

// ValidateValues checks resolved input values against the declaration:
// required inputs must be present, and inputs with value_options must use
// one of the declared options.
func (m *Manifest) ValidateValues(values map[string]string) error {
	for _, input := range m.Inputs {
		value, ok := values[input.ID]
		if value == "" {
			value = input.Default
		}

		if input.Opts.IsRequired && value == "" {
			return steperrors.InputError{
				Input:      input.ID,
				Message:    "required input is missing",
				Suggestion: fmt.Sprintf("Set the '%s' input in the workflow editor", input.ID),
			}
		}

		if ok && value != "" && len(input.Opts.ValueOptions) > 0 {
			if !contains(input.Opts.ValueOptions, value) {
				return steperrors.InputError{
					Input:      input.ID,
					Value:      value,
					Message:    "value is not one of the declared options",
					Suggestion: fmt.Sprintf("Use one of: %v", input.Opts.ValueOptions),
				}
			}
		}
	}
	return nil
}

func contains(haystack []string, needle string) bool {
	for _, item := range haystack {
		if item == needle {
			return true
		}
	}
	return false
}
