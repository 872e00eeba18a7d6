package flow

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/baseline-runner/pkg/checkpoint"
	"github.com/devicelab-dev/baseline-runner/pkg/locator"
)

// ParseError represents a parsing error with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Unwrap returns the validation error behind the parse error, if any.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseFile parses a single YAML flow file.
func ParseFile(path string) (*Flow, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided flow file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses YAML flow content: an optional config document followed by
// a list of steps.
func Parse(data []byte, sourcePath string) (*Flow, error) {
	parts := splitYAMLDocuments(string(data))

	flow := &Flow{
		SourcePath: sourcePath,
	}

	if len(parts) == 0 {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    1,
			Message: "empty flow file",
		}
	}

	if len(parts) == 1 {
		if err := parseSteps(parts[0], flow); err != nil {
			return nil, err
		}
	} else {
		if err := yaml.Unmarshal([]byte(parts[0]), &flow.Config); err != nil {
			return nil, &ParseError{
				Path:    sourcePath,
				Message: fmt.Sprintf("invalid config: %v", err),
			}
		}
		if err := parseSteps(parts[1], flow); err != nil {
			return nil, err
		}
	}

	return flow, nil
}

func splitYAMLDocuments(content string) []string {
	var parts []string
	var current strings.Builder

	for _, line := range strings.Split(content, "\n") {
		if strings.TrimRight(line, " \t\r") == "---" {
			if strings.TrimSpace(current.String()) != "" {
				parts = append(parts, current.String())
			}
			current.Reset()
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}

	if strings.TrimSpace(current.String()) != "" {
		parts = append(parts, current.String())
	}
	return parts
}

func parseSteps(content string, flow *Flow) error {
	var rawSteps []yaml.Node
	if err := yaml.Unmarshal([]byte(content), &rawSteps); err != nil {
		return &ParseError{
			Path:    flow.SourcePath,
			Message: fmt.Sprintf("invalid steps: %v", err),
		}
	}

	for _, node := range rawSteps {
		step, err := parseStep(&node, flow.SourcePath)
		if err != nil {
			return err
		}
		flow.Steps = append(flow.Steps, step)
	}

	return nil
}

func parseStep(node *yaml.Node, sourcePath string) (Step, error) {
	// Handle scalar nodes like "- waitForAnimationToEnd" (no colon, no params)
	if node.Kind == yaml.ScalarNode {
		stepType := node.Value
		if !isStepType(stepType) {
			return nil, &ParseError{
				Path:    sourcePath,
				Line:    node.Line,
				Message: fmt.Sprintf("unknown step type: %s", stepType),
			}
		}
		emptyNode := &yaml.Node{Kind: yaml.MappingNode, Line: node.Line}
		return decodeStep(StepType(stepType), emptyNode, sourcePath)
	}

	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "step must be a mapping or command name",
		}
	}

	if len(node.Content) != 2 {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "step must have exactly one command",
		}
	}
	stepType := node.Content[0].Value
	if !isStepType(stepType) {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: fmt.Sprintf("unknown step type: %s", stepType),
		}
	}

	return decodeStep(StepType(stepType), node.Content[1], sourcePath)
}

func isStepType(key string) bool {
	switch StepType(key) {
	case StepTapOn, StepTapOnRandom, StepSwipe, StepTapCell, StepTapRandomCell,
		StepInputText, StepAssertVisible, StepAssertNotVisible,
		StepWaitForCheckpoint, StepWaitForAnimationToEnd, StepWait,
		StepAcknowledgeSystemAlert:
		return true
	}
	return false
}

//nolint:gocyclo
func decodeStep(stepType StepType, valueNode *yaml.Node, sourcePath string) (Step, error) {
	switch stepType {
	case StepTapOn:
		var s TapOnStep
		if valueNode.Kind == yaml.ScalarNode {
			s.Selector.Label = valueNode.Value
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return withSelector(&s, s.Selector, sourcePath, valueNode)

	case StepTapOnRandom:
		var s TapOnRandomStep
		if valueNode.Kind == yaml.SequenceNode {
			if err := valueNode.Decode(&s.Options); err != nil {
				return nil, wrapParseError(sourcePath, valueNode.Line, err)
			}
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		if len(s.Options) == 0 {
			return nil, &ParseError{Path: sourcePath, Line: valueNode.Line, Message: "tapOnRandom needs at least one option"}
		}
		for _, o := range s.Options {
			if err := checkSelector(sourcePath, valueNode, o); err != nil {
				return nil, err
			}
		}
		s.StepType = stepType
		return &s, nil

	case StepSwipe:
		var s SwipeStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		if _, err := locator.ParseDirection(s.Direction); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return withSelector(&s, s.Selector, sourcePath, valueNode)

	case StepTapCell:
		var s TapCellStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		if err := (locator.IndexPath{Section: s.Section, Item: s.Item}).Validate(); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return withSelector(&s, s.Selector, sourcePath, valueNode)

	case StepTapRandomCell:
		var s TapRandomCellStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		if err := (locator.IndexPath{Section: s.Section}).Validate(); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return withSelector(&s, s.Selector, sourcePath, valueNode)

	case StepInputText:
		var s InputTextStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return withSelector(&s, s.Selector, sourcePath, valueNode)

	case StepAssertVisible:
		var s AssertVisibleStep
		if valueNode.Kind == yaml.ScalarNode {
			s.Selector.Label = valueNode.Value
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return withSelector(&s, s.Selector, sourcePath, valueNode)

	case StepAssertNotVisible:
		var s AssertNotVisibleStep
		if valueNode.Kind == yaml.ScalarNode {
			s.Selector.Label = valueNode.Value
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return withSelector(&s, s.Selector, sourcePath, valueNode)

	case StepWaitForCheckpoint:
		return parseWaitForCheckpointStep(valueNode, sourcePath)

	case StepWait:
		var s WaitStep
		if valueNode.Kind == yaml.ScalarNode {
			if err := valueNode.Decode(&s.Ms); err != nil {
				return nil, wrapParseError(sourcePath, valueNode.Line, err)
			}
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		if s.Ms < 0 {
			return nil, &ParseError{Path: sourcePath, Line: valueNode.Line, Message: "wait must not be negative"}
		}
		s.StepType = stepType
		return &s, nil

	case StepWaitForAnimationToEnd:
		var s WaitForAnimationToEndStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case StepAcknowledgeSystemAlert:
		var s AcknowledgeSystemAlertStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil
	}

	return nil, &ParseError{
		Path:    sourcePath,
		Line:    valueNode.Line,
		Message: fmt.Sprintf("unknown step type: %s", stepType),
	}
}

// parseWaitForCheckpointStep handles a checkpoint wait with an optional
// nested step, run either after the checkpoint (then) or to cause it (while).
func parseWaitForCheckpointStep(valueNode *yaml.Node, sourcePath string) (Step, error) {
	s := &WaitForCheckpointStep{BaseStep: BaseStep{StepType: StepWaitForCheckpoint}}

	if valueNode.Kind == yaml.ScalarNode {
		s.Name = valueNode.Value
	} else {
		var raw struct {
			Name     string    `yaml:"name"`
			Then     yaml.Node `yaml:"then"`
			While    yaml.Node `yaml:"while"`
			Optional bool      `yaml:"optional"`
		}
		if err := valueNode.Decode(&raw); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.Name = raw.Name
		s.Optional = raw.Optional
		if raw.Then.Kind != 0 && raw.While.Kind != 0 {
			return nil, &ParseError{
				Path:    sourcePath,
				Line:    valueNode.Line,
				Message: "waitForCheckpoint takes either then or while, not both",
			}
		}
		if raw.While.Kind != 0 {
			while, err := parseStep(&raw.While, sourcePath)
			if err != nil {
				return nil, err
			}
			s.While = while
		}
		if raw.Then.Kind != 0 {
			then, err := parseStep(&raw.Then, sourcePath)
			if err != nil {
				return nil, err
			}
			s.Then = then
		}
	}

	if _, err := checkpoint.Parse(s.Name); err != nil {
		return nil, wrapParseError(sourcePath, valueNode.Line, err)
	}
	return s, nil
}

func checkSelector(sourcePath string, node *yaml.Node, sel Selector) error {
	if _, err := sel.Key(); err != nil {
		return wrapParseError(sourcePath, node.Line, err)
	}
	return nil
}

func withSelector(step Step, sel Selector, sourcePath string, node *yaml.Node) (Step, error) {
	if err := checkSelector(sourcePath, node, sel); err != nil {
		return nil, err
	}
	return step, nil
}

func wrapParseError(path string, line int, err error) error {
	return &ParseError{
		Path:    path,
		Line:    line,
		Message: err.Error(),
		Err:     err,
	}
}
