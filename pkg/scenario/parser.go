package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseError represents a parsing error with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ParseFile parses a single scenario file.
func ParseFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided scenario file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses scenario YAML. A file is either a step list, or a header
// document followed by "---" and the step list.
func Parse(data []byte, sourcePath string) (*Scenario, error) {
	sc := &Scenario{SourcePath: sourcePath}

	var docs []*yaml.Node
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	for {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ParseError{Path: sourcePath, Message: fmt.Sprintf("invalid YAML: %v", err)}
		}
		if len(doc.Content) > 0 {
			docs = append(docs, doc.Content[0])
		}
	}

	switch len(docs) {
	case 0:
		return nil, &ParseError{Path: sourcePath, Line: 1, Message: "empty scenario file"}
	case 1:
		if err := parseSteps(docs[0], sc); err != nil {
			return nil, err
		}
	case 2:
		if err := docs[0].Decode(&sc.Config); err != nil {
			return nil, wrapParseError(sourcePath, docs[0].Line, fmt.Errorf("invalid header: %w", err))
		}
		if err := parseSteps(docs[1], sc); err != nil {
			return nil, err
		}
	default:
		return nil, &ParseError{Path: sourcePath, Line: docs[2].Line, Message: "expected at most a header and a step list"}
	}

	if len(sc.Steps) == 0 {
		return nil, &ParseError{Path: sourcePath, Message: "scenario has no steps"}
	}
	return sc, nil
}

func parseSteps(node *yaml.Node, sc *Scenario) error {
	if node.Kind != yaml.SequenceNode {
		return &ParseError{Path: sc.SourcePath, Line: node.Line, Message: "steps must be a list"}
	}

	for _, n := range node.Content {
		step, err := parseStep(n, sc.SourcePath)
		if err != nil {
			return err
		}
		sc.Steps = append(sc.Steps, step)
	}
	return nil
}

func parseStep(node *yaml.Node, sourcePath string) (Step, error) {
	// Handle scalar nodes like "- waitForStable" (no colon, no params)
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

	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "step must be a single-key mapping or command name",
		}
	}

	key, value := node.Content[0], node.Content[1]
	if !isStepType(key.Value) {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    key.Line,
			Message: fmt.Sprintf("unknown step type: %s", key.Value),
		}
	}

	return decodeStep(StepType(key.Value), value, sourcePath)
}

func isStepType(key string) bool {
	switch StepType(key) {
	case StepTap, StepDrag, StepLongPress, StepScrollToEnd, StepRotate,
		StepWaitForDisplayed, StepWaitForStable,
		StepAssertText, StepAssertDisplayed, StepAssertTrue,
		StepCopyText:
		return true
	}
	return false
}

//nolint:gocyclo
func decodeStep(stepType StepType, valueNode *yaml.Node, sourcePath string) (Step, error) {
	var step Step

	switch stepType {
	case StepTap:
		var s TapStep
		if err := decodeTargeted(valueNode, &s, &s.Selector); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		step = &s

	case StepDrag:
		var s DragStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		step = &s

	case StepLongPress:
		var s LongPressStep
		if err := decodeTargeted(valueNode, &s, &s.Selector); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		if s.DurationMs == 0 {
			s.DurationMs = DefaultLongPressMs
		}
		step = &s

	case StepScrollToEnd:
		var s ScrollToEndStep
		if valueNode.Kind == yaml.ScalarNode {
			s.Direction = valueNode.Value
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		if s.Percent == 0 {
			s.Percent = 100
		}
		step = &s

	case StepRotate:
		var s RotateStep
		if valueNode.Kind == yaml.ScalarNode {
			switch strings.ToLower(valueNode.Value) {
			case "portrait":
			case "landscape":
				s.Z = 90
			default:
				return nil, &ParseError{Path: sourcePath, Line: valueNode.Line,
					Message: fmt.Sprintf("unknown orientation %q (use portrait, landscape or x/y/z)", valueNode.Value)}
			}
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		step = &s

	case StepWaitForDisplayed:
		var s WaitForDisplayedStep
		if err := decodeTargeted(valueNode, &s, &s.Selector); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		step = &s

	case StepWaitForStable:
		var s WaitForStableStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		step = &s

	case StepAssertText:
		var s AssertTextStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		step = &s

	case StepAssertDisplayed:
		var s AssertDisplayedStep
		if err := decodeTargeted(valueNode, &s, &s.Selector); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		step = &s

	case StepAssertTrue:
		var s AssertTrueStep
		if valueNode.Kind == yaml.ScalarNode {
			s.Condition = valueNode.Value
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		step = &s

	case StepCopyText:
		var s CopyTextStep
		if err := decodeTargeted(valueNode, &s, &s.Selector); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		step = &s

	default:
		return nil, &ParseError{Path: sourcePath, Line: valueNode.Line, Message: fmt.Sprintf("unknown step type: %s", stepType)}
	}

	setType(step, stepType)
	if err := step.Validate(); err != nil {
		return nil, wrapParseError(sourcePath, valueNode.Line, err)
	}
	return step, nil
}

// decodeTargeted decodes either the plain-string selector form or a mapping.
func decodeTargeted(node *yaml.Node, step interface{}, sel *Selector) error {
	if node.Kind == yaml.ScalarNode {
		*sel = ParseSelector(node.Value)
		return nil
	}
	return node.Decode(step)
}

func setType(step Step, t StepType) {
	if b, ok := step.(interface{ base() *BaseStep }); ok {
		b.base().StepType = t
	}
}

func wrapParseError(path string, line int, err error) error {
	return &ParseError{
		Path:    path,
		Line:    line,
		Message: err.Error(),
	}
}
