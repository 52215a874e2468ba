package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/qaflow/flyt"
	"gopkg.in/yaml.v3"
)

const (
	yamlFence  = "```yaml"
	plainFence = "```"
)

var (
	// ErrMalformedVerdict is returned when the verdict block is not a YAML mapping.
	ErrMalformedVerdict = errors.New("agent: malformed verdict")
	// ErrMissingIsCorrect is returned when the verdict has no is_correct key.
	ErrMissingIsCorrect = errors.New("agent: verdict missing is_correct field")
	// ErrIsCorrectNotBool is returned when is_correct is not a boolean.
	ErrIsCorrectNotBool = errors.New("agent: is_correct must be boolean")
	// ErrMissingReason is returned when the verdict has no reason key.
	ErrMissingReason = errors.New("agent: verdict missing reason field")
)

// Verdict is the validator model's judgement of an answer.
type Verdict struct {
	IsCorrect bool
	Reason    string
}

// ExtractBlock returns the verdict block from a model response: the body of
// a ```yaml fence, else the body of the first plain ``` fence, else the whole
// response.
func ExtractBlock(response string) string {
	if _, after, ok := strings.Cut(response, yamlFence); ok {
		block, _, _ := strings.Cut(after, plainFence)
		return strings.TrimSpace(block)
	}
	if parts := strings.SplitN(response, plainFence, 3); len(parts) > 1 {
		return strings.TrimSpace(dropLanguageTag(parts[1]))
	}
	return strings.TrimSpace(response)
}

// dropLanguageTag removes a fence info string such as "yml" from the first
// line of a fenced block.
func dropLanguageTag(block string) string {
	first, rest, ok := strings.Cut(block, "\n")
	if !ok {
		return block
	}
	tag := strings.TrimSpace(first)
	if tag != "" && !strings.ContainsAny(tag, ": \t") {
		return rest
	}
	return block
}

// ParseVerdict extracts and decodes the verdict block of a model response.
// Every malformed shape is reported as a failed Result; nothing is defaulted.
func ParseVerdict(response string) flyt.Result[Verdict] {
	block := ExtractBlock(response)

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return flyt.Fail[Verdict](fmt.Errorf("%w: %v", ErrMalformedVerdict, err))
	}
	fields, err := mappingFields(&doc)
	if err != nil {
		return flyt.Fail[Verdict](err)
	}

	raw, ok := fields["is_correct"]
	if !ok {
		return flyt.Fail[Verdict](ErrMissingIsCorrect)
	}
	isCorrect, err := boolScalar(raw)
	if err != nil {
		return flyt.Fail[Verdict](err)
	}

	reason, ok := fields["reason"]
	if !ok {
		return flyt.Fail[Verdict](ErrMissingReason)
	}
	var value any
	if err := reason.Decode(&value); err != nil {
		return flyt.Fail[Verdict](fmt.Errorf("%w: reason: %v", ErrMalformedVerdict, err))
	}

	return flyt.Ok(Verdict{IsCorrect: isCorrect, Reason: reasonText(value)})
}

// mappingFields indexes the top-level mapping of doc by key. An empty
// document has no fields.
func mappingFields(doc *yaml.Node) (map[string]*yaml.Node, error) {
	root := doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, nil
		}
		root = root.Content[0]
	}
	switch {
	case root.Kind == 0:
		return nil, nil
	case root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null":
		return nil, nil
	case root.Kind != yaml.MappingNode:
		return nil, fmt.Errorf("%w: want a mapping", ErrMalformedVerdict)
	}

	fields := make(map[string]*yaml.Node, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		value := root.Content[i+1]
		if value.Kind == yaml.AliasNode && value.Alias != nil {
			value = value.Alias
		}
		fields[root.Content[i].Value] = value
	}
	return fields, nil
}

// yaml11Bools are the plain scalars YAML 1.1 reads as booleans on top of
// true and false.
var yaml11Bools = map[string]bool{
	"yes": true, "y": true, "on": true,
	"no": false, "n": false, "off": false,
}

// boolScalar reads is_correct. Quoted scalars are strings and are rejected.
func boolScalar(node *yaml.Node) (bool, error) {
	if node.Kind == yaml.ScalarNode {
		switch node.ShortTag() {
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err == nil {
				return b, nil
			}
		case "!!str":
			if node.Style == 0 {
				if b, ok := yaml11Bools[strings.ToLower(node.Value)]; ok {
					return b, nil
				}
			}
			return false, fmt.Errorf("%w: got string %q", ErrIsCorrectNotBool, node.Value)
		}
		return false, fmt.Errorf("%w: got %s", ErrIsCorrectNotBool, node.ShortTag())
	}
	return false, fmt.Errorf("%w: got a non-scalar value", ErrIsCorrectNotBool)
}

func reasonText(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	default:
		return fmt.Sprint(r)
	}
}
