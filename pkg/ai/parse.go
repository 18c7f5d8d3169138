package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const questionsSchemaURL = "mem://gema-grader/questions.schema.json"

const questionsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "status"],
        "properties": {
          "section": {"type": ["string", "number", "null"]},
          "id": {"type": ["string", "number"]},
          "status": {"type": "string"}
        }
      }
    }
  }
}`

var questionsValidator = jsonschema.MustCompileString(questionsSchemaURL, questionsSchema)

// ErrNoStructuredFragment indicates no JSON object could be located in a response.
var ErrNoStructuredFragment = errors.New("no structured fragment found")

// ParseQuestions decodes the structured extraction response. When the text is
// not a JSON document as a whole, the first balanced object inside it is tried.
// Blank text yields an empty list.
func ParseQuestions(text string) ([]QuestionEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []QuestionEntry{}, nil
	}

	document, err := decodeDocument(text)
	if err != nil {
		fragment, ok := FirstBalancedObject(text)
		if !ok {
			return nil, ErrNoStructuredFragment
		}
		document, err = decodeDocument(fragment)
		if err != nil {
			return nil, err
		}
	}

	if err := questionsValidator.Validate(document); err != nil {
		return nil, fmt.Errorf("structured response rejected by schema: %w", err)
	}

	return entriesFromDocument(document), nil
}

func decodeDocument(text string) (interface{}, error) {
	var document interface{}
	if err := json.Unmarshal([]byte(text), &document); err != nil {
		return nil, fmt.Errorf("decode structured response: %w", err)
	}
	return document, nil
}

func entriesFromDocument(document interface{}) []QuestionEntry {
	root, _ := document.(map[string]interface{})
	items, _ := root["questions"].([]interface{})

	entries := make([]QuestionEntry, 0, len(items))
	for _, item := range items {
		fields, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		entries = append(entries, QuestionEntry{
			Section: stringify(fields["section"]),
			ID:      stringify(fields["id"]),
			Status:  stringify(fields["status"]),
		})
	}
	return entries
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// FirstBalancedObject returns the first brace-balanced {...} fragment of text,
// ignoring braces inside JSON string literals.
func FirstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
