// Package shape declares the output structure an AI response must conform to
// and validates raw model output against it.
package shape

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	dErrors "cortex/pkg/domain-errors"
)

// FieldType enumerates the JSON types a declared field may take.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Field describes one declared field of the expected output object.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// Shape is the declared structure of a structured task result.
// Immutable once constructed.
type Shape struct {
	Fields []Field `json:"fields"`
}

// Validate checks that the shape descriptor itself is well formed.
func (s Shape) Validate() error {
	if len(s.Fields) == 0 {
		return dErrors.New(dErrors.CodeInvalidPrompt, "output shape must declare at least one field")
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return dErrors.New(dErrors.CodeInvalidPrompt, "output shape field name cannot be empty")
		}
		if _, dup := seen[f.Name]; dup {
			return dErrors.New(dErrors.CodeInvalidPrompt, "output shape declares duplicate field "+f.Name)
		}
		seen[f.Name] = struct{}{}
		switch f.Type {
		case TypeString, TypeNumber, TypeBoolean, TypeArray, TypeObject:
		default:
			return dErrors.New(dErrors.CodeInvalidPrompt, fmt.Sprintf("output shape field %s has unknown type %q", f.Name, f.Type))
		}
	}
	return nil
}

// Check validates raw JSON against the shape and returns the decoded object.
// A mismatch is terminal for the calling adapter; it is never worth retrying.
func (s Shape) Check(raw []byte) (map[string]any, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("response is not a JSON object")
	}

	for _, f := range s.Fields {
		v := parsed.Get(escapePath(f.Name))
		if !v.Exists() {
			if f.Required {
				return nil, fmt.Errorf("missing required field %q", f.Name)
			}
			continue
		}
		if !typeMatches(f.Type, v) {
			return nil, fmt.Errorf("field %q is not of type %s", f.Name, f.Type)
		}
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response object: %w", err)
	}
	return out, nil
}

// Instructions renders the shape as a prompt fragment instructing the model
// to answer with a single conforming JSON object.
func (s Shape) Instructions() string {
	var b strings.Builder
	b.WriteString("Respond with a single JSON object and nothing else. The object must have these fields:\n")
	for _, f := range s.Fields {
		b.WriteString("- ")
		b.WriteString(f.Name)
		b.WriteString(" (")
		b.WriteString(string(f.Type))
		if f.Required {
			b.WriteString(", required")
		} else {
			b.WriteString(", optional")
		}
		b.WriteString(")\n")
	}
	return b.String()
}

func typeMatches(t FieldType, v gjson.Result) bool {
	switch t {
	case TypeString:
		return v.Type == gjson.String
	case TypeNumber:
		return v.Type == gjson.Number
	case TypeBoolean:
		return v.Type == gjson.True || v.Type == gjson.False
	case TypeArray:
		return v.IsArray()
	case TypeObject:
		return v.IsObject()
	}
	return false
}

// escapePath protects literal dots in field names from gjson path syntax.
func escapePath(name string) string {
	return strings.ReplaceAll(name, ".", `\.`)
}
