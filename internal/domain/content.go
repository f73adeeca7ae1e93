package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Content is the payload of an event. Producers write either a structured
// object or a plain string; both forms round-trip through the log unchanged.
// Unknown or missing fields degrade at render time instead of failing a run.
type Content struct {
	fields map[string]any
	text   string
	object bool
}

func TextContent(text string) Content {
	return Content{text: text}
}

func ObjectContent(fields map[string]any) Content {
	if fields == nil {
		fields = map[string]any{}
	}

	return Content{fields: fields, object: true}
}

// ParseContent validates raw producer input. A JSON object becomes structured
// content and a JSON string becomes plain text; anything else is rejected
// with ErrInvalidContent.
func ParseContent(raw string) (Content, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err == nil {
		return ObjectContent(fields), nil
	}

	var text string
	if err := json.Unmarshal([]byte(raw), &text); err == nil {
		return TextContent(text), nil
	}

	return Content{}, fmt.Errorf("%w: %q", ErrInvalidContent, raw)
}

func (c Content) IsObject() bool {
	return c.object
}

func (c Content) Text() string {
	return c.text
}

// Field returns the named field as a display string. Missing fields report
// ok=false so renderers can substitute a placeholder.
func (c Content) Field(name string) (string, bool) {
	if !c.object {
		return "", false
	}

	value, ok := c.fields[name]
	if !ok || value == nil {
		return "", false
	}

	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v)), true
		}
		return fmt.Sprintf("%g", v), true
	case bool:
		return fmt.Sprintf("%t", v), true
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v), true
		}
		return string(encoded), true
	}
}

// FieldOr returns the named field or the given placeholder when absent.
func (c Content) FieldOr(name, placeholder string) string {
	if value, ok := c.Field(name); ok {
		return value
	}

	return placeholder
}

// Keys returns the object field names in sorted order. Empty for text content.
func (c Content) Keys() []string {
	if !c.object {
		return nil
	}

	keys := make([]string, 0, len(c.fields))
	for key := range c.fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

// String renders the content for terse displays: plain text as-is, objects as
// compact JSON.
func (c Content) String() string {
	if !c.object {
		return c.text
	}

	encoded, err := json.Marshal(c.fields)
	if err != nil {
		return fmt.Sprintf("%v", c.fields)
	}

	return string(encoded)
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.object {
		return json.Marshal(c.fields)
	}

	return json.Marshal(c.text)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err == nil {
		*c = ObjectContent(fields)
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*c = TextContent(text)
		return nil
	}

	return fmt.Errorf("%w: %s", ErrInvalidContent, string(data))
}
