package tools

import "encoding/json"

// Serializer converts a tool result into its text payload.
type Serializer interface {
	Marshal(v any) (string, error)
}

// JSONSerializer renders values as compact JSON.
type JSONSerializer struct{}

// NewJSONSerializer returns the serializer used for tool payloads.
func NewJSONSerializer() JSONSerializer {
	return JSONSerializer{}
}

// Marshal implements Serializer.
func (JSONSerializer) Marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
