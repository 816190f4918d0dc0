// Package adapters provides keel.WebServer implementations for concrete
// HTTP engines: Echo, Gin, Fiber, and Chi.
package adapters

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// decodeJSONBody parses a JSON request body into a generic map. Non-JSON
// content types and empty bodies yield nil without error; the core treats
// the body facet as absent in that case.
func decodeJSONBody(contentType string, r io.Reader) (map[string]any, error) {
	if !strings.Contains(contentType, "application/json") || r == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decodeJSONBytes(data)
}

func decodeJSONBytes(data []byte) (map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
