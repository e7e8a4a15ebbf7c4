package cue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names a transcript file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml, or yml (case-insensitive).
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported transcript format %q", value)
	}
}

// FormatFromPath infers the encoding from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// Encode renders t in format f.
func Encode(t Transcript, f Format) ([]byte, error) {
	switch f {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return nil, fmt.Errorf("encode transcript yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode transcript yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode transcript json: %w", err)
		}
		return append(data, '\n'), nil
	}
}

// Decode parses a transcript in format f and normalizes it. It does not
// validate.
func Decode(data []byte, f Format) (Transcript, error) {
	var t Transcript
	switch f {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &t); err != nil {
			return Transcript{}, fmt.Errorf("decode transcript yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &t); err != nil {
			return Transcript{}, fmt.Errorf("decode transcript json: %w", err)
		}
	}
	t.Normalize()
	return t, nil
}
