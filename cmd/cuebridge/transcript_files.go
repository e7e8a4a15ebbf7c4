package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuebridge/internal/cue"
)

// readTranscriptFile decodes path by extension. Validation is left to the
// caller.
func readTranscriptFile(path string) (cue.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Transcript{}, fmt.Errorf("read %s: %w", path, err)
	}
	t, err := cue.Decode(data, cue.FormatFromPath(path))
	if err != nil {
		return cue.Transcript{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// writeTranscriptOutput encodes t and writes it to output. An empty output
// writes the export file name into the working directory, a directory gets
// the export file name inside it, and "-" writes to stdout. It returns the
// path written, or "-".
func writeTranscriptOutput(stdout io.Writer, t cue.Transcript, output, format string) (string, error) {
	output = strings.TrimSpace(output)
	f, err := cue.ParseFormat(format)
	if err != nil {
		return "", err
	}
	if format == "" && output != "" && output != "-" {
		f = cue.FormatFromPath(output)
	}
	data, err := cue.Encode(t, f)
	if err != nil {
		return "", err
	}
	if output == "-" {
		_, err := stdout.Write(data)
		return "-", err
	}

	name := cue.ExportFilename(t.Metadata, f.Ext())
	switch {
	case output == "":
		output = name
	default:
		if info, err := os.Stat(output); err == nil && info.IsDir() {
			output = filepath.Join(output, name)
		}
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", output, err)
	}
	return output, nil
}
