package delivery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteTextFile writes content under jobDir/name, enforcing a trailing
// newline, and returns the absolute path written. The write is atomic: it
// writes to a sibling temp file and renames over the destination, so a
// concurrent reader (or a crash mid-write) never observes a partial file.
func WriteTextFile(jobDir, name, content string) (string, error) {
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return atomicWrite(jobDir, name, []byte(content))
}

// WriteJSONFile pretty-prints obj and writes it under jobDir/name,
// returning the absolute path written.
func WriteJSONFile(jobDir, name string, obj any) (string, error) {
	b, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", name, err)
	}
	b = append(b, '\n')
	return atomicWrite(jobDir, name, b)
}

func atomicWrite(jobDir, name string, data []byte) (string, error) {
	path := filepath.Join(jobDir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("finalize %s: %w", name, err)
	}
	return path, nil
}

// MissingRequiredFields returns the subset of keys whose value in req is
// absent, nil, or a whitespace-only string.
func MissingRequiredFields(req map[string]any, keys []string) []string {
	var missing []string
	for _, k := range keys {
		v, ok := req[k]
		if !ok || v == nil {
			missing = append(missing, k)
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			missing = append(missing, k)
		}
	}
	return missing
}
