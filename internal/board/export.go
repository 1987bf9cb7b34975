package board

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mschirtzinger/flowboard/internal/schema"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Encode renders doc in the given format. JSON output is indented and is
// byte-compatible with what the local cache stores.
func Encode(doc *schema.Document, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		return doc.Encode()
	case FormatYAML, "yml":
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal yaml: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown export format %q (must be json or yaml)", format)
	}
}

// ExportFileName returns project_backup_YYYY-MM-DD.<ext> for the local date
// of now.
func ExportFileName(now time.Time, format string) string {
	ext := FormatJSON
	if f := strings.ToLower(format); f == FormatYAML || f == "yml" {
		ext = FormatYAML
	}
	return fmt.Sprintf("project_backup_%s.%s", now.Local().Format(schema.DateLayout), ext)
}

// Export writes a point-in-time copy of the board into dir and returns the
// file path.
func (b *Board) Export(dir, format string, now time.Time) (string, error) {
	data, err := Encode(b.Snapshot(), format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, ExportFileName(now, format))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export %s: %w", path, err)
	}
	return path, nil
}
