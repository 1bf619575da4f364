package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
)

func renderFilename(pattern, prefix string, mode Mode, format Format, stem string, now time.Time) (string, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultFilenamePattern
	}

	// File names are not HTML; render values verbatim.
	tmpl, err := pongo2.FromString("{% autoescape off %}" + pattern + "{% endautoescape %}")
	if err != nil {
		return "", err
	}

	result, err := tmpl.Execute(pongo2.Context{
		"prefix": prefix,
		"mode":   string(mode),
		"format": string(format),
		"stem":   stem,
		"date":   now.UTC().Format("20060102"),
	})
	if err != nil {
		return "", err
	}

	result = strings.TrimSpace(result)
	if result == "" {
		return "", fmt.Errorf("empty filename")
	}
	if strings.ContainsAny(result, `/\`) {
		return "", fmt.Errorf("filename %q contains a path separator", result)
	}

	ext := format.Extension()
	if !strings.HasSuffix(strings.ToLower(result), "."+ext) {
		result = result + "." + ext
	}
	return result, nil
}

// templateStem returns the template file name without directory or extension.
func templateStem(templatePath string) string {
	base := filepath.Base(templatePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
