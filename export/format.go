package export

import "strings"

// NormalizeFormat coerces format values into known aliases with defaults applied.
func NormalizeFormat(format Format) Format {
	normalized := strings.ToLower(strings.TrimSpace(string(format)))
	normalized = strings.TrimPrefix(normalized, ".")
	switch normalized {
	case "", string(FormatSVG):
		return FormatSVG
	default:
		return Format(normalized)
	}
}

// Supported reports whether the renderer can produce format.
func (f Format) Supported() bool {
	switch f {
	case FormatSVG, FormatDXF:
		return true
	default:
		return false
	}
}

// Extension returns the file extension for format, without the dot.
func (f Format) Extension() string {
	return string(NormalizeFormat(f))
}
