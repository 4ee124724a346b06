package parser

import (
	"bufio"
	"bytes"
	"strings"
)

// ParseProperties decodes a Java-properties-shaped file (key=value, '#' line
// comments) into a Bundle. Properties bundles are routed to the config store
// and never merged with secret bundles (§4.2).
func ParseProperties(data []byte) (*Bundle, error) {
	bundle := NewBundle()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		idx := strings.Index(trimmed, "=")
		if idx < 0 {
			return nil, &ParseError{Line: lineNo, Reason: "missing '=' in properties entry"}
		}
		key := strings.TrimSpace(trimmed[:idx])
		value := strings.TrimSpace(trimmed[idx+1:])
		if !keyPattern.MatchString(key) {
			return nil, &ParseError{Line: lineNo, Reason: "invalid key: " + key}
		}
		bundle.Set(key, Entry{Value: value, Enabled: true, Origin: FormatProperties})
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Line: lineNo, Reason: err.Error()}
	}
	return bundle, nil
}
