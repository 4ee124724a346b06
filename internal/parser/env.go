package parser

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

// keyPattern is the allowed key shape for env/properties entries.
var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)

// blankCommentPattern matches a comment line with no key=value payload
// (just "#" optionally followed by whitespace).
var blankCommentPattern = regexp.MustCompile(`^\s*#\s*$`)

// disabledPattern matches "# KEY = VALUE" — a disabled entry.
var disabledPattern = regexp.MustCompile(`^\s*#\s*([A-Za-z_][A-Za-z0-9_.\-]*)\s*=\s*(.*)$`)

// plainPattern matches "KEY = VALUE". It accepts any key token so that
// ParseEnv can reject a malformed key against keyPattern.
var plainPattern = regexp.MustCompile(`^\s*([^=#\s][^=\s]*)\s*=\s*(.*)$`)

// Classify inspects one raw line and reports (key, value, enabled, ok).
// ok is false when the line carries no key/value pair (blank line or a
// comment with no KEY=VALUE payload) and should be discarded.
func Classify(line string) (key, value string, enabled, ok bool) {
	trimmed := strings.TrimRight(line, "\r")
	if strings.TrimSpace(trimmed) == "" {
		return "", "", false, false
	}
	if blankCommentPattern.MatchString(trimmed) {
		return "", "", false, false
	}
	if m := disabledPattern.FindStringSubmatch(trimmed); m != nil {
		return m[1], unquote(strings.TrimSpace(m[2])), false, true
	}
	if m := plainPattern.FindStringSubmatch(trimmed); m != nil {
		return m[1], unquote(strings.TrimSpace(m[2])), true, true
	}
	return "", "", false, false
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// ParseEnv decodes a flat key=value file into a Bundle, applying Classify to
// each line and rejecting malformed keys with a parse-error.
func ParseEnv(data []byte) (*Bundle, error) {
	bundle := NewBundle()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		key, value, enabled, ok := Classify(line)
		if !ok {
			continue
		}
		if !keyPattern.MatchString(key) {
			return nil, &ParseError{Line: lineNo, Reason: "invalid key: " + key}
		}
		bundle.Set(key, Entry{Value: value, Enabled: enabled, Origin: FormatEnv})
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Line: lineNo, Reason: err.Error()}
	}
	return bundle, nil
}
