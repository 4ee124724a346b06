package parser

import "fmt"

// ParseError reports a malformed line in a parsed file.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse-error: line %d: %s", e.Line, e.Reason)
}

// NonScalarLeafError reports that Flatten encountered a non-scalar leaf value.
type NonScalarLeafError struct {
	Path string
}

func (e *NonScalarLeafError) Error() string {
	return fmt.Sprintf("non-scalar-leaf: %s", e.Path)
}
