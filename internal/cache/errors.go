package cache

import "fmt"

// CorruptArtifactError marks an artifact that failed verification or
// extraction: wrong size, wrong checksum, bad gzip magic, unparseable tar,
// a path-traversal attempt, or an empty extraction result.
type CorruptArtifactError struct {
	Reason string
}

func (e *CorruptArtifactError) Error() string {
	return fmt.Sprintf("corrupt-artifact: %s", e.Reason)
}
