// Package overlay runs an external overlay tool against an overlay directory
// and extracts Secret documents from its rendered output.
package overlay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	apimachineryyaml "k8s.io/apimachinery/pkg/util/yaml"
)

const (
	// DefaultTimeout bounds one overlay-tool invocation.
	DefaultTimeout = 60 * time.Second
	// DefaultMaxOutputSize bounds captured stdout.
	DefaultMaxOutputSize = 64 * 1024 * 1024
	// stderrExcerptSize is how much stderr is retained on failure (§9).
	stderrExcerptSize = 8 * 1024
)

// Builder runs the configured overlay tool.
type Builder struct {
	// Command is the tool binary name (e.g. "kustomize").
	Command string
	// Timeout bounds the subprocess; zero uses DefaultTimeout.
	Timeout time.Duration
	// MaxOutputSize bounds captured stdout; zero uses DefaultMaxOutputSize.
	MaxOutputSize int64
}

// New returns a Builder for the named tool with default bounds.
func New(command string) *Builder {
	return &Builder{Command: command, Timeout: DefaultTimeout, MaxOutputSize: DefaultMaxOutputSize}
}

// BuildError reports a non-zero exit or unparseable overlay-tool output.
type BuildError struct {
	StderrExcerpt string
	Cause         error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("overlay-build-error: %s: %v", e.StderrExcerpt, e.Cause)
}

func (e *BuildError) Unwrap() error { return e.Cause }

// Secret is one extracted Secret document's data mapping (already decoded:
// base64 `data` and literal `stringData` are merged into one map of raw bytes).
type Secret struct {
	Name string
	Data map[string][]byte
}

// Build invokes the overlay tool with overlayDir as its argument, reads the
// rendered document stream from stdout, and returns every document of
// kind=="Secret" with its data extracted.
func (b *Builder) Build(ctx context.Context, overlayDir string) ([]Secret, error) {
	timeout := b.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	maxSize := b.MaxOutputSize
	if maxSize == 0 {
		maxSize = DefaultMaxOutputSize
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.Command, "build", overlayDir)
	cmd.Stdin = nil

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, max: maxSize}
	cmd.Stderr = &limitedWriter{w: &stderr, max: stderrExcerptSize}

	runErr := cmd.Run()
	if runErr != nil {
		return nil, &BuildError{StderrExcerpt: stderr.String(), Cause: runErr}
	}

	secrets, err := extractSecrets(stdout.Bytes())
	if err != nil {
		return nil, &BuildError{StderrExcerpt: stderr.String(), Cause: err}
	}
	return secrets, nil
}

// limitedWriter discards bytes beyond max rather than failing the write,
// matching "maximum output size" as a cap rather than a hard error.
type limitedWriter struct {
	w      io.Writer
	max    int64
	n      int64
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.n >= l.max {
		return len(p), nil
	}
	remaining := l.max - l.n
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	written, err := l.w.Write(p)
	l.n += int64(written)
	return len(p), err
}

func extractSecrets(stream []byte) ([]Secret, error) {
	decoder := apimachineryyaml.NewYAMLOrJSONDecoder(bytes.NewReader(stream), 4096)
	var secrets []Secret
	for {
		var doc struct {
			Kind     string            `json:"kind"`
			Metadata struct{ Name string `json:"name"` } `json:"metadata"`
			Data       map[string]string `json:"data"`
			StringData map[string]string `json:"stringData"`
		}
		if err := decoder.Decode(&doc); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if doc.Kind != "Secret" {
			continue
		}
		merged, err := mergeSecretData(doc.Data, doc.StringData)
		if err != nil {
			return nil, err
		}
		secrets = append(secrets, Secret{Name: doc.Metadata.Name, Data: merged})
	}
	return secrets, nil
}
