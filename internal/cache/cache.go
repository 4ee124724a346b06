// Package cache fetches, verifies, extracts, and garbage-collects remote
// artifact tarballs keyed by (source, revision), mirroring the original
// controller's FluxCD/ArgoCD artifact-path logic but generalized to any
// declared (url, checksum, size) tuple.
package cache

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/singleflight"
)

// Key identifies one cache entry.
type Key struct {
	SourceID string
	Revision string
}

func (k Key) dirName() string { return sanitizeComponent(k.Revision) }

// retainCount is the number of newest revisions kept per source.
const retainCount = 3

// downloadChunkSize is the streaming read size while downloading (§4.5 step 2).
const downloadChunkSize = 64 * 1024

// gzipMagic is the two leading bytes every valid artifact must have.
var gzipMagic = [2]byte{0x1f, 0x8b}

// Cache is a single-writer-per-key, multi-reader artifact store rooted at BaseDir.
type Cache struct {
	BaseDir    string
	HTTPClient *http.Client

	group singleflight.Group
}

// New returns a Cache rooted at baseDir.
func New(baseDir string) *Cache {
	return &Cache{BaseDir: baseDir, HTTPClient: http.DefaultClient}
}

func (c *Cache) sourceDir(sourceID string) string {
	return filepath.Join(c.BaseDir, sanitizeComponent(sourceID))
}

func (c *Cache) entryDir(key Key) string {
	return filepath.Join(c.sourceDir(key.SourceID), key.dirName())
}

// Acquire returns the extracted directory for (source, revision), downloading
// and extracting it first if necessary. Concurrent callers for the same key
// are deduplicated: one downloads, the rest await its result.
func (c *Cache) Acquire(ctx context.Context, key Key, url, checksum string, size int64) (string, error) {
	dir := c.entryDir(key)

	// Step 1: already cached and non-empty.
	if nonEmptyDir(dir) {
		return dir, nil
	}

	singleflightKey := key.SourceID + "@" + key.Revision
	result, err, _ := c.group.Do(singleflightKey, func() (any, error) {
		// Re-check after winning the singleflight race — another acquire()
		// for the same key may have completed while we waited.
		if nonEmptyDir(dir) {
			return dir, nil
		}
		return c.acquireLocked(ctx, key, url, checksum, size)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Cached returns the extracted directory for (source, revision) if it is
// already present on disk, without attempting a download. It is used when
// git-pulls-suspended skips source resolution entirely and must reuse
// whatever revision was fetched last.
func (c *Cache) Cached(key Key) (string, bool) {
	dir := c.entryDir(key)
	if nonEmptyDir(dir) {
		return dir, true
	}
	return "", false
}

func (c *Cache) acquireLocked(ctx context.Context, key Key, url, checksum string, size int64) (string, error) {
	sourceDir := c.sourceDir(key.SourceID)
	if err := os.MkdirAll(sourceDir, 0o755); err != nil {
		return "", fmt.Errorf("cache: create source dir: %w", err)
	}

	tempTar, err := os.CreateTemp(sourceDir, ".download-*.tar.gz")
	if err != nil {
		return "", fmt.Errorf("cache: create temp file: %w", err)
	}
	tempTarPath := tempTar.Name()
	defer os.Remove(tempTarPath)

	downloadedSize, hash, err := c.download(ctx, tempTar, url)
	_ = tempTar.Close()
	if err != nil {
		return "", err
	}

	// Step 3: verify size, checksum, and gzip magic.
	if downloadedSize != size {
		return "", &CorruptArtifactError{Reason: fmt.Sprintf("size mismatch: declared %d, got %d", size, downloadedSize)}
	}
	if hash != checksum {
		return "", &CorruptArtifactError{Reason: fmt.Sprintf("checksum mismatch: declared %s, got %s", checksum, hash)}
	}
	if err := verifyGzipMagic(tempTarPath); err != nil {
		return "", err
	}

	// Step 4: extract into a sibling staging directory.
	stagingDir, err := os.MkdirTemp(sourceDir, ".extract-*")
	if err != nil {
		return "", fmt.Errorf("cache: create staging dir: %w", err)
	}
	if err := extractTarGz(tempTarPath, stagingDir); err != nil {
		os.RemoveAll(stagingDir)
		return "", err
	}

	// Step 5: verify non-empty extraction.
	if !nonEmptyDir(stagingDir) {
		os.RemoveAll(stagingDir)
		return "", &CorruptArtifactError{Reason: "extraction produced an empty directory"}
	}

	// Step 6: publish atomically and enforce retention.
	finalDir := c.entryDir(key)
	if err := os.Rename(stagingDir, finalDir); err != nil {
		os.RemoveAll(stagingDir)
		return "", fmt.Errorf("cache: publish entry: %w", err)
	}
	if err := c.enforceRetention(key.SourceID); err != nil {
		return finalDir, fmt.Errorf("cache: retention cleanup: %w", err)
	}
	return finalDir, nil
}

func (c *Cache) download(ctx context.Context, dst *os.File, url string) (int64, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", fmt.Errorf("cache: build request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("cache: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, "", fmt.Errorf("cache: download: unexpected status %d", resp.StatusCode)
	}

	hasher := sha256.New()
	writer := io.MultiWriter(dst, hasher)

	var total int64
	buf := make([]byte, downloadChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			written, writeErr := writer.Write(buf[:n])
			total += int64(written)
			if writeErr != nil {
				return total, "", fmt.Errorf("cache: write chunk: %w", writeErr)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return total, "", fmt.Errorf("cache: read chunk: %w", readErr)
		}
	}
	return total, hex.EncodeToString(hasher.Sum(nil)), nil
}

func verifyGzipMagic(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cache: reopen for magic check: %w", err)
	}
	defer f.Close()
	var magic [2]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return &CorruptArtifactError{Reason: "artifact too small to contain gzip magic"}
	}
	if magic != gzipMagic {
		return &CorruptArtifactError{Reason: fmt.Sprintf("not gzip: magic bytes %x", magic)}
	}
	return nil
}

func extractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("cache: open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return &CorruptArtifactError{Reason: "invalid gzip stream: " + err.Error()}
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &CorruptArtifactError{Reason: "invalid tar stream: " + err.Error()}
		}

		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return &CorruptArtifactError{Reason: err.Error()}
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("cache: mkdir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("cache: mkdir parent of %s: %w", target, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode&0o777))
			if err != nil {
				return fmt.Errorf("cache: create %s: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("cache: write %s: %w", target, err)
			}
			out.Close()
		case tar.TypeSymlink, tar.TypeLink:
			// Refuse links outright: they are a path-traversal vector even
			// when the declared target looks benign, and the overlay/secret
			// pipeline never needs them.
			return &CorruptArtifactError{Reason: fmt.Sprintf("refusing link entry: %s", hdr.Name)}
		default:
			// Ignore other entry types (char/block devices, fifos).
		}
	}
}

// safeJoin joins destDir with name after verifying the result stays within
// destDir, refusing absolute paths and ".." traversal even on trusted inputs.
func safeJoin(destDir, name string) (string, error) {
	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) || cleaned == ".." || (len(cleaned) > 2 && cleaned[:3] == ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("corrupt-artifact: path traversal in archive entry %q", name)
	}
	joined := filepath.Join(destDir, cleaned)
	if joined != destDir && !hasPathPrefix(joined, destDir) {
		return "", fmt.Errorf("corrupt-artifact: path traversal in archive entry %q", name)
	}
	return joined, nil
}

func hasPathPrefix(path, prefix string) bool {
	rel, err := filepath.Rel(prefix, path)
	if err != nil {
		return false
	}
	return rel != ".." && !hasDotDotPrefix(rel)
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 2 && rel[0] == '.' && rel[1] == '.'
}

func nonEmptyDir(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// enforceRetention keeps only the retainCount newest revision directories for
// sourceID, by modification time, removing older entries and stray temp files.
func (c *Cache) enforceRetention(sourceID string) error {
	sourceDir := c.sourceDir(sourceID)
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return err
	}

	type revision struct {
		path    string
		modTime time.Time
	}
	var revisions []revision
	for _, e := range entries {
		name := e.Name()
		if len(name) > 0 && name[0] == '.' {
			// Stray temp download/extraction artifact from a failed run.
			_ = os.RemoveAll(filepath.Join(sourceDir, name))
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		revisions = append(revisions, revision{path: filepath.Join(sourceDir, name), modTime: info.ModTime()})
	}

	if len(revisions) <= retainCount {
		return nil
	}
	sort.Slice(revisions, func(i, j int) bool { return revisions[i].modTime.After(revisions[j].modTime) })
	for _, r := range revisions[retainCount:] {
		if err := os.RemoveAll(r.path); err != nil {
			return err
		}
	}
	return nil
}

func sanitizeComponent(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
