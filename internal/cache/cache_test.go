package cache

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func serveBytes(t *testing.T, data []byte) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func checksumOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestAcquireDownloadsVerifiesAndExtracts(t *testing.T) {
	data := buildTarGz(t, map[string]string{"overlay/base.yaml": "kind: Secret\n"})
	url := serveBytes(t, data)

	c := New(t.TempDir())
	dir, err := c.Acquire(context.Background(), Key{SourceID: "repo-a", Revision: "rev-1"}, url, checksumOf(data), int64(len(data)))
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "overlay", "base.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "kind: Secret\n", string(content))
}

func TestAcquireReturnsCachedEntryWithoutRedownload(t *testing.T) {
	data := buildTarGz(t, map[string]string{"a.yaml": "x"})
	called := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
		w.Write(data)
	}))
	defer srv.Close()

	c := New(t.TempDir())
	key := Key{SourceID: "repo-b", Revision: "rev-1"}
	_, err := c.Acquire(context.Background(), key, srv.URL, checksumOf(data), int64(len(data)))
	require.NoError(t, err)
	_, err = c.Acquire(context.Background(), key, srv.URL, checksumOf(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, 1, called)
}

func TestAcquireChecksumMismatch(t *testing.T) {
	data := buildTarGz(t, map[string]string{"a.yaml": "x"})
	url := serveBytes(t, data)

	c := New(t.TempDir())
	_, err := c.Acquire(context.Background(), Key{SourceID: "repo-c", Revision: "rev-1"}, url, "0000", int64(len(data)))
	require.Error(t, err)
	var corrupt *CorruptArtifactError
	require.ErrorAs(t, err, &corrupt)
}

func TestAcquireSizeMismatch(t *testing.T) {
	data := buildTarGz(t, map[string]string{"a.yaml": "x"})
	url := serveBytes(t, data)

	c := New(t.TempDir())
	_, err := c.Acquire(context.Background(), Key{SourceID: "repo-d", Revision: "rev-1"}, url, checksumOf(data), int64(len(data))+1)
	require.Error(t, err)
	var corrupt *CorruptArtifactError
	require.ErrorAs(t, err, &corrupt)
}

func TestAcquireRejectsNonGzip(t *testing.T) {
	data := []byte("not a gzip stream at all")
	url := serveBytes(t, data)

	c := New(t.TempDir())
	_, err := c.Acquire(context.Background(), Key{SourceID: "repo-e", Revision: "rev-1"}, url, checksumOf(data), int64(len(data)))
	require.Error(t, err)
	var corrupt *CorruptArtifactError
	require.ErrorAs(t, err, &corrupt)
}

func TestAcquireRejectsPathTraversal(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	content := "evil"
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "../../etc/passwd", Mode: 0o644, Size: int64(len(content))}))
	_, err := tw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	data := buf.Bytes()
	url := serveBytes(t, data)

	c := New(t.TempDir())
	_, err = c.Acquire(context.Background(), Key{SourceID: "repo-f", Revision: "rev-1"}, url, checksumOf(data), int64(len(data)))
	require.Error(t, err)
	var corrupt *CorruptArtifactError
	require.ErrorAs(t, err, &corrupt)
}

func TestEnforceRetentionKeepsThreeNewest(t *testing.T) {
	base := t.TempDir()
	c := New(base)
	sourceDir := c.sourceDir("repo-g")
	require.NoError(t, os.MkdirAll(sourceDir, 0o755))

	revisions := []string{"rev-1", "rev-2", "rev-3", "rev-4", "rev-5"}
	for i, rev := range revisions {
		dir := filepath.Join(sourceDir, rev)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		modTime := time.Now().Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(dir, modTime, modTime))
	}

	require.NoError(t, c.enforceRetention("repo-g"))

	entries, err := os.ReadDir(sourceDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"rev-3", "rev-4", "rev-5"}, names)
}
