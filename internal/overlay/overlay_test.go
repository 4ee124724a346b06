package overlay

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSecretsFiltersKind(t *testing.T) {
	stream := []byte(`
apiVersion: v1
kind: ConfigMap
metadata:
  name: not-a-secret
data:
  FOO: bar
---
apiVersion: v1
kind: Secret
metadata:
  name: app-secrets
stringData:
  API_KEY: k1
data:
  DB_PW: azFz
`)
	secrets, err := extractSecrets(stream)
	require.NoError(t, err)
	require.Len(t, secrets, 1)
	assert.Equal(t, "app-secrets", secrets[0].Name)
	assert.Equal(t, []byte("k1"), secrets[0].Data["API_KEY"])
	assert.Equal(t, []byte("k1s"), secrets[0].Data["DB_PW"])
}

func TestBuildNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a posix shell")
	}
	b := New("false")
	_, err := b.Build(context.Background(), "/tmp")
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
}
