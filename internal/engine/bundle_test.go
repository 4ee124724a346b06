package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microscaler/secret-manager-controller/internal/overlay"
)

func TestBuildBundlesMergesEnvAndTreeIntoSecrets(t *testing.T) {
	secrets := []overlay.Secret{{
		Name: "app-secrets",
		Data: map[string][]byte{
			".env":     []byte("API_KEY=k1\nDB_PW=k2\n"),
			"tree.yaml": []byte("API_KEY: k1-new\n"),
		},
	}}

	secretBundle, configBundle, err := buildBundles(secrets)
	require.NoError(t, err)
	assert.Equal(t, 0, configBundle.Len())

	entry, ok := secretBundle.Get("API_KEY")
	require.True(t, ok)
	assert.Equal(t, "k1-new", entry.Value)

	entry, ok = secretBundle.Get("DB_PW")
	require.True(t, ok)
	assert.Equal(t, "k2", entry.Value)
}

func TestBuildBundlesRoutesPropertiesSeparately(t *testing.T) {
	secrets := []overlay.Secret{{
		Name: "app-config",
		Data: map[string][]byte{
			"app.properties": []byte("timeout=30\n"),
			".env":           []byte("API_KEY=k1\n"),
		},
	}}

	secretBundle, configBundle, err := buildBundles(secrets)
	require.NoError(t, err)

	_, ok := secretBundle.Get("timeout")
	assert.False(t, ok)

	entry, ok := configBundle.Get("timeout")
	require.True(t, ok)
	assert.Equal(t, "30", entry.Value)
}

func TestClassifyFile(t *testing.T) {
	assert.Equal(t, "tree", string(classifyFile("config.yaml")))
	assert.Equal(t, "tree", string(classifyFile("config.yml")))
	assert.Equal(t, "properties", string(classifyFile("app.properties")))
	assert.Equal(t, "env", string(classifyFile(".env")))
}
