package overlay

import (
	"encoding/base64"
	"fmt"
)

// mergeSecretData decodes base64 `data` and literal `stringData` into one
// map of raw bytes, per the Kubernetes Secret convention. stringData wins on
// key collision, matching apiserver semantics.
func mergeSecretData(data, stringData map[string]string) (map[string][]byte, error) {
	merged := make(map[string][]byte, len(data)+len(stringData))
	for k, v := range data {
		raw, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("overlay-build-error: invalid base64 for key %q: %w", k, err)
		}
		merged[k] = raw
	}
	for k, v := range stringData {
		merged[k] = []byte(v)
	}
	return merged, nil
}
