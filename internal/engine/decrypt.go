package engine

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/microscaler/secret-manager-controller/api/v1alpha1"
	"github.com/microscaler/secret-manager-controller/internal/envelope"
	"github.com/microscaler/secret-manager-controller/internal/parser"
)

// defaultKeyDataKey is the data key read from an EncryptionKeyRef's Secret
// when Key is left unset.
const defaultKeyDataKey = "key"

// loadKeyMaterial reads the private key Secrets an MC's SecretsSelector
// refers to, both of which must live in the MC's own namespace (§6).
func loadKeyMaterial(ctx context.Context, c client.Client, namespace string, sel v1alpha1.SecretsSelector) (envelope.KeyMaterial, error) {
	var km envelope.KeyMaterial

	if sel.SchemeAKeyRef != nil {
		data, err := readKeySecret(ctx, c, namespace, *sel.SchemeAKeyRef)
		if err != nil {
			return envelope.KeyMaterial{}, err
		}
		km.SchemeAArmoredKey = data
	}
	if sel.SchemeBKeyRef != nil {
		data, err := readKeySecret(ctx, c, namespace, *sel.SchemeBKeyRef)
		if err != nil {
			return envelope.KeyMaterial{}, err
		}
		km.SchemeBIdentityKey = data
	}

	return km, nil
}

func readKeySecret(ctx context.Context, c client.Client, namespace string, ref v1alpha1.EncryptionKeyRef) ([]byte, error) {
	key := ref.Key
	if key == "" {
		key = defaultKeyDataKey
	}

	var secret corev1.Secret
	if err := c.Get(ctx, types.NamespacedName{Name: ref.SecretName, Namespace: namespace}, &secret); err != nil {
		return nil, &envelope.KeyNotFoundError{Namespace: namespace, SecretName: ref.SecretName}
	}

	data, ok := secret.Data[key]
	if !ok {
		return nil, &envelope.KeyNotFoundError{Namespace: namespace, SecretName: ref.SecretName}
	}
	return data, nil
}

// decryptBundle walks every entry in bundle and replaces envelope-
// encrypted values with their plaintext. Entries without envelope metadata
// are left untouched — plaintext values are valid input.
func decryptBundle(bundle *parser.Bundle, decryptor *envelope.Decryptor, keys envelope.KeyMaterial) (*parser.Bundle, error) {
	out := parser.NewBundle()
	for _, k := range bundle.Keys() {
		entry, _ := bundle.Get(k)
		if env, ok := envelope.Detect(entry.Value); ok {
			plaintext, err := decryptor.Decrypt(env, keys)
			if err != nil {
				return nil, fmt.Errorf("engine: decrypt key %q: %w", k, err)
			}
			entry.Value = string(plaintext)
		}
		out.Set(k, entry)
	}
	return out, nil
}
