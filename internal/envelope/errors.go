package envelope

import "fmt"

// KeyNotFoundError reports that the private key secret referenced by the MC
// could not be found in the MC's own namespace. Absence fails decryption.
type KeyNotFoundError struct {
	Namespace  string
	SecretName string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("decryption-key-not-found: %s/%s", e.Namespace, e.SecretName)
}

// DecryptionFailedError reports that every configured scheme failed to
// decrypt a value, carrying the per-scheme reason.
type DecryptionFailedError struct {
	SchemeAReason string
	SchemeBReason string
}

func (e *DecryptionFailedError) Error() string {
	return fmt.Sprintf("decryption-failed: schemeA=%q schemeB=%q", e.SchemeAReason, e.SchemeBReason)
}
