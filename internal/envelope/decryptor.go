package envelope

import (
	"bytes"
	"io"
	"strings"

	"filippo.io/age"
	"github.com/ProtonMail/gopenpgp/v2/helper"
)

// KeyMaterial holds the private key(s) loaded from the MC's own namespace for
// each scheme. Either may be empty if that scheme isn't configured for this MC.
type KeyMaterial struct {
	// SchemeAArmoredKey is an armored OpenPGP private key.
	SchemeAArmoredKey []byte
	// SchemeBIdentityKey is an age X25519 identity file (AGE-SECRET-KEY-1...).
	SchemeBIdentityKey []byte
}

// Decryptor decrypts envelope-encrypted values.
type Decryptor struct{}

// New returns a Decryptor.
func New() *Decryptor { return &Decryptor{} }

// Decrypt attempts scheme A first, then scheme B, per the envelope's
// recipient lists and the supplied key material. If both fail (or neither
// scheme in the envelope has matching key material), it returns
// DecryptionFailedError with the per-scheme reason.
func (d *Decryptor) Decrypt(env *Envelope, keys KeyMaterial) ([]byte, error) {
	var reasonA, reasonB string

	if len(env.SchemeARecipients) > 0 {
		if len(keys.SchemeAArmoredKey) == 0 {
			reasonA = "no scheme A key material configured"
		} else {
			plaintext, err := d.decryptSchemeA(env.Ciphertext, keys.SchemeAArmoredKey)
			if err == nil {
				return plaintext, nil
			}
			reasonA = err.Error()
		}
	} else {
		reasonA = "envelope has no scheme A recipients"
	}

	if len(env.SchemeBRecipients) > 0 {
		if len(keys.SchemeBIdentityKey) == 0 {
			reasonB = "no scheme B key material configured"
		} else {
			plaintext, err := d.decryptSchemeB(env.Ciphertext, keys.SchemeBIdentityKey)
			if err == nil {
				return plaintext, nil
			}
			reasonB = err.Error()
		}
	} else {
		reasonB = "envelope has no scheme B recipients"
	}

	return nil, &DecryptionFailedError{SchemeAReason: reasonA, SchemeBReason: reasonB}
}

func (d *Decryptor) decryptSchemeA(ciphertext, armoredKey []byte) ([]byte, error) {
	return helper.DecryptBinaryMessageArmored(string(armoredKey), nil, string(ciphertext))
}

func (d *Decryptor) decryptSchemeB(ciphertext, identityKey []byte) ([]byte, error) {
	identities, err := age.ParseIdentities(strings.NewReader(string(identityKey)))
	if err != nil {
		return nil, err
	}
	r, err := age.Decrypt(bytes.NewReader(ciphertext), identities...)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
