// Package envelope detects and decrypts envelope-encrypted secret values.
// An envelope is a small JSON trailer naming the recipients for each
// supported scheme plus the ciphertext; absence of the trailer means the
// value is plaintext. Two asymmetric schemes are supported: scheme A
// (OpenPGP-style, backed by github.com/ProtonMail/gopenpgp) and scheme B
// (X25519-based, backed by filippo.io/age).
package envelope

import (
	"encoding/base64"
	"encoding/json"
)

// wireEnvelope is the on-disk JSON shape of an encrypted value.
type wireEnvelope struct {
	Enc        string   `json:"enc"`
	SchemeA    []string `json:"schemeA,omitempty"`
	SchemeB    []string `json:"schemeB,omitempty"`
	Ciphertext string   `json:"ciphertext"`
}

const wireVersion = "v1"

// Envelope is the parsed, still-encrypted representation of one value.
type Envelope struct {
	SchemeARecipients []string
	SchemeBRecipients []string
	Ciphertext        []byte
}

// Detect inspects a raw value and reports whether it carries envelope
// metadata. A value with no trailer is plaintext and Detect returns ok=false.
func Detect(value string) (*Envelope, bool) {
	var w wireEnvelope
	if err := json.Unmarshal([]byte(value), &w); err != nil {
		return nil, false
	}
	if w.Enc != wireVersion || w.Ciphertext == "" {
		return nil, false
	}
	if len(w.SchemeA) == 0 && len(w.SchemeB) == 0 {
		return nil, false
	}
	ciphertext, err := base64.StdEncoding.DecodeString(w.Ciphertext)
	if err != nil {
		return nil, false
	}
	return &Envelope{
		SchemeARecipients: w.SchemeA,
		SchemeBRecipients: w.SchemeB,
		Ciphertext:        ciphertext,
	}, true
}

// Encode renders an Envelope back to its wire form. Used by tests and tools;
// the engine itself never encrypts.
func Encode(e *Envelope) string {
	w := wireEnvelope{
		Enc:        wireVersion,
		SchemeA:    e.SchemeARecipients,
		SchemeB:    e.SchemeBRecipients,
		Ciphertext: base64.StdEncoding.EncodeToString(e.Ciphertext),
	}
	b, _ := json.Marshal(w)
	return string(b)
}
