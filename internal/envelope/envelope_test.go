package envelope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microscaler/secret-manager-controller/internal/envelope"
)

func TestDetectPlaintext(t *testing.T) {
	_, ok := envelope.Detect("plain-value")
	assert.False(t, ok)
}

func TestDetectEnvelopeRoundTrip(t *testing.T) {
	e := &envelope.Envelope{
		SchemeARecipients: []string{"0xDEADBEEF"},
		Ciphertext:        []byte("fake-ciphertext"),
	}
	wire := envelope.Encode(e)

	parsed, ok := envelope.Detect(wire)
	require.True(t, ok)
	assert.Equal(t, e.SchemeARecipients, parsed.SchemeARecipients)
	assert.Equal(t, e.Ciphertext, parsed.Ciphertext)
}

func TestDecryptBothSchemesFail(t *testing.T) {
	env := &envelope.Envelope{
		SchemeARecipients: []string{"0xDEADBEEF"},
		SchemeBRecipients: []string{"age1..."},
		Ciphertext:        []byte("not-real-ciphertext"),
	}
	d := envelope.New()
	_, err := d.Decrypt(env, envelope.KeyMaterial{})
	require.Error(t, err)
	var dfErr *envelope.DecryptionFailedError
	require.ErrorAs(t, err, &dfErr)
	assert.Contains(t, dfErr.SchemeAReason, "no scheme A key material")
	assert.Contains(t, dfErr.SchemeBReason, "no scheme B key material")
}
