package verifier_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"ms-scanning/internal/scan/verifier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresSecret(t *testing.T) {
	_, err := verifier.New("")
	assert.ErrorIs(t, err, verifier.ErrConfiguration)

	v, err := verifier.New("gate-secret")
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestVerifyPlainToken(t *testing.T) {
	v, err := verifier.New("gate-secret")
	require.NoError(t, err)

	token, meta, err := v.Verify("TKT-12345")
	require.NoError(t, err)
	assert.Equal(t, "TKT-12345", token)
	assert.Nil(t, meta)
}

func TestVerifySignedPayload(t *testing.T) {
	v, err := verifier.New("gate-secret")
	require.NoError(t, err)

	raw, err := v.Encode("TKT-12345", map[string]string{"gate": "north"})
	require.NoError(t, err)

	token, meta, err := v.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "TKT-12345", token)
	assert.Equal(t, "north", meta["gate"])
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	v, err := verifier.New("gate-secret")
	require.NoError(t, err)

	sig := v.Sign("TKT-12345")
	// flip one nibble of the signature
	tampered := "0" + sig[1:]
	if tampered == sig {
		tampered = "1" + sig[1:]
	}
	raw := fmt.Sprintf(`{"token":"TKT-12345","signature":"%s"}`, tampered)

	_, _, err = v.Verify(raw)
	assert.ErrorIs(t, err, verifier.ErrCredentialInvalid)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer, err := verifier.New("secret-a")
	require.NoError(t, err)
	gate, err := verifier.New("secret-b")
	require.NoError(t, err)

	raw, err := signer.Encode("TKT-12345", nil)
	require.NoError(t, err)

	_, _, err = gate.Verify(raw)
	assert.ErrorIs(t, err, verifier.ErrCredentialInvalid)
}

func TestVerifyRejectsMalformedPayloads(t *testing.T) {
	v, err := verifier.New("gate-secret")
	require.NoError(t, err)

	cases := []string{
		"",
		"   ",
		"{not json",
		`{"token":"","signature":"abc"}`,
		`{"token":"TKT-1","signature":""}`,
	}
	for _, raw := range cases {
		_, _, err := v.Verify(raw)
		assert.ErrorIs(t, err, verifier.ErrCredentialInvalid, "payload: %q", raw)
	}
}

func TestVerifyAcceptsUppercaseSignature(t *testing.T) {
	v, err := verifier.New("gate-secret")
	require.NoError(t, err)

	payload := map[string]string{
		"token":     "TKT-777",
		"signature": strings.ToUpper(v.Sign("TKT-777")),
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	token, _, err := v.Verify(string(data))
	require.NoError(t, err)
	assert.Equal(t, "TKT-777", token)
}
