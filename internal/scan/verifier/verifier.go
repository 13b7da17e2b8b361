package verifier

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCredentialInvalid marks a payload that failed signature or
	// structure checks. Reported to the operator, never retried.
	ErrCredentialInvalid = errors.New("credential invalid")

	// ErrConfiguration means the verifier cannot operate at all. The
	// service must refuse to start rather than accept unsigned credentials.
	ErrConfiguration = errors.New("scan signing secret not configured")
)

// Verifier checks the HMAC-SHA256 signature on structured scan payloads.
// Bare-string payloads (manual entry, legacy wristbands) pass through as
// plain tokens.
type Verifier struct {
	secret []byte
}

func New(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrConfiguration
	}
	return &Verifier{secret: []byte(secret)}, nil
}

type signedPayload struct {
	Token     string            `json:"token"`
	Signature string            `json:"signature"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// Verify returns the credential token carried by a raw scan payload. A
// JSON object is required to carry a valid signature over its token; any
// other payload is treated as a plain ticket identifier.
func (v *Verifier) Verify(raw string) (string, map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil, fmt.Errorf("%w: empty payload", ErrCredentialInvalid)
	}

	if !strings.HasPrefix(raw, "{") {
		return raw, nil, nil
	}

	var payload signedPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", nil, fmt.Errorf("%w: malformed payload", ErrCredentialInvalid)
	}
	if payload.Token == "" || payload.Signature == "" {
		return "", nil, fmt.Errorf("%w: missing token or signature", ErrCredentialInvalid)
	}

	expected := v.Sign(payload.Token)
	// hmac.Equal is constant-time
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(payload.Signature))) {
		return "", nil, fmt.Errorf("%w: signature mismatch", ErrCredentialInvalid)
	}

	return payload.Token, payload.Meta, nil
}

// Sign computes the hex HMAC-SHA256 signature for a token. Used by
// provisioning tooling to mint credentials the gate will accept.
func (v *Verifier) Sign(token string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Encode produces the JSON payload embedded in a QR credential.
func (v *Verifier) Encode(token string, meta map[string]string) (string, error) {
	payload := signedPayload{
		Token:     token,
		Signature: v.Sign(token),
		Meta:      meta,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
