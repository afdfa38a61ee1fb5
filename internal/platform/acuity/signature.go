package acuity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader carries the provider's HMAC over the raw webhook body.
const SignatureHeader = "X-Acuity-Signature"

// SignPayload computes the base64 HMAC-SHA256 of the payload.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature in constant time. An empty
// secret disables verification, which is only acceptable in development.
func VerifySignature(secret string, payload []byte, signature string) bool {
	if secret == "" {
		return true
	}
	expected := SignPayload(secret, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
