package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// ValidateSignature verifies the X-Line-Signature header against the raw
// request body: base64(HMAC-SHA256(channelSecret, body)).
//
// It must run on the exact bytes received over the wire, before any JSON
// parsing, because the digest is byte-sensitive. Missing body, missing
// signature, undecodable base64, or a length mismatch all yield false.
// The digest comparison is constant time.
func ValidateSignature(channelSecret string, body []byte, signature string) bool {
	if channelSecret == "" || len(body) == 0 || signature == "" {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	expected := mac.Sum(nil)

	if len(decoded) != len(expected) {
		return false
	}
	return hmac.Equal(decoded, expected)
}
