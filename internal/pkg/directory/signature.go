package directory

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const callbackTolerance = 5 * time.Minute

// VerifyCallbackSignature checks the signature the directory platform
// attaches to interaction callbacks. The MAC covers "v0:<timestamp>:<body>"
// with the app's signing secret and arrives as "v0=<hex>". Old timestamps
// are rejected to stop replays of captured callbacks.
func VerifyCallbackSignature(body []byte, timestampHeader, signatureHeader, signingSecret string) bool {
	return verifyCallbackSignatureAt(body, timestampHeader, signatureHeader, signingSecret, time.Now())
}

func verifyCallbackSignatureAt(body []byte, timestampHeader, signatureHeader, signingSecret string, now time.Time) bool {
	secret := strings.TrimSpace(signingSecret)
	sigHex, ok := strings.CutPrefix(strings.TrimSpace(signatureHeader), "v0=")
	if secret == "" || !ok {
		return false
	}
	presented, err := hex.DecodeString(strings.ToLower(sigHex))
	if err != nil {
		return false
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(timestampHeader), 10, 64)
	if err != nil {
		return false
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > callbackTolerance || age < -callbackTolerance {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:"))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte(":"))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), presented)
}
