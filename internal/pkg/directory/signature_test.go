package directory

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func signCallback(body []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:"))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte(":"))
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyCallbackSignature(t *testing.T) {
	body := []byte(`payload={"type":"block_actions"}`)
	secret := "signing-secret"
	now := time.Unix(1700000000, 0)
	ts := fmt.Sprintf("%d", now.Unix())

	valid := signCallback(body, secret, now.Unix())
	assert.True(t, verifyCallbackSignatureAt(body, ts, valid, secret, now))

	assert.False(t, verifyCallbackSignatureAt([]byte("tampered"), ts, valid, secret, now))
	assert.False(t, verifyCallbackSignatureAt(body, ts, valid, "other-secret", now))
	assert.False(t, verifyCallbackSignatureAt(body, ts, "v0=deadbeef", secret, now))
	assert.False(t, verifyCallbackSignatureAt(body, ts, valid, "", now))
}

func TestVerifyCallbackSignature_ReplayWindow(t *testing.T) {
	body := []byte(`payload={}`)
	secret := "signing-secret"
	now := time.Unix(1700000000, 0)

	oldTS := now.Add(-6 * time.Minute).Unix()
	stale := signCallback(body, secret, oldTS)
	assert.False(t, verifyCallbackSignatureAt(body, fmt.Sprintf("%d", oldTS), stale, secret, now),
		"old callbacks must be rejected even with a valid MAC")

	recentTS := now.Add(-2 * time.Minute).Unix()
	recent := signCallback(body, secret, recentTS)
	assert.True(t, verifyCallbackSignatureAt(body, fmt.Sprintf("%d", recentTS), recent, secret, now))
}

func TestVerifyCallbackSignature_MalformedHeaders(t *testing.T) {
	body := []byte(`payload={}`)
	secret := "signing-secret"
	now := time.Unix(1700000000, 0)
	valid := signCallback(body, secret, now.Unix())

	assert.False(t, verifyCallbackSignatureAt(body, "not-a-number", valid, secret, now))
	assert.False(t, verifyCallbackSignatureAt(body, "", valid, secret, now))
	assert.False(t, verifyCallbackSignatureAt(body, fmt.Sprintf("%d", now.Unix()), "missing-prefix", secret, now))
	assert.False(t, verifyCallbackSignatureAt(body, fmt.Sprintf("%d", now.Unix()), "v0=zzzz", secret, now))
}
