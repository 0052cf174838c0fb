package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testSecret = "whsec_test"

func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded"}`)
	now := time.Now()

	header := signPayload(payload, testSecret, now)
	assert.NoError(t, VerifySignature(payload, header, testSecret, now))
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := signPayload(payload, "other-secret", now)
	assert.ErrorIs(t, VerifySignature(payload, header, testSecret, now), ErrBadSignature)
}

func TestVerifySignatureTamperedPayload(t *testing.T) {
	now := time.Now()
	header := signPayload([]byte(`{"amount_cents":100}`), testSecret, now)

	err := VerifySignature([]byte(`{"amount_cents":999999}`), header, testSecret, now)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifySignatureStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := signPayload(payload, testSecret, now.Add(-10*time.Minute))
	assert.ErrorIs(t, VerifySignature(payload, header, testSecret, now), ErrStaleSignature)
}

func TestVerifySignatureMissingOrMalformed(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Now()

	assert.ErrorIs(t, VerifySignature(payload, "", testSecret, now), ErrMissingSignature)
	assert.ErrorIs(t, VerifySignature(payload, "v1=deadbeef", testSecret, now), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature(payload, "t=notanumber,v1=deadbeef", testSecret, now), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature(payload, fmt.Sprintf("t=%d", now.Unix()), testSecret, now), ErrBadSignature)
}

func TestVerifySignatureMultipleCandidates(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	good := signPayload(payload, testSecret, now)
	header := fmt.Sprintf("%s,v1=%s", good, "0000000000000000000000000000000000000000000000000000000000000000")
	assert.NoError(t, VerifySignature(payload, header, testSecret, now))
}
