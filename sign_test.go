package amino

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestGenerateDeviceID_Deterministic(t *testing.T) {
	seed := make([]byte, 20)
	for i := range seed {
		seed[i] = byte(i)
	}

	a := GenerateDeviceID(seed)
	b := GenerateDeviceID(seed)

	if a != b {
		t.Errorf("device id not deterministic: %s != %s", a, b)
	}
	if a != strings.ToUpper(a) {
		t.Errorf("device id not uppercase: %s", a)
	}

	// prefix (1) + seed (20) + sha1 digest (20), hex-encoded
	if len(a) != 2*(1+20+20) {
		t.Fatalf("device id length = %d, want %d", len(a), 2*41)
	}
}

func TestGenerateDeviceID_Segments(t *testing.T) {
	seed := []byte("0123456789abcdefghij")
	id := GenerateDeviceID(seed)

	raw, err := hex.DecodeString(id)
	if err != nil {
		t.Fatalf("device id is not hex: %v", err)
	}

	if raw[0] != 0x42 {
		t.Errorf("prefix byte = %#x, want 0x42", raw[0])
	}
	if string(raw[1:21]) != string(seed) {
		t.Errorf("seed segment = %x, want %x", raw[1:21], seed)
	}

	// The checksum segment must be reconstructible from prefix + seed.
	mac := hmac.New(sha1.New, deviceKey)
	mac.Write(raw[:21])
	if want := mac.Sum(nil); string(raw[21:]) != string(want) {
		t.Errorf("checksum segment = %x, want %x", raw[21:], want)
	}
}

func TestGenerateDeviceID_RandomSeed(t *testing.T) {
	a := GenerateDeviceID(nil)
	b := GenerateDeviceID(nil)

	if len(a) != 82 || len(b) != 82 {
		t.Fatalf("device id lengths = %d, %d, want 82", len(a), len(b))
	}
	if a == b {
		t.Error("two random device ids are identical")
	}
}

func TestSignBody(t *testing.T) {
	payload := []byte(`{"email":"a@b.c","timestamp":1700000000000}`)

	sig := SignBody(payload)
	if sig != SignBody(payload) {
		t.Error("signature not deterministic")
	}

	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		t.Fatalf("signature is not base64: %v", err)
	}
	if len(raw) != 1+sha1.Size {
		t.Fatalf("decoded signature length = %d, want %d", len(raw), 1+sha1.Size)
	}
	if raw[0] != 0x42 {
		t.Errorf("version byte = %#x, want 0x42", raw[0])
	}

	mac := hmac.New(sha1.New, signatureKey)
	mac.Write(payload)
	if want := mac.Sum(nil); string(raw[1:]) != string(want) {
		t.Errorf("digest = %x, want %x", raw[1:], want)
	}

	if SignBody([]byte("other")) == sig {
		t.Error("different payloads produced the same signature")
	}
}

// encodeSessionToken builds a token the way the backend does: a one-byte
// prefix, the claims JSON, and a binary signature trailer, base64url without
// padding.
func encodeSessionToken(claimsJSON string, trailer []byte) string {
	payload := append([]byte{0x32}, claimsJSON...)
	payload = append(payload, trailer...)
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(payload)
}

func TestDecodeSessionToken_RoundTrip(t *testing.T) {
	sid := encodeSessionToken(
		`{"1":null,"2":"user-42","4":"203.0.113.9","5":1700000000,"6":100}`,
		[]byte{0xde, 0xad, 0xbe, 0xef, 0x01},
	)

	claims, err := DecodeSessionToken(sid)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if claims.UID != "user-42" {
		t.Errorf("UID = %q, want %q", claims.UID, "user-42")
	}
	if claims.Timestamp != 1700000000 {
		t.Errorf("Timestamp = %d, want 1700000000", claims.Timestamp)
	}
	if claims.ClientType != 100 {
		t.Errorf("ClientType = %d, want 100", claims.ClientType)
	}
}

func TestDecodeSessionToken_Malformed(t *testing.T) {
	tests := []struct {
		name string
		sid  string
	}{
		{"not base64", "!!!!"},
		{"too short", "QQ"},
		{"no terminator", encodeSessionToken(`{"2":"u"}`, nil)},
		{"bad json", encodeSessionToken(`{"2":user-40}`, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSessionToken(tt.sid)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var tokenErr *TokenError
			if !errors.As(err, &tokenErr) {
				t.Errorf("error type = %T, want *TokenError", err)
			}
		})
	}
}
