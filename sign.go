package amino

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
)

// signPrefix is the version byte prepended to device ids and signatures.
const signPrefix = 0x42

// deviceSeedLen is the number of seed bytes in a device id.
const deviceSeedLen = 20

var (
	deviceKey    = mustHex("02B258C63559D8804321C5D5065AF320358D366F")
	signatureKey = mustHex("F8E7A61AC3F725941E3AC7CAE2D688BE97F30B93")
)

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// GenerateDeviceID derives a device id from the given 20-byte seed. If seed
// is nil, a random seed is drawn. The result is deterministic for a given
// seed, so callers can pin a stable device identity across restarts.
//
// The encoded form is uppercase hex of prefix || seed || HMAC-SHA1(prefix ||
// seed, deviceKey).
func GenerateDeviceID(seed []byte) string {
	if seed == nil {
		seed = make([]byte, deviceSeedLen)
		if _, err := rand.Read(seed); err != nil {
			panic(err)
		}
	}

	mac := hmac.New(sha1.New, deviceKey)
	mac.Write([]byte{signPrefix})
	mac.Write(seed)

	raw := make([]byte, 0, 1+len(seed)+sha1.Size)
	raw = append(raw, signPrefix)
	raw = append(raw, seed...)
	raw = mac.Sum(raw)

	return strings.ToUpper(hex.EncodeToString(raw))
}

// SignBody computes the request signature over the given payload bytes.
// The result is base64 of the version byte followed by the HMAC-SHA1 digest,
// and must accompany every request body and every socket handshake nonce.
func SignBody(body []byte) string {
	mac := hmac.New(sha1.New, signatureKey)
	mac.Write(body)

	raw := make([]byte, 0, 1+sha1.Size)
	raw = append(raw, signPrefix)
	raw = mac.Sum(raw)

	return base64.StdEncoding.EncodeToString(raw)
}

// SessionClaims holds the fields embedded in a session token. The backend
// keys them numerically.
type SessionClaims struct {
	UID        string `json:"2"`
	IP         string `json:"4"`
	Timestamp  int64  `json:"5"`
	ClientType int    `json:"6"`
}

// DecodeSessionToken extracts the claims embedded in a session token without
// contacting the network. The token is unpadded base64url; the decoded
// payload carries a one-byte prefix, the claims JSON, and a binary trailer.
// The JSON ends at the first "0}" sequence.
func DecodeSessionToken(sid string) (*SessionClaims, error) {
	if m := len(sid) % 4; m != 0 {
		sid += strings.Repeat("=", 4-m)
	}

	raw, err := base64.URLEncoding.DecodeString(sid)
	if err != nil {
		return nil, &TokenError{Err: err}
	}
	if len(raw) < 2 {
		return nil, &TokenError{Err: errors.New("payload too short")}
	}

	s := string(raw[1:])
	end := strings.Index(s, "0}")
	if end < 0 {
		return nil, &TokenError{Err: errors.New("claims terminator not found")}
	}
	s = s[:end+2]

	var claims SessionClaims
	if err := json.Unmarshal([]byte(s), &claims); err != nil {
		return nil, &TokenError{Err: err}
	}

	return &claims, nil
}
