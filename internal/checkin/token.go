package checkin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"gymflow/internal/apperr"
)

const suffixLen = 8

var ErrInvalidToken = apperr.Validation(apperr.CodeCheckInTokenInvalid, "invalid check-in token")

// Codec turns a member's check-in code into a scannable token of the form
// "<uuid>.<8 hex chars of HMAC-SHA256>" and back.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

func (c *Codec) Encode(code uuid.UUID) string {
	id := code.String()
	return id + "." + c.suffix(id)
}

func (c *Codec) Decode(token string) (uuid.UUID, error) {
	id, suffix, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || len(suffix) != suffixLen {
		return uuid.Nil, ErrInvalidToken
	}
	code, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	if !hmac.Equal([]byte(strings.ToLower(suffix)), []byte(c.suffix(code.String()))) {
		return uuid.Nil, ErrInvalidToken
	}
	return code, nil
}

func (c *Codec) suffix(id string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))[:suffixLen]
}
