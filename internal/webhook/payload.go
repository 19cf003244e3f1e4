package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

var (
	errInvalidPayload   = errors.New("invalid payload")
	errInvalidSignature = errors.New("invalid signature")
)

// scalar accepts a JSON string or a bare JSON number and keeps its text.
type scalar string

func (s *scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = scalar(v)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*s = scalar(n)
		return nil
	}
}

type payload struct {
	Token          string `json:"token"`
	UserIdentifier scalar `json:"user_identifier"`
	Amount         scalar `json:"amount"`
}

func decodeConfirmation(body []byte) (Confirmation, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Confirmation{}, errInvalidPayload
	}
	return Confirmation{
		Token:          p.Token,
		UserIdentifier: string(p.UserIdentifier),
		Amount:         string(p.Amount),
	}, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(body []byte, signature string, secret []byte) error {
	if len(secret) == 0 {
		return nil
	}
	if !hmac.Equal([]byte(Sign(body, secret)), []byte(signature)) {
		return errInvalidSignature
	}
	return nil
}
