package session

import (
	"crypto/rand"
	"errors"
	"net/http"

	"github.com/gorilla/securecookie"
)

const cookieName = "pysbridge_host"

var ErrNoSession = errors.New("session: not found")

// Codec signs the pairing token into a host-local cookie so the demo page
// can open the socket without carrying the raw token in its URL. The signing
// key is per-process; cookies do not survive a restart.
type Codec struct {
	sc *securecookie.SecureCookie
}

func NewCodec() *Codec {
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return &Codec{sc: securecookie.New(key, nil)}
}

func (c *Codec) Issue(w http.ResponseWriter, token string) error {
	encoded, err := c.sc.Encode(cookieName, token)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

func (c *Codec) Token(r *http.Request) (string, error) {
	ck, err := r.Cookie(cookieName)
	if err != nil {
		return "", ErrNoSession
	}
	var token string
	if err := c.sc.Decode(cookieName, ck.Value, &token); err != nil {
		return "", ErrNoSession
	}
	return token, nil
}
