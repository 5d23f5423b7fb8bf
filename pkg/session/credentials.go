package session

import (
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	KeyAccessToken = "accessToken"
	KeyUserName    = "userName"
)

// CredentialProvider hands out the current access token. It never
// refreshes it.
type CredentialProvider interface {
	Token() (string, bool)
}

// StaticToken is a fixed token, typically from a flag or environment.
type StaticToken string

func (s StaticToken) Token() (string, bool) {
	t := strings.TrimSpace(string(s))
	return t, t != ""
}

// StoreCredentials reads the token saved in the session store at login.
type StoreCredentials struct {
	Store Store
}

func (c StoreCredentials) Token() (string, bool) {
	if c.Store == nil {
		return "", false
	}
	b, ok, err := c.Store.Get(KeyAccessToken)
	if err != nil {
		log.Warn().Err(err).Msg("read access token")
		return "", false
	}
	t := strings.TrimSpace(string(b))
	return t, ok && t != ""
}

// Chain returns the first token any provider has.
type Chain []CredentialProvider

func (c Chain) Token() (string, bool) {
	for _, p := range c {
		if p == nil {
			continue
		}
		if t, ok := p.Token(); ok {
			return t, true
		}
	}
	return "", false
}

func SaveLogin(s Store, token, userName string) error {
	if err := s.Set(KeyAccessToken, []byte(strings.TrimSpace(token))); err != nil {
		return err
	}
	if userName == "" {
		return nil
	}
	return s.Set(KeyUserName, []byte(userName))
}

// PurgeLogin forgets the credential keys.
func PurgeLogin(s Store) error {
	for _, key := range []string{KeyAccessToken, KeyUserName} {
		if err := s.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
