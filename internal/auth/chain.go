package auth

import (
	"strings"

	"github.com/jason-s-yu/spyparty/internal/game"
	"github.com/jason-s-yu/spyparty/internal/models"
)

// Verifier turns an opaque credential into a verified identity.
type Verifier interface {
	Verify(raw string) (models.User, error)
}

// Credentials are the two ways a request can identify its caller.
type Credentials struct {
	// Authorization is the raw Authorization header.
	Authorization string
	InitData      string
}

// Chain checks a bearer token first and falls back to initData.
type Chain struct {
	Token    Verifier
	InitData Verifier
}

// Authenticate returns the caller identified by c.
func (c Chain) Authenticate(creds Credentials) (models.User, error) {
	if token, ok := bearer(creds.Authorization); ok && c.Token != nil {
		return c.Token.Verify(token)
	}
	if creds.InitData == "" || c.InitData == nil {
		return models.User{}, game.Unauthorized("initData required")
	}
	return c.InitData.Verify(creds.InitData)
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
