package delivery

import (
	"os"
	"strings"
)

// TokenSource resolves the messaging credential for a page. Implementations
// act as the boundary to whatever secret store holds page tokens.
type TokenSource interface {
	// PageToken returns the access token for the page, or "" when none is
	// configured.
	PageToken(pageID string) string
}

// EnvTokenSource resolves page tokens from environment variables named
// <prefix><pageID>, e.g. PAGE_TOKEN_17841401234567890.
type EnvTokenSource struct {
	prefix string
}

// NewEnvTokenSource creates a token source reading from the environment.
func NewEnvTokenSource(prefix string) *EnvTokenSource {
	return &EnvTokenSource{prefix: prefix}
}

func (s *EnvTokenSource) PageToken(pageID string) string {
	return strings.TrimSpace(os.Getenv(s.prefix + pageID))
}

// validToken rejects credentials that cannot possibly work so we never
// burn a send attempt on them.
func validToken(token string) bool {
	if len(token) < 16 {
		return false
	}
	return !strings.ContainsAny(token, " \t\n")
}

var _ TokenSource = (*EnvTokenSource)(nil)
