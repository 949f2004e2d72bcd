// Package auth models caller identity for the marketplace. The shipped
// Authenticator trusts caller-supplied headers with no verification; it
// exists behind an interface so real authentication can replace it
// without touching handlers or the lifecycle service.
package auth

import (
	"net/http"

	"go.uber.org/fx"

	"github.com/harvest-finance/harvest/internal/entity"
	"github.com/harvest-finance/harvest/pkg/errorbank"
)

// Headers carrying the trusted identity claims.
const (
	HeaderRole      = "x-user-role"
	HeaderUserID    = "x-user-id"
	HeaderUserName  = "x-user-name"
	HeaderPublicKey = "x-user-public-key"
)

// Identity describes the authenticated caller.
type Identity struct {
	ID        string
	Name      string
	PublicKey string
	Role      entity.Role
}

// Authenticator resolves a caller identity from an inbound request.
type Authenticator interface {
	Authenticate(h http.Header) (Identity, error)
}

// Module provides the header-trust authenticator to Fx.
var Module = fx.Provide(NewHeaderAuthenticator)

// HeaderAuthenticator reads identity claims verbatim from request
// headers. There is no cryptographic verification; do not deploy this in
// front of untrusted callers without a real authentication layer.
type HeaderAuthenticator struct{}

// NewHeaderAuthenticator constructs the header-trust authenticator.
func NewHeaderAuthenticator() Authenticator {
	return HeaderAuthenticator{}
}

// Authenticate extracts the identity or fails with an unauthorized error
// when role or user id are missing or the role is unknown.
func (HeaderAuthenticator) Authenticate(h http.Header) (Identity, error) {
	role := entity.Role(h.Get(HeaderRole))
	userID := h.Get(HeaderUserID)

	if role == "" || userID == "" {
		return Identity{}, errorbank.Unauthorized("missing identity headers")
	}
	if !entity.ValidRole(role) {
		return Identity{}, errorbank.Unauthorized("unknown role")
	}

	return Identity{
		ID:        userID,
		Name:      h.Get(HeaderUserName),
		PublicKey: h.Get(HeaderPublicKey),
		Role:      role,
	}, nil
}

// Require verifies the identity holds the given role, failing with a
// forbidden error otherwise.
func Require(id Identity, role entity.Role) error {
	if id.Role != role {
		return errorbank.Forbidden("operation not permitted for role",
			errorbank.WithDetail("required_role", string(role)))
	}
	return nil
}
