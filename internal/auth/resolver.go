package auth

import (
	"context"
	"strings"

	"github.com/deskline/ticket-tracker/internal/domain"
	apperrors "github.com/deskline/ticket-tracker/pkg/util/errorutil"
)

// Resolver turns bearer tokens into principals.
type Resolver struct {
	tokens  *TokenManager
	revoked RevocationStore
}

// NewResolver constructs a resolver. revoked may be nil.
func NewResolver(tokens *TokenManager, revoked RevocationStore) *Resolver {
	return &Resolver{tokens: tokens, revoked: revoked}
}

// Resolve returns the principal for token. Missing, malformed, expired and
// revoked tokens yield domain.Anonymous with a nil error; an error is returned
// only when the revocation store cannot be consulted.
func (r *Resolver) Resolve(ctx context.Context, token string) (domain.Principal, error) {
	claims, err := r.Claims(ctx, token)
	if err != nil || claims == nil {
		return domain.Anonymous, err
	}
	return domain.NewPrincipal(claims.Subject), nil
}

// Claims is Resolve but keeps the parsed claims, which sign-out needs.
func (r *Resolver) Claims(ctx context.Context, token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	claims, err := r.tokens.ParseToken(token)
	if err != nil {
		return nil, nil
	}
	if r.revoked != nil && claims.ID != "" {
		revoked, err := r.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, apperrors.NewStoreUnavailable(err)
		}
		if revoked {
			return nil, nil
		}
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
