package driving

import (
	"context"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
)

// AuthService issues and validates API tokens
type AuthService interface {
	// IssueToken exchanges client credentials for a signed token
	IssueToken(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error)

	// ValidateToken validates a token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)
}
