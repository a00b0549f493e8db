package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// authService implements the AuthService interface for a fixed set of API clients
type authService struct {
	clients     map[string]domain.APIClient
	authAdapter driven.AuthAdapter
	tokenTTL    time.Duration
}

// NewAuthService creates a new AuthService.
// Clients are configured at startup; tokens are stateless JWTs.
func NewAuthService(clients []domain.APIClient, authAdapter driven.AuthAdapter, tokenTTL time.Duration) driving.AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	byID := make(map[string]domain.APIClient, len(clients))
	for _, c := range clients {
		if c.ID == "" || c.SecretHash == "" {
			continue
		}
		byID[c.ID] = c
	}
	return &authService{
		clients:     byID,
		authAdapter: authAdapter,
		tokenTTL:    tokenTTL,
	}
}

// IssueToken exchanges client credentials for a signed token
func (s *authService) IssueToken(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error) {
	if req.ClientID == "" || req.ClientSecret == "" {
		return nil, domain.ErrInvalidInput
	}

	client, ok := s.clients[req.ClientID]
	if !ok || !s.authAdapter.VerifySecret(req.ClientSecret, client.SecretHash) {
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	token, err := s.authAdapter.GenerateToken(&domain.TokenClaims{
		ClientID:  client.ID,
		Role:      client.Role,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return nil, err
	}

	return &domain.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Role:      client.Role,
	}, nil
}

// ValidateToken validates a token and returns the auth context
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.authAdapter.ParseToken(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	if time.Now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}

	// A client removed from configuration loses access immediately
	client, ok := s.clients[claims.ClientID]
	if !ok {
		return nil, domain.ErrTokenInvalid
	}

	return &domain.AuthContext{
		ClientID: client.ID,
		Role:     client.Role,
	}, nil
}
