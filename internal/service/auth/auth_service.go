package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"team-governance/internal/domain"
	"team-governance/internal/service"
	"team-governance/pkg/errors"
	"team-governance/pkg/logger"
)

// Claims are the registered JWT claims plus the profile fields a principal carries
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Service verifies HS256 bearer tokens
type Service struct {
	secret []byte
	issuer string
	now    func() time.Time
	logger *logger.Logger
}

var _ service.IdentityProvider = (*Service)(nil)

// NewService creates a new auth service. An empty issuer disables the iss check.
func NewService(secret, issuer string, logger *logger.Logger) *Service {
	return &Service{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
		logger: logger,
	}
}

// Verify validates the token signature, expiry and issuer and returns the
// principal named by its subject
func (s *Service) Verify(ctx context.Context, tokenString string) (*domain.Principal, error) {
	if tokenString == "" {
		return nil, errors.NewAuthenticationError("Token is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		s.logger.WithError(err).Debug("JWT validation failed")
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.NewAuthenticationError("Token has expired")
		}
		return nil, errors.NewAuthenticationError("Invalid JWT token")
	}

	if claims.Subject == "" {
		s.logger.Debug("No subject in JWT token")
		return nil, errors.NewAuthenticationError("Invalid JWT token: no user identifier")
	}

	return &domain.Principal{
		ID:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
	}, nil
}

// IssueToken signs a token for principal valid for ttl. Used by tooling and tests.
func (s *Service) IssueToken(principal domain.Principal, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Name:  principal.Name,
		Email: principal.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.NewInternalError("Failed to sign token", err)
	}
	return signed, nil
}
