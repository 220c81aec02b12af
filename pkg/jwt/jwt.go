package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role identifies which kind of account a token was issued to
type Role string

const (
	RoleOrganization Role = "organization"
	RoleEmployee     Role = "employee"
)

const issuer = "safeqr-emergency"

// ErrTokenExpired is wrapped by ValidateAccessToken for expired tokens
var ErrTokenExpired = jwt.ErrTokenExpired

// Claims represents the JWT claims structure
type Claims struct {
	SubjectID      uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Role           Role      `json:"role"`
	jwt.RegisteredClaims
}

// Service handles JWT operations
type Service struct {
	secret      string
	tokenExpiry time.Duration
}

// NewService creates a new JWT service
func NewService(secret string, expiry time.Duration) *Service {
	return &Service{
		secret:      secret,
		tokenExpiry: expiry,
	}
}

// GenerateAccessToken issues a signed token for an organization or employee.
// For organizations subjectID and organizationID are the same.
func (s *Service) GenerateAccessToken(subjectID, organizationID uuid.UUID, role Role) (string, error) {
	now := time.Now()
	claims := Claims{
		SubjectID:      subjectID,
		OrganizationID: organizationID,
		Role:           role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   subjectID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// ValidateAccessToken validates and parses an access token
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	switch claims.Role {
	case RoleOrganization, RoleEmployee:
	default:
		return nil, fmt.Errorf("invalid token role: %q", claims.Role)
	}

	return claims, nil
}

// TokenExpiry returns how long issued tokens stay valid
func (s *Service) TokenExpiry() time.Duration {
	return s.tokenExpiry
}
