// Package jwttoken verifies the bearer tokens minted by the external identity
// service and turns their claims into a domain.Principal.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

// Claims carries the caller's identity and position in the hierarchy.
// The principal id travels in the registered "sub" claim; Course is the
// teaching subject and uses the "subject" key.
type Claims struct {
	Role         string `json:"role"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	CollegeID    string `json:"college_id,omitempty"`
	DepartmentID string `json:"department_id,omitempty"`
	Year         string `json:"year,omitempty"`
	Section      string `json:"section,omitempty"`
	Course       string `json:"subject,omitempty"`
	jwt.RegisteredClaims
}

// JWTService validates HS256 access tokens. GenerateAccessToken exists for
// local development and tests; production tokens come from the identity service.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

func (s *JWTService) GenerateAccessToken(p id.Principal, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:    string(p.Role),
		Name:    p.Name,
		Email:   p.Email,
		Year:    p.Year,
		Section: p.Section,
		Course:  p.Subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	}
	if s.audience != "" {
		claims.Audience = []string{s.audience}
	}
	if !p.CollegeID.IsNil() {
		claims.CollegeID = p.CollegeID.String()
	}
	if !p.DepartmentID.IsNil() {
		claims.DepartmentID = p.DepartmentID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Principal converts validated claims into a domain principal.
func (c *Claims) Principal() (id.Principal, error) {
	principalID, err := id.ParsePrincipalID(c.RegisteredClaims.Subject)
	if err != nil {
		return id.Principal{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid subject claim")
	}
	role, err := id.ParseRole(c.Role)
	if err != nil {
		return id.Principal{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid role claim")
	}
	p := id.Principal{
		ID:      principalID,
		Name:    c.Name,
		Email:   c.Email,
		Role:    role,
		Year:    c.Year,
		Section: c.Section,
		Subject: c.Course,
	}
	if c.CollegeID != "" {
		if p.CollegeID, err = id.ParseCollegeID(c.CollegeID); err != nil {
			return id.Principal{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid college claim")
		}
	}
	if c.DepartmentID != "" {
		if p.DepartmentID, err = id.ParseDepartmentID(c.DepartmentID); err != nil {
			return id.Principal{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid department claim")
		}
	}
	return p, nil
}
