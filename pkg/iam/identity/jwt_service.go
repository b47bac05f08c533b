package identity

import (
	"fmt"

	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
)

const sessionAudience = "relay-session"

// JWTService implements TokenService with HS256-signed tokens. The token only
// names a session; revocation lives in the session record.
type JWTService struct {
	secretKey []byte
	issuer    string
}

func NewJWTService(secretKey string, issuer string) *JWTService {
	if issuer == "" {
		issuer = "relay"
	}
	return &JWTService{
		secretKey: []byte(secretKey),
		issuer:    issuer,
	}
}

// JWTClaims are the custom claims embedded in session tokens
type JWTClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IssueSessionToken signs a token for session. The token expires with it.
func (j *JWTService) IssueSessionToken(session Session) (string, error) {
	claims := JWTClaims{
		Email: session.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Issuer:    j.issuer,
			Subject:   session.SubjectID.String(),
			Audience:  []string{sessionAudience},
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			NotBefore: jwt.NewNumericDate(session.CreatedAt),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", ErrTokenGenerationFailed().WithCause(err)
	}

	return tokenString, nil
}

// ValidateSessionToken checks signature, issuer, audience and expiry.
func (j *JWTService) ValidateSessionToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	},
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(sessionAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrTokenValidationFailed().WithDetail("error", err.Error())
	}

	if !token.Valid {
		return nil, ErrTokenValidationFailed().WithDetail("error", "token is invalid")
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || claims.ID == "" || claims.Subject == "" {
		return nil, ErrTokenValidationFailed().WithDetail("error", "invalid claims")
	}

	out := &TokenClaims{
		SessionID: claims.ID,
		SubjectID: kernel.NewSubjectID(claims.Subject),
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
