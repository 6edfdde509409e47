package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenScopeMismatch = errors.New("token scope mismatch")
)

// Scope is the (issuer, audience) pair that binds a token to one operation
// class, plus the lifetime used at issue time. Session and reset tokens share
// one shape and one verify path; only the scope separates them.
type Scope struct {
	Issuer   string
	Audience string
	TTL      time.Duration
}

var (
	SessionScope = Scope{Issuer: "login", Audience: "users", TTL: 7 * 24 * time.Hour}
	ResetScope   = Scope{Issuer: "forget", Audience: "users", TTL: 30 * time.Minute}
)

type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SubjectID parses the subject back into the numeric user id.
func (c *Claims) SubjectID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)

	if err != nil || id <= 0 {
		return 0, ErrTokenInvalid
	}

	return id, nil
}

// Manager signs and verifies claims-bearing tokens with a process-wide
// HS256 key. The key is loaded once at startup and never mutated.
type Manager struct {
	secret []byte
}

func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret)}
}

func (m *Manager) Issue(userID int64, name, email string, scope Scope) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		Name:  name,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    scope.Issuer,
			Audience:  jwt.ClaimStrings{scope.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(scope.TTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(m.secret)
}

// Verify checks signature and expiry, then checks the embedded issuer and
// audience against expected. A valid session token presented where a reset
// token is expected (or vice versa) fails with ErrTokenScopeMismatch.
func (m *Manager) Verify(raw string, expected Scope) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}

		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}

		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Issuer != expected.Issuer || !hasAudience(claims.Audience, expected.Audience) {
		return nil, ErrTokenScopeMismatch
	}

	return claims, nil
}

func hasAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}

	return false
}
