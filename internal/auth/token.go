package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

var (
	ErrTokenEmpty   = errors.New("auth: token is empty")
	ErrTokenInvalid = errors.New("auth: token is invalid")
	ErrTokenExpired = errors.New("auth: token expired")
)

// Claims are the parts of an access token this service relies on.
type Claims struct {
	UserID    string
	ExpiresAt int64
}

type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret []byte, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Verifier{secret: key, now: now}
}

// Verify checks signature and expiry. An expired but otherwise valid token
// returns its claims together with ErrTokenExpired so callers can refresh.
func (v *Verifier) Verify(tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, ErrTokenEmpty
	}

	parser := &jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return Claims{}, ErrTokenInvalid
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("%w: claims of unexpected type", ErrTokenInvalid)
	}

	exp, ok := mapClaims["exp"].(float64)
	if !ok {
		return Claims{}, fmt.Errorf("%w: exp claim required", ErrTokenInvalid)
	}
	userID, _ := mapClaims["user_id"].(string)
	if userID == "" {
		return Claims{}, fmt.Errorf("%w: user_id claim required", ErrTokenInvalid)
	}

	claims := Claims{UserID: userID, ExpiresAt: int64(exp)}
	if v.now().Unix() >= claims.ExpiresAt {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

// CreateToken signs an HS256 access token. Production tokens come from the
// auth service; this is used by the dev tooling and tests.
func CreateToken(secret []byte, userID string, expiresAt time.Time) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("create token: user id required")
	}
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(15 * time.Minute)
	}

	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
