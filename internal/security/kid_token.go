package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// KidSessionCookie is the cookie carrying a signed kid session token
const KidSessionCookie = "lunara_kid_session"

var ErrInvalidKidToken = errors.New("invalid kid session token")

// KidClaims are the claims of a kid session token
type KidClaims struct {
	KidID    int64  `json:"kid_id"`
	FamilyID int64  `json:"family_id"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// KidTokens issues and verifies short-lived HS256 kid session tokens
type KidTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewKidTokens creates a token issuer
func NewKidTokens(secret string, ttl time.Duration) *KidTokens {
	return &KidTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns how long issued tokens stay valid
func (k *KidTokens) TTL() time.Duration {
	return k.ttl
}

// Issue signs a token for the kid
func (k *KidTokens) Issue(kidID, familyID int64, name string) (string, time.Time, error) {
	now := k.now()
	expires := now.Add(k.ttl)
	claims := KidClaims{
		KidID:    kidID,
		FamilyID: familyID,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(kidID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign kid token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses and validates a token, returning its claims
func (k *KidTokens) Verify(token string) (*KidClaims, error) {
	claims := &KidClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return k.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(k.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKidToken, err)
	}
	if !parsed.Valid || claims.KidID == 0 {
		return nil, ErrInvalidKidToken
	}
	return claims, nil
}
