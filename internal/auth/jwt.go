package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"questlog/internal/identity"
)

const tokenTTL = 7 * 24 * time.Hour

type JWT struct {
	secret []byte
	now    func() time.Time
}

func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret), now: time.Now}
}

// Sign issues a token whose sub is the actor id and whose role claim is the
// actor's role.
func (j *JWT) Sign(a identity.Actor) (string, error) {
	now := j.now()
	claims := jwt.MapClaims{
		"sub":  a.ID,
		"role": string(a.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(j.secret)
}

func (j *JWT) Verify(tokenStr string) (identity.Actor, error) {
	t, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil || !t.Valid {
		return identity.Actor{}, errors.New("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return identity.Actor{}, errors.New("invalid claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return identity.Actor{}, errors.New("missing sub")
	}
	role, _ := claims["role"].(string)
	if !identity.Role(role).IsValid() {
		return identity.Actor{}, errors.New("invalid role")
	}
	return identity.Actor{ID: sub, Role: identity.Role(role)}, nil
}
