package relay

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tandem/domain"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims はリレー接続用トークンのクレームです。Subject に AgentID が入ります。
type Claims struct {
	Team string `json:"team"`
	jwt.RegisteredClaims
}

// IssueToken は team に所属する id 用の HS256 トークンを発行します。
func IssueToken(secret []byte, team string, id domain.AgentID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Team: team,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Identity は検証済みトークンから取り出した接続元です。
type Identity struct {
	Team    string
	AgentID domain.AgentID
}

// ParseToken はトークンを検証し、チームと AgentID を返します。
func ParseToken(secret []byte, token string) (Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Team == "" {
		return Identity{}, fmt.Errorf("%w: empty team", ErrInvalidToken)
	}
	id, err := domain.ParseAgentID(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return Identity{Team: claims.Team, AgentID: id}, nil
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
