// Package authn issues and verifies the JWTs Cognito-shaped operations
// hand back (InitiateAuth's IdToken/AccessToken), adapted from the
// teacher's own authn package: same golang-jwt/jwt/v4 HMAC signing and
// Token/claims shape, now keyed to a store.UserPool user instead of an
// AIStore cluster/bucket ACL.
package authn

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/NVIDIA/cloudemu/cmn"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Token is the decoded claims of one issued session token.
type Token struct {
	UserPoolID string    `json:"user_pool_id"`
	Username   string    `json:"username"`
	Groups     []string  `json:"groups,omitempty"`
	Expires    time.Time `json:"expires"`
	Token      string    `json:"-"`
}

const defaultTTL = time.Hour

// Issuer signs and verifies tokens with a process-lifetime HMAC secret —
// the emulator never persists it, so a restart invalidates every
// previously issued token (acceptable: spec.md's Non-goals exclude "full
// IAM policy evaluation", and this is a local, single-tenant emulator).
type Issuer struct {
	secret []byte
}

func NewIssuer() *Issuer {
	return &Issuer{secret: []byte(cmn.GenUUID() + cmn.GenUUID())}
}

// Issue mints a signed token for (poolID, username), stamped with groups,
// backing InitiateAuth/AdminInitiateAuth's IdToken and AccessToken.
func (is *Issuer) Issue(poolID, username string, groups []string) (*Token, error) {
	expires := time.Now().Add(defaultTTL)
	claims := jwt.MapClaims{
		"user_pool_id": poolID,
		"username":     username,
		"groups":       groups,
		"exp":          expires.Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(is.secret)
	if err != nil {
		return nil, err
	}
	return &Token{UserPoolID: poolID, Username: username, Groups: groups, Expires: expires, Token: signed}, nil
}

// Verify decodes and validates a signed token string.
func (is *Issuer) Verify(tokenStr string) (*Token, error) {
	parsed, err := jwt.Parse(tokenStr, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tk.Header["alg"])
		}
		return is.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	poolID, _ := claims["user_pool_id"].(string)
	username, _ := claims["username"].(string)
	expUnix, _ := claims["exp"].(float64)
	expires := time.Unix(int64(expUnix), 0)
	if expires.Before(time.Now()) {
		return nil, ErrTokenExpired
	}
	var groups []string
	if raw, ok := claims["groups"].([]interface{}); ok {
		for _, g := range raw {
			if s, ok := g.(string); ok {
				groups = append(groups, s)
			}
		}
	}
	return &Token{UserPoolID: poolID, Username: username, Groups: groups, Expires: expires, Token: tokenStr}, nil
}
