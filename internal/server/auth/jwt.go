// Package auth issues and verifies the HS256 access and refresh tokens that
// make up a session.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

type Kind int

const (
	AccessToken Kind = iota
	RefreshToken
)

func (k Kind) String() string {
	if k == RefreshToken {
		return "refresh"
	}
	return "access"
}

// Claims carries the user identity. Refresh tokens only set UserID.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"id"`
	Email    string `json:"email,omitempty"`
	UserName string `json:"username,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

type Config struct {
	AccessSecret  []byte
	AccessExpiry  time.Duration
	RefreshSecret []byte
	RefreshExpiry time.Duration
}

type Issuer struct {
	cfg Config
	now func() time.Time
}

func NewIssuer(cfg Config) *Issuer {
	return &Issuer{cfg: cfg, now: time.Now}
}

func (i *Issuer) IssueAccessToken(u *models.User) (string, error) {
	return i.sign(Claims{
		UserID:   u.ID,
		Email:    u.Email,
		UserName: u.UserName,
		FullName: u.FullName,
	}, i.cfg.AccessSecret, i.cfg.AccessExpiry)
}

func (i *Issuer) IssueRefreshToken(u *models.User) (string, error) {
	return i.sign(Claims{UserID: u.ID}, i.cfg.RefreshSecret, i.cfg.RefreshExpiry)
}

func (i *Issuer) sign(claims Claims, secret []byte, ttl time.Duration) (string, error) {
	// jti keeps two tokens minted in the same second distinct.
	jti, err := common.MakeRandHexString(16)
	if err != nil {
		return "", fmt.Errorf("%w: token id: %v", common.ErrInternal, err)
	}

	now := i.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", common.ErrInternal, err)
	}
	return token, nil
}

// Verify checks the signature with the secret for kind and the expiry. Any
// failure wraps common.ErrInvalidToken and exactly one reason sentinel.
func (i *Issuer) Verify(tokenString string, kind Kind) (*Claims, error) {
	secret := i.cfg.AccessSecret
	if kind == RefreshToken {
		secret = i.cfg.RefreshSecret
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, invalid(reason(err))
	}
	if claims.UserID == "" {
		return nil, invalid(common.ErrTokenMalformed)
	}

	return claims, nil
}

func reason(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return common.ErrTokenSignatureMismatch
	default:
		return common.ErrTokenMalformed
	}
}

func invalid(reason error) error {
	return fmt.Errorf("%w: %w", common.ErrInvalidToken, reason)
}

// ExpiredOrInvalid collapses a verification error to common.ErrTokenExpired
// or common.ErrInvalidToken, for callers that only tell the two apart.
func ExpiredOrInvalid(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrTokenExpired):
		return common.ErrTokenExpired
	default:
		return common.ErrInvalidToken
	}
}
