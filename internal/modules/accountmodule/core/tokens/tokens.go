// Package tokens issues the signed links used for account activation and
// password reset. A token is bound to the account's current state, so it
// stops working once that state changes.
package tokens

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mantonx/streamhub/internal/database"
)

// Purpose scopes a token to one flow
type Purpose string

const (
	PurposeActivate Purpose = "activate"
	PurposeReset    Purpose = "reset"
)

// ErrInvalidToken is returned for every verification failure
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims of an account token
type Claims struct {
	Purpose     Purpose `json:"purpose"`
	Fingerprint string  `json:"fp"`
	jwt.RegisteredClaims
}

// Generator signs and verifies account tokens with HS256
type Generator struct {
	secret []byte
	now    func() time.Time
}

// NewGenerator creates a generator for the given secret
func NewGenerator(secret string) *Generator {
	return &Generator{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy of the generator using now as its time source
func (g *Generator) WithClock(now func() time.Time) *Generator {
	return &Generator{secret: g.secret, now: now}
}

// Make issues a token for the account valid for ttl
func (g *Generator) Make(account *database.Account, purpose Purpose, ttl time.Duration) (string, error) {
	issued := g.now()
	claims := Claims{
		Purpose:     purpose,
		Fingerprint: Fingerprint(account),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(account.ID), 10),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Check verifies signature, expiry, purpose, subject and fingerprint
func (g *Generator) Check(account *database.Account, purpose Purpose, token string) error {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Purpose != purpose {
		return fmt.Errorf("%w: wrong purpose", ErrInvalidToken)
	}
	if claims.Subject != strconv.FormatUint(uint64(account.ID), 10) {
		return fmt.Errorf("%w: wrong subject", ErrInvalidToken)
	}
	if subtle.ConstantTimeCompare([]byte(claims.Fingerprint), []byte(Fingerprint(account))) != 1 {
		return fmt.Errorf("%w: account state changed", ErrInvalidToken)
	}
	return nil
}

// Fingerprint hashes the account state a token is bound to: password hash,
// active flag and last login.
func Fingerprint(account *database.Account) string {
	var lastLogin int64
	if account.LastLogin != nil {
		lastLogin = account.LastLogin.Unix()
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s:%t:%d",
		account.ID, account.PasswordHash, account.IsActive, lastLogin)))
	return hex.EncodeToString(sum[:])
}

// EncodeUID renders an account id for use in a link
func EncodeUID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

// DecodeUID reverses EncodeUID
func DecodeUID(uidb64 string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uidb64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad uid encoding", ErrInvalidToken)
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad uid", ErrInvalidToken)
	}
	return uint(id), nil
}
