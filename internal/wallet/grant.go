package wallet

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultGrantTTL bounds how long a connect approval is remembered.
const DefaultGrantTTL = 30 * 24 * time.Hour

type grantFile struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GrantStore persists site authorizations as HS256 JWTs (sub=account, aud=site).
type GrantStore struct {
	dir string
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewGrantStore builds a store rooted at dir. key signs and verifies grants.
func NewGrantStore(dir string, key []byte, ttl time.Duration) *GrantStore {
	if ttl <= 0 {
		ttl = DefaultGrantTTL
	}
	return &GrantStore{dir: dir, key: key, ttl: ttl, now: time.Now}
}

func (g *GrantStore) path(addr common.Address) string {
	return filepath.Join(g.dir, "grant-"+strings.ToLower(addr.Hex())+".json")
}

// Issue signs and saves a grant for (addr, site).
func (g *GrantStore) Issue(addr common.Address, site string) (time.Time, error) {
	now := g.now()
	exp := now.Add(g.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   addr.Hex(),
		Audience:  jwt.ClaimStrings{site},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.key)
	if err != nil {
		return time.Time{}, err
	}

	if err := os.MkdirAll(g.dir, 0o700); err != nil {
		return time.Time{}, err
	}
	b, err := json.MarshalIndent(grantFile{Token: signed, ExpiresAt: exp}, "", "  ")
	if err != nil {
		return time.Time{}, err
	}
	return exp, os.WriteFile(g.path(addr), b, 0o600)
}

// Valid reports whether a live grant for (addr, site) exists. A missing file is not an error.
func (g *GrantStore) Valid(addr common.Address, site string) (bool, error) {
	b, err := os.ReadFile(g.path(addr))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var gf grantFile
	if err := json.Unmarshal(b, &gf); err != nil {
		return false, err
	}
	_, err = jwt.ParseWithClaims(gf.Token, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return g.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(site),
		jwt.WithSubject(addr.Hex()),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	return err == nil, nil
}

// Revoke forgets the grant for addr.
func (g *GrantStore) Revoke(addr common.Address) error {
	err := os.Remove(g.path(addr))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
