package service

import (
    "errors"
    "time"

    "github.com/iliyamo/place-reservation/internal/utils"
)

// TokenTTL is the fixed lifetime of an access token.
const TokenTTL = 60 * time.Minute

// CredentialConfig carries the key material resolved at startup.
type CredentialConfig struct {
    SigningKey []byte
    BcryptCost int
    // Now overrides the clock; nil means time.Now.
    Now func() time.Time
}

// CredentialService hashes passwords and issues and validates access tokens.
// It holds no mutable state and is safe for concurrent use.
type CredentialService struct {
    key  []byte
    cost int
    now  func() time.Time
}

// NewCredentialService fails when no signing key is configured.
func NewCredentialService(cfg CredentialConfig) (*CredentialService, error) {
    if len(cfg.SigningKey) == 0 {
        return nil, errors.New("credential service: empty signing key")
    }
    now := cfg.Now
    if now == nil {
        now = time.Now
    }
    key := make([]byte, len(cfg.SigningKey))
    copy(key, cfg.SigningKey)
    return &CredentialService{key: key, cost: cfg.BcryptCost, now: now}, nil
}

func (c *CredentialService) Hash(password string) (string, error) {
    return utils.HashPassword(password, c.cost)
}

func (c *CredentialService) Verify(hash, password string) bool {
    return utils.VerifyPassword(hash, password)
}

// IssueToken signs a token for subject that expires TokenTTL from now.
func (c *CredentialService) IssueToken(subject, role string) (utils.AccessToken, error) {
    return utils.NewAccessToken(c.key, subject, role, TokenTTL, c.now())
}

// ValidateToken returns the token claims, or utils.ErrTokenExpired /
// utils.ErrTokenInvalid.
func (c *CredentialService) ValidateToken(raw string) (utils.AccessClaims, error) {
    return utils.ParseAccessToken(c.key, raw)
}
