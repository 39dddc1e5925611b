package utils // package utils provides helper functions for token creation and hashing

import (
    "errors"
    "fmt"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

var (
    // ErrTokenInvalid covers malformed tokens, bad signatures and missing claims.
    ErrTokenInvalid = errors.New("invalid token")
    // ErrTokenExpired is returned for a well-formed token past its exp claim.
    ErrTokenExpired = errors.New("token expired")
)

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// AccessClaims are the claims carried by an access token.  Subject is the
// username; the token never embeds the numeric user id.
type AccessClaims struct {
    Subject   string
    Role      string
    IssuedAt  time.Time
    ExpiresAt time.Time
}

// NewAccessToken builds and signs an HS256 JWT.  The claims are sub (the
// username), role, exp and iat.  now is passed in so callers can pin the
// clock in tests.
func NewAccessToken(secret []byte, subject, role string, ttl time.Duration, now time.Time) (AccessToken, error) {
    if len(secret) == 0 {
        return AccessToken{}, errors.New("empty signing key")
    }
    now = now.UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sub":  subject,
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString(secret)
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies the signature and expiry of raw and returns its
// claims.  Only HS256 is accepted.
func ParseAccessToken(secret []byte, raw string) (AccessClaims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        return secret, nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
    if err != nil {
        if errors.Is(err, jwt.ErrTokenExpired) {
            return AccessClaims{}, ErrTokenExpired
        }
        return AccessClaims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
    }
    mc, ok := tok.Claims.(jwt.MapClaims)
    if !ok || !tok.Valid {
        return AccessClaims{}, ErrTokenInvalid
    }

    sub, err := mc.GetSubject()
    if err != nil || sub == "" {
        return AccessClaims{}, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
    }
    role, _ := mc["role"].(string)

    out := AccessClaims{Subject: sub, Role: role}
    if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
        out.ExpiresAt = exp.Time.UTC()
    }
    if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
        out.IssuedAt = iat.Time.UTC()
    }
    return out, nil
}
