package service

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "golang.org/x/crypto/bcrypt"

    "github.com/iliyamo/place-reservation/internal/logging"
    "github.com/iliyamo/place-reservation/internal/model"
    "github.com/iliyamo/place-reservation/internal/repository"
    "github.com/iliyamo/place-reservation/internal/utils"
)

// UserStore is the user persistence the identity service needs.  Both
// repository.UserRepo and memory.Users satisfy it.
type UserStore interface {
    Create(ctx context.Context, u *model.User) error
    GetByUsername(ctx context.Context, username string) (*model.User, error)
    GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// IdentityService registers users and resolves them by credentials.
type IdentityService struct {
    users UserStore
    creds *CredentialService
    // decoy is verified against when the username is unknown so both miss
    // cases cost one bcrypt comparison.
    decoy string
}

func NewIdentityService(users UserStore, creds *CredentialService) (*IdentityService, error) {
    decoy, err := creds.Hash("decoy-password-for-unknown-users")
    if err != nil {
        return nil, fmt.Errorf("hash decoy password: %w", err)
    }
    return &IdentityService{users: users, creds: creds, decoy: decoy}, nil
}

// FindByUsername returns nil, nil when no user has that exact username.
func (s *IdentityService) FindByUsername(ctx context.Context, username string) (*model.User, error) {
    u, err := s.users.GetByUsername(ctx, username)
    if errors.Is(err, repository.ErrUserNotFound) {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return u, nil
}

// Authenticate returns the user when username exists and password verifies.
// An unknown user and a wrong password both yield nil, nil.
func (s *IdentityService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
    u, err := s.FindByUsername(ctx, username)
    if err != nil {
        return nil, err
    }
    if u == nil {
        s.creds.Verify(s.decoy, password)
        return nil, nil
    }
    if !s.creds.Verify(u.PasswordHash, password) {
        return nil, nil
    }
    return u, nil
}

// Register creates a user with role user.
func (s *IdentityService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
    // Usernames are stored exactly as given; login matches them exactly.
    email = strings.TrimSpace(email)
    if strings.TrimSpace(username) == "" || email == "" || password == "" {
        return nil, newError(ErrValidation, "username, email and password are required")
    }

    existing, err := s.FindByUsername(ctx, username)
    if err != nil {
        return nil, err
    }
    if existing != nil {
        return nil, newError(ErrValidation, "username already exists")
    }

    hash, err := s.creds.Hash(password)
    if errors.Is(err, bcrypt.ErrPasswordTooLong) {
        return nil, newError(ErrValidation, "password is too long")
    }
    if err != nil {
        return nil, err
    }

    u := &model.User{Username: username, Email: email, PasswordHash: hash, Role: model.RoleUser}
    switch err := s.users.Create(ctx, u); {
    case errors.Is(err, repository.ErrUsernameExists):
        return nil, newError(ErrValidation, "username already exists")
    case errors.Is(err, repository.ErrEmailExists):
        return nil, newError(ErrValidation, "email already registered")
    case err != nil:
        return nil, err
    }
    logging.FromContext(ctx).Info().Uint64("user_id", u.ID).Str("username", u.Username).Msg("user registered")
    return u, nil
}

// Login authenticates and issues an access token whose subject is the
// username.
func (s *IdentityService) Login(ctx context.Context, username, password string) (utils.AccessToken, error) {
    u, err := s.Authenticate(ctx, username, password)
    if err != nil {
        return utils.AccessToken{}, err
    }
    if u == nil {
        logging.FromContext(ctx).Info().Str("username", username).Msg("login rejected")
        return utils.AccessToken{}, newError(ErrInvalidCredentials, "invalid credentials")
    }
    return s.creds.IssueToken(u.Username, u.Role)
}

// UserForToken validates raw and resolves its subject.  It fails with
// utils.ErrTokenInvalid when the subject no longer exists.
func (s *IdentityService) UserForToken(ctx context.Context, raw string) (*model.User, error) {
    claims, err := s.creds.ValidateToken(raw)
    if err != nil {
        return nil, err
    }
    u, err := s.FindByUsername(ctx, claims.Subject)
    if err != nil {
        return nil, err
    }
    if u == nil {
        return nil, utils.ErrTokenInvalid
    }
    return u, nil
}
