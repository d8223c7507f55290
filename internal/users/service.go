package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	sharedauth "careerpilot-backend/internal/shared/auth"
	"careerpilot-backend/internal/shared/telemetry"
)

// AdminCredentials are the configured operator login.
type AdminCredentials struct {
	Email    string
	Password string
}

type Service struct {
	Repo  Repo
	Admin AdminCredentials
	Now   func() time.Time
}

func NewService(repo Repo, admin AdminCredentials) *Service {
	return &Service{Repo: repo, Admin: admin}
}

// Register validates and stores a password account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	if err := s.ready(); err != nil {
		return User{}, err
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validateRegister(in); err != nil {
		return User{}, err
	}

	if _, err := s.Repo.GetByEmail(ctx, in.Email); err == nil {
		return User{}, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	if _, err := s.Repo.GetByPhone(ctx, in.Phone); err == nil {
		return User{}, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := sharedauth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	now := s.now()
	user := User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	telemetry.Info("users.registered", map[string]any{"user_id": user.ID})
	return user, nil
}

// Login checks a password against the account found by email or phone and issues a JWT.
func (s *Service) Login(ctx context.Context, in LoginInput) (string, User, error) {
	if err := s.ready(); err != nil {
		return "", User{}, err
	}
	identifier := strings.TrimSpace(in.Identifier)
	if identifier == "" || in.Password == "" {
		return "", User{}, ErrInvalidCredentials
	}

	var (
		user User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.Repo.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.Repo.GetByPhone(ctx, identifier)
	}
	if errors.Is(err, ErrNotFound) {
		return "", User{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", User{}, err
	}
	if user.PasswordHash == "" {
		return "", User{}, ErrInvalidCredentials
	}
	if err := sharedauth.CheckPassword(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, sharedauth.ErrPasswordMismatch) {
			return "", User{}, ErrInvalidCredentials
		}
		return "", User{}, err
	}

	token, err := sharedauth.SignJWT(sharedauth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Name:  user.Username,
	})
	if err != nil {
		return "", User{}, err
	}
	return token, user, nil
}

// AdminLogin compares against the configured admin credentials in constant time.
func (s *Service) AdminLogin(in AdminLoginInput) (string, error) {
	if s == nil || s.Admin.Email == "" || s.Admin.Password == "" {
		return "", ErrInvalidCredentials
	}
	emailOK := sharedauth.ConstantTimeEqual(strings.ToLower(strings.TrimSpace(in.Email)), strings.ToLower(s.Admin.Email))
	passOK := sharedauth.ConstantTimeEqual(in.Password, s.Admin.Password)
	if !emailOK || !passOK {
		telemetry.Warn("users.admin_login.rejected", map[string]any{})
		return "", ErrInvalidCredentials
	}
	return sharedauth.SignJWT(sharedauth.Claims{
		Sub:   "admin:" + strings.ToLower(s.Admin.Email),
		Email: s.Admin.Email,
		Role:  sharedauth.RoleAdmin,
	})
}

// UpsertFromAuth persists an OAuth identity. An existing account with the
// same email keeps its ID so history stays attached to it.
func (s *Service) UpsertFromAuth(ctx context.Context, user User) (User, error) {
	if err := s.ready(); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return User{}, errors.New("user id and email are required")
	}
	existing, err := s.Repo.GetByEmail(ctx, user.Email)
	switch {
	case err == nil:
		user.ID = existing.ID
	case !errors.Is(err, ErrNotFound):
		return User{}, err
	}
	if err := s.Repo.Upsert(ctx, user); err != nil {
		return User{}, err
	}
	return s.Repo.GetByID(ctx, user.ID)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if err := s.ready(); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, userID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, userID); err != nil {
		return err
	}
	telemetry.Info("users.deleted", map[string]any{"user_id": userID})
	return nil
}

func (s *Service) ready() error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
