package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/anayu15/mi-gestor-sub003/internal/auth"
	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/repository"
)

var (
	ErrEmailExists        = repository.ErrEmailExists
	ErrAPIKeyNotFound     = repository.ErrAPIKeyNotFound
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAPIKeyRevoked      = errors.New("API key is already revoked")
)

// Key names given to keys the service issues on its own.
const (
	KeyNameDefault = "default"
	KeyNameSession = "session"
)

// AccountService registers users, logs them in and manages their API keys.
type AccountService struct {
	store  AccountStore
	keys   KeyInvalidator
	env    string
	logger *slog.Logger
}

// NewAccountService creates an AccountService. Keys are minted for env
// (auth.EnvLive or auth.EnvTest); keys may be nil when auth is not cached.
func NewAccountService(store AccountStore, keys KeyInvalidator, env string, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		keys:   keys,
		env:    env,
		logger: defaultLogger(logger, "accounts"),
	}
}

// IssuedKey is a newly minted key. Plaintext is only available here.
type IssuedKey struct {
	User      *model.User
	Key       *model.APIKey
	Plaintext string
}

// RegisterInput defines input for Register.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates a user and their first owner key.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*IssuedKey, error) {
	email := normalizeEmail(input.Email)
	fe := fieldErrors{}
	if email == "" {
		fe.add("email", "is required")
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		fe.add("password", err.Error())
	}
	if strings.TrimSpace(input.Name) == "" {
		fe.add("name", "is required")
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashSecret(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	ts := now()
	user := &model.User{
		ID:           generateID(),
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hash,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}

	key, plaintext, err := s.mint(user.ID, KeyNameDefault, model.OwnerScopes, model.TierStandard)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateUserWithAPIKey(ctx, user, key); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.Info("user_registered", "user_id", user.ID, "key_prefix", key.KeyPrefix)
	return &IssuedKey{User: user, Key: key, Plaintext: plaintext}, nil
}

// Login verifies email and password and issues a session key.
// Unknown emails and wrong passwords are indistinguishable.
func (s *AccountService) Login(ctx context.Context, email, password string) (*IssuedKey, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			auth.VerifyDummy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	ok, err := auth.VerifySecret(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	key, plaintext, err := s.mint(user.ID, KeyNameSession, model.OwnerScopes, model.TierStandard)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to create session key: %w", err)
	}

	s.logger.Info("user_logged_in", "user_id", user.ID, "key_prefix", key.KeyPrefix)
	return &IssuedKey{User: user, Key: key, Plaintext: plaintext}, nil
}

// CreateKeyInput defines input for CreateKey.
type CreateKeyInput struct {
	Name          string
	Scopes        []string
	RateLimitTier string
}

// CreateKey issues an additional key for the user.
func (s *AccountService) CreateKey(ctx context.Context, userID string, input CreateKeyInput) (*IssuedKey, error) {
	scopes := input.Scopes
	if len(scopes) == 0 {
		scopes = []string{model.ScopeRead}
	}
	for _, sc := range scopes {
		if !model.IsValidScope(sc) {
			return nil, invalid("scopes", fmt.Sprintf("unknown scope %q", sc))
		}
	}
	tier := input.RateLimitTier
	if tier == "" {
		tier = model.TierStandard
	}
	if _, ok := model.TierConfigs[tier]; !ok {
		return nil, invalid("rate_limit_tier", fmt.Sprintf("unknown tier %q", tier))
	}

	key, plaintext, err := s.mint(userID, strings.TrimSpace(input.Name), scopes, tier)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to create API key: %w", err)
	}

	s.logger.Info("api_key_created", "user_id", userID, "key_id", key.ID, "key_prefix", key.KeyPrefix)
	return &IssuedKey{Key: key, Plaintext: plaintext}, nil
}

// ListKeys returns the user's keys, revoked ones included.
func (s *AccountService) ListKeys(ctx context.Context, userID string) ([]*model.APIKey, error) {
	keys, err := s.store.ListAPIKeys(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	return keys, nil
}

// RevokeKey revokes a key and drops its cached auth contexts.
func (s *AccountService) RevokeKey(ctx context.Context, userID, keyID string) error {
	if err := s.store.RevokeAPIKey(ctx, userID, keyID); err != nil {
		return err
	}
	s.invalidate(ctx, keyID)

	s.logger.Info("api_key_revoked", "user_id", userID, "key_id", keyID)
	return nil
}

// RotateKey replaces a key with a new one carrying the same name, scopes
// and tier.
func (s *AccountService) RotateKey(ctx context.Context, userID, keyID string) (*IssuedKey, error) {
	old, err := s.store.GetAPIKey(ctx, userID, keyID)
	if err != nil {
		return nil, err
	}
	if old.IsRevoked() {
		return nil, ErrAPIKeyRevoked
	}

	key, plaintext, err := s.mint(userID, old.Name, slices.Clone(old.Scopes), old.RateLimitTier)
	if err != nil {
		return nil, err
	}
	if err := s.store.RotateAPIKey(ctx, userID, keyID, key); err != nil {
		return nil, err
	}
	s.invalidate(ctx, keyID)

	s.logger.Info("api_key_rotated", "user_id", userID, "old_key_id", keyID, "key_id", key.ID)
	return &IssuedKey{Key: key, Plaintext: plaintext}, nil
}

func (s *AccountService) mint(userID, name string, scopes []string, tier string) (*model.APIKey, string, error) {
	generated, err := auth.GenerateAPIKey(s.env)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate API key: %w", err)
	}
	return &model.APIKey{
		ID:            generateID(),
		UserID:        userID,
		KeyHash:       generated.Hash,
		KeyPrefix:     generated.Prefix,
		Scopes:        scopes,
		RateLimitTier: tier,
		Name:          name,
		CreatedAt:     now(),
	}, generated.Plaintext, nil
}

func (s *AccountService) invalidate(ctx context.Context, keyID string) {
	if s.keys == nil {
		return
	}
	if err := s.keys.InvalidateAPIKey(ctx, keyID); err != nil {
		s.logger.Warn("auth_cache_invalidation_failed", "key_id", keyID, "error", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
