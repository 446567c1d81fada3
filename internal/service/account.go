// Package service — account business logic.
//
// AccountService sits between the HTTP handlers and the repository/auth
// utilities:
//
//	handlers (HTTP) → AccountService (rules) → UserRepository (DB)
//	                ↘ PasswordService (argon2id)
//	                ↘ TokenService (JWT)
//	                ↘ Exchangers (OAuth providers)
//
// It owns every account rule — email normalization, the password policy and
// its OAuth-placeholder exemption, self-match authorization, and the
// find-or-create branch of an OAuth login — and knows nothing about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sakif/accounts-api/internal/apperror"
	"github.com/sakif/accounts-api/internal/auth"
	"github.com/sakif/accounts-api/internal/model"
	"github.com/sakif/accounts-api/internal/repository"
)

// AccountService orchestrates registration, authentication, and user CRUD.
type AccountService struct {
	users       repository.UserRepository
	tokens      *auth.TokenService
	passwords   *auth.PasswordService
	exchangers  map[model.ProviderType]auth.Exchanger
	placeholder string // DEFAULT_OAUTH_PASSWORD, stored verbatim for OAuth accounts
	logger      *slog.Logger
}

// NewAccountService creates an AccountService with all dependencies injected.
// Wire it in server.New.
func NewAccountService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	exchangers map[model.ProviderType]auth.Exchanger,
	placeholderPassword string,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:       users,
		tokens:      tokens,
		passwords:   passwords,
		exchangers:  exchangers,
		placeholder: placeholderPassword,
		logger:      logger,
	}
}

// AuthResult bundles a filtered user with the bearer token issued for it, so
// the handler can set the authorization header and body in one step.
type AuthResult struct {
	User  *model.FilteredUser
	Token string
}

// RegisterInput carries the fields of a registration request. All fields are
// required; the handler's validator enforces presence and shape before the
// service runs.
type RegisterInput struct {
	FirstName    string
	LastName     string
	Username     string
	Email        string
	Password     string
	ProfilePhoto string
	Providers    []model.OAuthProvider // only set on the OAuth-origin path
}

// Register creates an account, hashes the credential, and issues a token.
//
// The password must satisfy the complexity policy unless it equals the OAuth
// placeholder, which is stored verbatim so the account can later be upgraded
// to a real credential. A username or email collision surfaces as Conflict.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if missing := requiredFields(map[string]string{
		"firstName": in.FirstName,
		"lastName":  in.LastName,
		"username":  in.Username,
		"email":     in.Email,
		"password":  in.Password,
	}); len(missing) > 0 {
		return nil, apperror.ValidationFailed("", missing...)
	}

	password := in.Password
	if password != s.placeholder {
		if !model.ValidatePassword(password) {
			return nil, apperror.ValidationFailed(
				"A valid password consists of at least 1 uppercase letter, 1 special character, 1 number, and is between 8 - 15 characters long.",
				"password",
			)
		}
		hashed, err := s.passwords.Hash(password)
		if err != nil {
			return nil, fmt.Errorf("service/account: hashing password: %w", err)
		}
		password = hashed
	}

	user := &model.User{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Username:       in.Username,
		Email:          model.NormalizeEmail(in.Email),
		Password:       password,
		ProfilePhoto:   in.ProfilePhoto,
		OAuthProviders: in.Providers,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/account: creating user %q: %w", in.Username, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.authResult(user)
}

// BasicLogin authenticates an email/password pair and issues a token.
//
// An unknown email returns NotFound while a bad password returns
// Unauthorized. The differing codes reveal whether an account exists — a
// known weakness of the contract this service preserves, kept deliberately
// rather than silently changed.
func (s *AccountService) BasicLogin(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/account: looking up user by email: %w", err)
	}

	if err := s.passwords.Verify(user.Password, password); err != nil {
		// Any verification failure is a 401, including an undecodable
		// stored value — which is how OAuth placeholder accounts fail
		// closed until the user sets a real password.
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("password verification failed on stored hash",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Unauthorized("Invalid credentials.")
	}

	return s.authResult(user)
}

// OAuthLogin exchanges a provider access token for a profile and either logs
// the matching account in or creates one.
//
// The merge-or-create decision is an explicit two-step: find by the
// profile's email, then branch on found/absent. On the found branch the
// (provider id, type) pair is merged only if that provider id is not already
// linked; on the absent branch a new account is created with the placeholder
// credential, skipping the password policy.
func (s *AccountService) OAuthLogin(ctx context.Context, provider, accessToken string) (*AuthResult, error) {
	providerType := model.ProviderType(strings.ToUpper(strings.TrimSpace(provider)))
	if !providerType.Valid() {
		return nil, apperror.ValidationFailed("OAuth provider not recognized.", "provider")
	}

	exchanger, ok := s.exchangers[providerType]
	if !ok {
		return nil, apperror.ValidationFailed("OAuth provider not recognized.", "provider")
	}

	profile, err := exchanger.Exchange(ctx, accessToken)
	if err != nil {
		return nil, apperror.Upstream(string(providerType)+" OAuth", err)
	}
	if profile.Email == "" {
		return nil, apperror.Upstream(string(providerType)+" OAuth",
			fmt.Errorf("provider returned a profile with no email"))
	}

	link := model.OAuthProvider{ID: profile.ProviderID, Type: providerType}

	user, err := s.users.GetByEmail(ctx, model.NormalizeEmail(profile.Email))
	switch {
	case err == nil:
		// Existing account: merge the provider link if it's new.
		if !user.HasProvider(link.ID) {
			user.OAuthProviders = append(user.OAuthProviders, link)
			if err := s.users.Update(ctx, user); err != nil {
				return nil, fmt.Errorf("service/account: linking %s provider to user %s: %w",
					providerType, user.ID, err)
			}
		}
		return s.authResult(user)

	case errors.Is(err, apperror.ErrNotFound):
		// First login through this provider: create the account with the
		// placeholder credential.
		result, err := s.Register(ctx, RegisterInput{
			FirstName:    profile.FirstName,
			LastName:     profile.LastName,
			Username:     profile.Username,
			Email:        profile.Email,
			Password:     s.placeholder,
			ProfilePhoto: profile.ProfilePhoto,
			Providers:    []model.OAuthProvider{link},
		})
		if err != nil {
			return nil, fmt.Errorf("service/account: creating user from %s profile: %w", providerType, err)
		}

		s.logger.Info("user created via OAuth",
			slog.String("userID", result.User.ID),
			slog.String("provider", string(providerType)),
		)
		return result, nil

	default:
		return nil, fmt.Errorf("service/account: looking up user by OAuth email: %w", err)
	}
}

// Get returns the filtered user for the given ID.
func (s *AccountService) Get(ctx context.Context, id string) (*model.FilteredUser, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/account: fetching user %s: %w", id, err)
	}
	return user.Filtered(), nil
}

// List returns every user, filtered. Zero accounts yields an empty slice.
func (s *AccountService) List(ctx context.Context) ([]model.FilteredUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/account: listing users: %w", err)
	}
	return model.FilterUsers(users), nil
}

// UpdateInput carries a partial update: nil fields are untouched, non-nil
// fields are applied after re-validation.
type UpdateInput struct {
	FirstName    *string
	LastName     *string
	Username     *string
	Email        *string
	Password     *string
	ProfilePhoto *string
}

// Update applies a partial update to the target account.
//
// Self-match authorization: the acting identity must be the target. A
// supplied password goes through the same policy as registration and is
// re-hashed; a supplied email is re-normalized; uniqueness collisions
// surface as Conflict.
func (s *AccountService) Update(ctx context.Context, actorID, targetID string, in UpdateInput) (*model.FilteredUser, error) {
	if actorID != targetID {
		return nil, apperror.Forbidden("")
	}

	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/account: fetching user %s: %w", targetID, err)
	}

	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Username != nil {
		if *in.Username == "" {
			return nil, apperror.ValidationFailed("username must not be empty", "username")
		}
		user.Username = *in.Username
	}
	if in.Email != nil {
		email := model.NormalizeEmail(*in.Email)
		if email == "" {
			return nil, apperror.ValidationFailed("email must not be empty", "email")
		}
		user.Email = email
	}
	if in.ProfilePhoto != nil {
		user.ProfilePhoto = *in.ProfilePhoto
	}
	if in.Password != nil {
		if !model.ValidatePassword(*in.Password) {
			return nil, apperror.ValidationFailed(
				"A valid password consists of at least 1 uppercase letter, 1 special character, 1 number, and is between 8 - 15 characters long.",
				"password",
			)
		}
		hashed, err := s.passwords.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("service/account: hashing password: %w", err)
		}
		user.Password = hashed
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/account: updating user %s: %w", targetID, err)
	}

	return user.Filtered(), nil
}

// Delete removes the target account after the self-match check. The removal
// is irreversible; the returned message is echoed to the client.
func (s *AccountService) Delete(ctx context.Context, actorID, targetID string) (string, error) {
	if actorID != targetID {
		return "", apperror.Forbidden("")
	}

	if err := s.users.Delete(ctx, targetID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("service/account: deleting user %s: %w", targetID, err)
	}

	s.logger.Info("user deleted", slog.String("userID", targetID))
	return "User successfully deleted.", nil
}

// authResult issues a token for the user and pairs it with the filtered view.
func (s *AccountService) authResult(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user.Filtered(), Token: token}, nil
}

// requiredFields returns the names of fields whose values are empty, sorted
// so the resulting message is stable.
func requiredFields(fields map[string]string) []string {
	missing := make([]string, 0)
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
