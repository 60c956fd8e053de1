package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/surdiana/auth-service/config"
	"github.com/surdiana/auth-service/internal/constants"
	"github.com/surdiana/auth-service/internal/dto"
	apperrors "github.com/surdiana/auth-service/internal/errors"
	"github.com/surdiana/auth-service/internal/model"
	"github.com/surdiana/auth-service/internal/repository"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
	"github.com/surdiana/auth-service/pkg/logger"
	redisclient "github.com/surdiana/auth-service/pkg/redis"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

// Supported federation providers
const (
	ProviderGoogle   = "google"
	ProviderGitHub   = "github"
	ProviderFacebook = "facebook"
)

const (
	stateTTL = 10 * time.Minute

	// A user whose row was created within this window of the callback is
	// reported as newly provisioned
	newUserWindow = 5 * time.Second
)

// StateStore persists one-time OAuth2 state values between the authorize
// redirect and the provider callback
type StateStore interface {
	Save(ctx context.Context, state, provider string, ttl time.Duration) error
	Consume(ctx context.Context, state string) (string, bool, error)
}

// RedisStateStore keeps states in Redis so callbacks can land on any
// instance
type RedisStateStore struct {
	client *redisclient.Client
}

func NewRedisStateStore(client *redisclient.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func (s *RedisStateStore) Save(ctx context.Context, state, provider string, ttl time.Duration) error {
	return s.client.Set(ctx, constants.CacheKeyState+state, provider, ttl)
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, bool, error) {
	key := constants.CacheKeyState + state

	provider, found, err := s.client.Get(ctx, key)
	if err != nil || !found {
		return "", false, err
	}

	if err := s.client.Delete(ctx, key); err != nil {
		return "", false, err
	}

	return provider, true, nil
}

// MemoryStateStore is the single-instance fallback used when Redis is
// disabled
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]memoryState
}

type memoryState struct {
	provider  string
	expiresAt time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]memoryState)}
}

func (s *MemoryStateStore) Save(_ context.Context, state, provider string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = memoryState{provider: provider, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.states[state]
	if !ok {
		return "", false, nil
	}
	delete(s.states, state)

	if time.Now().After(entry.expiresAt) {
		return "", false, nil
	}

	return entry.provider, true, nil
}

// profileFetcher exchanges an authorization code for a normalized profile
type profileFetcher func(ctx context.Context, client *http.Client) (*dto.OAuth2Profile, error)

type providerEntry struct {
	config *oauth2.Config
	fetch  profileFetcher
}

// OAuth2Service federates login through Google, GitHub and Facebook.
// A federated identity maps onto the same user model as a password
// account, sharing the single active session policy.
type OAuth2Service struct {
	userRepo     *repository.UserRepository
	tokenService *TokenService
	jwtService   *JWTService
	audit        AuditRecorder
	stateStore   StateStore
	providers    map[string]providerEntry

	// overridable in tests
	httpClientFor func(ctx context.Context, entry providerEntry, code string) (*http.Client, error)
}

func NewOAuth2Service(
	userRepo *repository.UserRepository,
	tokenService *TokenService,
	jwtService *JWTService,
	audit AuditRecorder,
	stateStore StateStore,
	cfg *config.OAuth2Config,
) *OAuth2Service {
	s := &OAuth2Service{
		userRepo:     userRepo,
		tokenService: tokenService,
		jwtService:   jwtService,
		audit:        audit,
		stateStore:   stateStore,
		providers:    make(map[string]providerEntry),
	}

	s.httpClientFor = func(ctx context.Context, entry providerEntry, code string) (*http.Client, error) {
		token, err := entry.config.Exchange(ctx, code)
		if err != nil {
			return nil, err
		}
		return entry.config.Client(ctx, token), nil
	}

	if cfg.Google.ClientID != "" {
		s.providers[ProviderGoogle] = providerEntry{
			config: &oauth2.Config{
				ClientID:     cfg.Google.ClientID,
				ClientSecret: cfg.Google.ClientSecret,
				RedirectURL:  cfg.Google.RedirectURL,
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint:     google.Endpoint,
			},
			fetch: fetchGoogleProfile,
		}
	}

	if cfg.GitHub.ClientID != "" {
		s.providers[ProviderGitHub] = providerEntry{
			config: &oauth2.Config{
				ClientID:     cfg.GitHub.ClientID,
				ClientSecret: cfg.GitHub.ClientSecret,
				RedirectURL:  cfg.GitHub.RedirectURL,
				Scopes:       []string{"read:user", "user:email"},
				Endpoint:     github.Endpoint,
			},
			fetch: fetchGitHubProfile,
		}
	}

	if cfg.Facebook.ClientID != "" {
		s.providers[ProviderFacebook] = providerEntry{
			config: &oauth2.Config{
				ClientID:     cfg.Facebook.ClientID,
				ClientSecret: cfg.Facebook.ClientSecret,
				RedirectURL:  cfg.Facebook.RedirectURL,
				Scopes:       []string{"email", "public_profile"},
				Endpoint:     facebook.Endpoint,
			},
			fetch: fetchFacebookProfile,
		}
	}

	return s
}

// Authorize builds the provider redirect URL with a one-time state
func (s *OAuth2Service) Authorize(ctx context.Context, provider string) (*dto.OAuth2AuthorizeResponse, error) {
	ctx = ctxutil.NewContextWithOperation(ctx, "oauth2_service", "Authorize")

	entry, ok := s.providers[strings.ToLower(provider)]
	if !ok {
		return nil, apperrors.ErrUnsupportedProvider
	}

	state, err := s.jwtService.GenerateOpaqueToken()
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.stateStore.Save(ctx, state, strings.ToLower(provider), stateTTL); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return &dto.OAuth2AuthorizeResponse{
		AuthorizationURL: entry.config.AuthCodeURL(state),
		State:            state,
	}, nil
}

// Callback completes the provider handshake and opens a session,
// provisioning the user on first login
func (s *OAuth2Service) Callback(ctx context.Context, provider, code, state string) (*dto.OAuth2LoginResponse, error) {
	ctx = ctxutil.NewContextWithOperation(ctx, "oauth2_service", "Callback")

	provider = strings.ToLower(provider)
	entry, ok := s.providers[provider]
	if !ok {
		return nil, apperrors.ErrUnsupportedProvider
	}

	storedProvider, found, err := s.stateStore.Consume(ctx, state)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if !found || storedProvider != provider {
		logger.WarnWithContext(ctx, "OAuth2 state rejected").
			String("provider", provider).
			Log()
		return nil, apperrors.ErrInvalidToken
	}

	client, err := s.httpClientFor(ctx, entry, code)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrUnauthorized, err)
	}

	profile, err := entry.fetch(ctx, client)
	if err != nil {
		return nil, err
	}
	profile.Provider = provider

	user, err := s.findOrProvision(ctx, profile)
	if err != nil {
		return nil, err
	}

	if user.Status == model.StatusBanned {
		return nil, apperrors.ErrAccountBanned
	}

	refreshToken, err := s.tokenService.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	now := time.Now()
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"last_login": now,
	}); err != nil {
		logger.WarnWithContext(ctx, "Failed to stamp last login").
			String("user_id", user.ID.String()).
			Err(err).
			Log()
	}
	user.LastLogin = &now

	isNewUser := time.Since(user.CreatedAt) < newUserWindow

	s.audit.Record(ctx, AuditEntry{
		UserID: &user.ID,
		Action: model.AuditActionOAuthLogin,
		Detail: fmt.Sprintf("provider=%s new_user=%t", provider, isNewUser),
	})

	logger.InfoWithContext(ctx, "OAuth2 login completed").
		String("user_id", user.ID.String()).
		String("provider", provider).
		Bool("new_user", isNewUser).
		Log()

	return &dto.OAuth2LoginResponse{
		Token:        accessToken,
		RefreshToken: refreshToken.Token,
		ExpiresIn:    int(s.jwtService.AccessTTL().Seconds()),
		IsNewUser:    isNewUser,
		User:         dto.ToUserResponse(user),
	}, nil
}

// findOrProvision resolves the federated identity to a local user. Match
// order is provider identity, then email, then a fresh account.
func (s *OAuth2Service) findOrProvision(ctx context.Context, profile *dto.OAuth2Profile) (*model.User, error) {
	if profile.Email == "" {
		return nil, apperrors.ErrOAuthEmailMissing
	}
	email := strings.ToLower(profile.Email)

	user, err := s.userRepo.GetByProvider(ctx, profile.Provider, profile.ProviderID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	user, err = s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		// Link the federated identity to the existing account
		updates := map[string]interface{}{
			"provider":       profile.Provider,
			"provider_id":    profile.ProviderID,
			"email_verified": true,
		}
		if user.Status == model.StatusInactive {
			updates["status"] = model.StatusActive
			user.Status = model.StatusActive
		}
		if user.AvatarURL == "" && profile.AvatarURL != "" {
			updates["avatar_url"] = profile.AvatarURL
			user.AvatarURL = profile.AvatarURL
		}

		if err := s.userRepo.UpdateFields(ctx, user.ID, updates); err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}

		user.Provider = profile.Provider
		user.ProviderID = profile.ProviderID
		user.EmailVerified = true
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	firstName := profile.FirstName
	if firstName == "" {
		firstName = "User"
	}

	// Federated accounts never log in with a password, but they still get
	// an unguessable one so the column is never empty
	random, err := s.jwtService.GenerateOpaqueToken()
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(random), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	user = &model.User{
		FirstName:     firstName,
		Password:      string(hashed),
		LastName:      profile.LastName,
		Email:         email,
		Status:        model.StatusActive,
		EmailVerified: true,
		Provider:      profile.Provider,
		ProviderID:    profile.ProviderID,
		AvatarURL:     profile.AvatarURL,
		Roles:         []model.UserRole{{Role: model.RoleUser}},
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return user, nil
}

func fetchGoogleProfile(ctx context.Context, client *http.Client) (*dto.OAuth2Profile, error) {
	var payload struct {
		Sub        string `json:"sub"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
	}

	if err := fetchJSON(ctx, client, "https://www.googleapis.com/oauth2/v3/userinfo", &payload); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrServiceUnavailable, err)
	}

	return &dto.OAuth2Profile{
		ProviderID: payload.Sub,
		Email:      payload.Email,
		FirstName:  payload.GivenName,
		LastName:   payload.FamilyName,
		AvatarURL:  payload.Picture,
	}, nil
}

func fetchGitHubProfile(ctx context.Context, client *http.Client) (*dto.OAuth2Profile, error) {
	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}

	if err := fetchJSON(ctx, client, "https://api.github.com/user", &payload); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrServiceUnavailable, err)
	}

	email := payload.Email
	if email == "" {
		email = fetchGitHubPrimaryEmail(ctx, client)
	}
	if email == "" && payload.Login != "" {
		// GitHub profiles can hide the email entirely
		email = payload.Login + "@github.users.noreply.github.com"
	}

	firstName, lastName := splitName(payload.Name)
	if firstName == "" {
		firstName = payload.Login
	}

	return &dto.OAuth2Profile{
		ProviderID: fmt.Sprintf("%d", payload.ID),
		Email:      email,
		FirstName:  firstName,
		LastName:   lastName,
		AvatarURL:  payload.AvatarURL,
	}, nil
}

func fetchGitHubPrimaryEmail(ctx context.Context, client *http.Client) string {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}

	if err := fetchJSON(ctx, client, "https://api.github.com/user/emails", &emails); err != nil {
		return ""
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	return ""
}

func fetchFacebookProfile(ctx context.Context, client *http.Client) (*dto.OAuth2Profile, error) {
	var payload struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Picture   struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}

	url := "https://graph.facebook.com/me?fields=id,email,first_name,last_name,picture"
	if err := fetchJSON(ctx, client, url, &payload); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrServiceUnavailable, err)
	}

	return &dto.OAuth2Profile{
		ProviderID: payload.ID,
		Email:      payload.Email,
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
		AvatarURL:  payload.Picture.Data.URL,
	}, nil
}

func fetchJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}

	parts := strings.SplitN(full, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
