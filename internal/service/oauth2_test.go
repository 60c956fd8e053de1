package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/surdiana/auth-service/config"
	apperrors "github.com/surdiana/auth-service/internal/errors"
	"github.com/surdiana/auth-service/internal/model"
	"github.com/surdiana/auth-service/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// rewriteTransport sends every outbound request to the test server,
// keeping the original path so the handler can switch on it
type rewriteTransport struct {
	target *url.URL
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

type oauth2Fixture struct {
	db     *gorm.DB
	audit  *fakeAuditRecorder
	states *MemoryStateStore
	svc    *OAuth2Service
}

func newOAuth2Fixture(t *testing.T, providerServer *httptest.Server) *oauth2Fixture {
	t.Helper()

	db := newTestDB(t)
	userRepo := repository.NewUserRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)

	jwtService := NewJWTService("test-secret", 15*time.Minute)
	tokenService := NewTokenService(refreshRepo, jwtService, 7*24*time.Hour)
	audit := &fakeAuditRecorder{}
	states := NewMemoryStateStore()

	cfg := &config.OAuth2Config{
		Google:   config.OAuth2Provider{ClientID: "google-client", ClientSecret: "secret", RedirectURL: "http://localhost/cb"},
		GitHub:   config.OAuth2Provider{ClientID: "github-client", ClientSecret: "secret", RedirectURL: "http://localhost/cb"},
		Facebook: config.OAuth2Provider{ClientID: "facebook-client", ClientSecret: "secret", RedirectURL: "http://localhost/cb"},
	}

	svc := NewOAuth2Service(userRepo, tokenService, jwtService, audit, states, cfg)

	if providerServer != nil {
		target, err := url.Parse(providerServer.URL)
		if err != nil {
			t.Fatalf("Failed to parse test server URL: %v", err)
		}
		svc.httpClientFor = func(_ context.Context, _ providerEntry, _ string) (*http.Client, error) {
			return &http.Client{Transport: &rewriteTransport{target: target}}, nil
		}
	}

	return &oauth2Fixture{db: db, audit: audit, states: states, svc: svc}
}

func TestMemoryStateStore(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	if err := store.Save(ctx, "abc", ProviderGoogle, time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	provider, found, err := store.Consume(ctx, "abc")
	if err != nil || !found {
		t.Fatalf("Expected state to be found, got found=%t err=%v", found, err)
	}
	if provider != ProviderGoogle {
		t.Errorf("Expected provider google, got %s", provider)
	}

	// One-time use
	if _, found, _ := store.Consume(ctx, "abc"); found {
		t.Error("Expected consumed state to be gone")
	}

	// Expired states are rejected
	store.Save(ctx, "old", ProviderGitHub, -time.Second)
	if _, found, _ := store.Consume(ctx, "old"); found {
		t.Error("Expected expired state to be rejected")
	}
}

func TestOAuth2Service_Authorize(t *testing.T) {
	fx := newOAuth2Fixture(t, nil)
	ctx := context.Background()

	resp, err := fx.svc.Authorize(ctx, "google")
	if err != nil {
		t.Fatalf("Expected authorize to succeed, got %v", err)
	}
	if resp.State == "" {
		t.Error("Expected a state value")
	}
	if !strings.Contains(resp.AuthorizationURL, "state="+url.QueryEscape(resp.State)) {
		t.Errorf("Expected state in authorization URL, got %s", resp.AuthorizationURL)
	}
	if !strings.Contains(resp.AuthorizationURL, "client_id=google-client") {
		t.Errorf("Expected client ID in authorization URL, got %s", resp.AuthorizationURL)
	}

	if _, err := fx.svc.Authorize(ctx, "myspace"); err != apperrors.ErrUnsupportedProvider {
		t.Errorf("Expected ErrUnsupportedProvider, got %v", err)
	}
}

func googleUserinfoServer(t *testing.T, sub, email, given, family string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "userinfo") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sub":"` + sub + `","email":"` + email + `","given_name":"` + given + `","family_name":"` + family + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOAuth2Service_Callback_ProvisionsNewUser(t *testing.T) {
	srv := googleUserinfoServer(t, "g-123", "Wendy@Example.com", "Wendy", "Chen")
	fx := newOAuth2Fixture(t, srv)
	ctx := context.Background()

	auth, err := fx.svc.Authorize(ctx, "google")
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}

	resp, err := fx.svc.Callback(ctx, "google", "code-1", auth.State)
	if err != nil {
		t.Fatalf("Expected callback to succeed, got %v", err)
	}

	if !resp.IsNewUser {
		t.Error("Expected first federated login to provision a new user")
	}
	if resp.User.Email != "wendy@example.com" {
		t.Errorf("Expected lowercased email, got %s", resp.User.Email)
	}
	if resp.User.Status != model.StatusActive {
		t.Errorf("Expected provisioned user ACTIVE, got %s", resp.User.Status)
	}
	if !resp.User.EmailVerified {
		t.Error("Expected provisioned user verified")
	}
	if len(resp.User.Roles) != 1 || resp.User.Roles[0] != model.RoleUser {
		t.Errorf("Expected the USER role, got %v", resp.User.Roles)
	}
	if resp.Token == "" || resp.RefreshToken == "" {
		t.Error("Expected a full token pair")
	}
	if !fx.audit.hasAction(model.AuditActionOAuthLogin) {
		t.Errorf("Expected OAUTH_LOGIN audit entry, got %v", fx.audit.actions())
	}

	// Federated accounts get a random hashed password, never an empty one
	userRepo := repository.NewUserRepository(fx.db)
	stored, err := userRepo.GetByEmail(ctx, "wendy@example.com")
	if err != nil {
		t.Fatalf("Expected to find the provisioned user, got %v", err)
	}
	if stored.Password == "" {
		t.Error("Expected a non-empty password hash on the provisioned user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("")); err == nil {
		t.Error("Expected the generated password not to be empty")
	}
}

func TestOAuth2Service_Callback_ReturningUser(t *testing.T) {
	srv := googleUserinfoServer(t, "g-456", "xan@example.com", "Xan", "Lee")
	fx := newOAuth2Fixture(t, srv)
	ctx := context.Background()

	auth, _ := fx.svc.Authorize(ctx, "google")
	first, err := fx.svc.Callback(ctx, "google", "code-1", auth.State)
	if err != nil {
		t.Fatalf("First callback failed: %v", err)
	}

	// Age the account past the provisioning window
	err = fx.db.Model(&model.User{}).
		Where("email = ?", "xan@example.com").
		Update("created_at", time.Now().Add(-time.Hour)).Error
	if err != nil {
		t.Fatalf("Failed to age account: %v", err)
	}

	auth, _ = fx.svc.Authorize(ctx, "google")
	second, err := fx.svc.Callback(ctx, "google", "code-2", auth.State)
	if err != nil {
		t.Fatalf("Second callback failed: %v", err)
	}

	if second.IsNewUser {
		t.Error("Expected returning login to not report a new user")
	}
	if second.User.ID != first.User.ID {
		t.Error("Expected the same account on both logins")
	}

	// Relogin replaced the session
	refreshRepo := repository.NewRefreshTokenRepository(fx.db)
	token, err := refreshRepo.GetByToken(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Expected the first refresh token row to remain, got %v", err)
	}
	if token.Valid() {
		t.Error("Expected the first session to be revoked by the second login")
	}
}

func TestOAuth2Service_Callback_LinksExistingAccount(t *testing.T) {
	srv := googleUserinfoServer(t, "g-789", "yara@example.com", "Yara", "Diaz")
	fx := newOAuth2Fixture(t, srv)
	ctx := context.Background()

	// Password account that never verified its email
	seeded := seedUser(t, fx.db, "yara@example.com", "Sup3rSecret", model.StatusInactive, false)

	auth, _ := fx.svc.Authorize(ctx, "google")
	resp, err := fx.svc.Callback(ctx, "google", "code-1", auth.State)
	if err != nil {
		t.Fatalf("Expected callback to succeed, got %v", err)
	}

	if resp.User.ID != seeded.ID.String() {
		t.Error("Expected the existing account to be linked, not a new one")
	}
	if !resp.User.EmailVerified {
		t.Error("Expected provider login to mark the email verified")
	}
	if resp.User.Status != model.StatusActive {
		t.Errorf("Expected linked account activated, got %s", resp.User.Status)
	}
	if resp.User.Provider != "google" {
		t.Errorf("Expected provider recorded, got %q", resp.User.Provider)
	}
}

func TestOAuth2Service_Callback_Banned(t *testing.T) {
	srv := googleUserinfoServer(t, "g-000", "zane@example.com", "Zane", "Ng")
	fx := newOAuth2Fixture(t, srv)
	ctx := context.Background()

	seedUser(t, fx.db, "zane@example.com", "Sup3rSecret", model.StatusBanned, true)

	auth, _ := fx.svc.Authorize(ctx, "google")
	if _, err := fx.svc.Callback(ctx, "google", "code-1", auth.State); err != apperrors.ErrAccountBanned {
		t.Errorf("Expected ErrAccountBanned, got %v", err)
	}
}

func TestOAuth2Service_Callback_BadState(t *testing.T) {
	fx := newOAuth2Fixture(t, nil)
	ctx := context.Background()

	// Unknown state
	if _, err := fx.svc.Callback(ctx, "google", "code", "never-issued"); err != apperrors.ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken for unknown state, got %v", err)
	}

	// State issued for a different provider
	auth, _ := fx.svc.Authorize(ctx, "github")
	if _, err := fx.svc.Callback(ctx, "google", "code", auth.State); err != apperrors.ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken for provider mismatch, got %v", err)
	}

	// Consumed above, replay fails too
	if _, err := fx.svc.Callback(ctx, "github", "code", auth.State); err != apperrors.ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken on state reuse, got %v", err)
	}
}

func TestOAuth2Service_GitHubEmailFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/user/emails"):
			w.Write([]byte(`[{"email":"hidden@example.com","primary":false,"verified":true}]`))
		case strings.HasSuffix(r.URL.Path, "/user"):
			w.Write([]byte(`{"id":42,"login":"octocat","name":"Mona Lisa Octocat","email":"","avatar_url":""}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	fx := newOAuth2Fixture(t, srv)
	ctx := context.Background()

	auth, _ := fx.svc.Authorize(ctx, "github")
	resp, err := fx.svc.Callback(ctx, "github", "code-1", auth.State)
	if err != nil {
		t.Fatalf("Expected callback to succeed, got %v", err)
	}

	// No public or primary verified email, fall back to the noreply form
	if resp.User.Email != "octocat@github.users.noreply.github.com" {
		t.Errorf("Expected noreply fallback email, got %s", resp.User.Email)
	}
	if resp.User.FirstName != "Mona" {
		t.Errorf("Expected first name from profile, got %s", resp.User.FirstName)
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		full  string
		first string
		last  string
	}{
		{"", "", ""},
		{"Mona", "Mona", ""},
		{"Mona Lisa", "Mona", "Lisa"},
		{"Mona Lisa Octocat", "Mona", "Lisa Octocat"},
		{"  Mona Lisa  ", "Mona", "Lisa"},
	}

	for _, tt := range tests {
		first, last := splitName(tt.full)
		if first != tt.first || last != tt.last {
			t.Errorf("splitName(%q) = (%q, %q), want (%q, %q)", tt.full, first, last, tt.first, tt.last)
		}
	}
}
