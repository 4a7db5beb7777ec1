package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AdamBeresnev/round-robin-app/internal/config"
	"github.com/AdamBeresnev/round-robin-app/internal/httputil"
	users "github.com/AdamBeresnev/round-robin-app/internal/user"
	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/azureadv2"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Session keys written on browser login.
const (
	sessionEmailKey    = "userEmail"
	sessionNameKey     = "userName"
	sessionNavIdentKey = "userNavIdent"
)

const devAdminGroup = "dev-admin-group"

// Claims are the parts of an Entra ID access token the app reads.
type Claims struct {
	Name              string   `json:"name,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	Email             string   `json:"email,omitempty"`
	NavIdent          string   `json:"NAVident,omitempty"`
	Groups            []string `json:"groups,omitempty"`
	jwt.RegisteredClaims
}

func InitAuth(cfg config.AzureConfig) {
	if !cfg.Enabled() {
		slog.Info("azure login disabled")
		return
	}

	tenant := azureadv2.CommonTenant
	if cfg.Tenant != "" {
		tenant = azureadv2.TenantType(cfg.Tenant)
	}

	goth.UseProviders(
		azureadv2.New(cfg.Key, cfg.Secret, cfg.CallbackURL, azureadv2.ProviderOptions{
			Tenant: tenant,
			Scopes: []azureadv2.ScopeType{"openid", "profile", "email"},
		}),
	)
}

// Authenticator resolves the caller of a request from a bearer token, a
// browser session, or in dev mode a synthesized user.
type Authenticator struct {
	cfg      config.AuthConfig
	devMode  bool
	sessions *scs.SessionManager
	secret   []byte
}

func NewAuthenticator(cfg config.AuthConfig, devMode bool, sessions *scs.SessionManager) *Authenticator {
	a := &Authenticator{cfg: cfg, devMode: devMode, sessions: sessions}
	if cfg.JWTSecret != "" {
		a.secret = []byte(cfg.JWTSecret)
	}
	return a
}

// LoadUser puts the resolved user in the request context. It never rejects;
// RequireUser and RequireAdmin do. Health checks under /api/internal/ are skipped.
func (a *Authenticator) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/internal/") {
			next.ServeHTTP(w, r)
			return
		}

		user := a.resolve(r)
		if user != nil {
			r = r.WithContext(users.WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) resolve(r *http.Request) *users.User {
	if raw, ok := bearerToken(r); ok {
		user, err := a.ParseToken(raw)
		if err == nil {
			return user
		}
		slog.Warn("rejected bearer token", "error", err, "path", r.URL.Path)
	}

	if user := a.sessionUser(r.Context()); user != nil {
		return user
	}

	if a.devMode {
		return devUser(r.URL.Query().Get("admin") != "false")
	}
	return nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// ParseToken reads a bearer token. With a configured secret the HS256
// signature is verified; otherwise the token is decoded as is because the
// auth sidecar in front of the app has already validated it.
func (a *Authenticator) ParseToken(raw string) (*users.User, error) {
	claims := &Claims{}

	if a.secret != nil {
		_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
			return a.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return nil, ErrExpiredToken
			}
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
			return nil, ErrExpiredToken
		}
	}

	user := &users.User{
		Name:     claims.Name,
		Email:    claims.PreferredUsername,
		NavIdent: claims.NavIdent,
		Groups:   claims.Groups,
		Source:   users.SourceToken,
	}
	if user.Name == "" {
		user.Name = "Ukjent"
	}
	if user.Email == "" {
		user.Email = claims.Email
	}
	if user.Groups == nil {
		user.Groups = []string{}
	}
	user.IsAdmin = user.InGroup(a.cfg.AdminGroupID)
	return user, nil
}

func (a *Authenticator) sessionUser(ctx context.Context) *users.User {
	// Requires sessions.LoadAndSave in front of LoadUser.
	if a.sessions == nil {
		return nil
	}
	email := a.sessions.GetString(ctx, sessionEmailKey)
	if email == "" {
		return nil
	}
	return &users.User{
		Name:     a.sessions.GetString(ctx, sessionNameKey),
		Email:    email,
		NavIdent: a.sessions.GetString(ctx, sessionNavIdentKey),
		Groups:   []string{},
		IsAdmin:  a.cfg.IsAdminEmail(email),
		Source:   users.SourceSession,
	}
}

// Login stores a completed OAuth login in the session.
func (a *Authenticator) Login(ctx context.Context, gothUser goth.User) error {
	if gothUser.Email == "" {
		return errors.New("provider did not return an email address")
	}
	if err := a.sessions.RenewToken(ctx); err != nil {
		return fmt.Errorf("failed to renew session token: %w", err)
	}

	name := gothUser.Name
	if name == "" {
		name = gothUser.NickName
	}
	a.sessions.Put(ctx, sessionEmailKey, gothUser.Email)
	a.sessions.Put(ctx, sessionNameKey, name)
	if navIdent, ok := gothUser.RawData["NAVident"].(string); ok {
		a.sessions.Put(ctx, sessionNavIdentKey, navIdent)
	}
	return nil
}

func (a *Authenticator) Logout(ctx context.Context) error {
	return a.sessions.Destroy(ctx)
}

func devUser(isAdmin bool) *users.User {
	u := &users.User{
		Name:     "Dev Bruker",
		Email:    "dev@nav.no",
		NavIdent: "D123456",
		Groups:   []string{},
		IsAdmin:  isAdmin,
		Source:   users.SourceDev,
	}
	if isAdmin {
		u.Groups = []string{devAdminGroup}
	}
	return u
}

// RequireUser rejects anonymous requests: 401 for the API, a redirect to
// the login page for HTML.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAuthenticatedUser(r.Context()) == nil {
			unauthenticated(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetAuthenticatedUser(r.Context())
		if user == nil {
			unauthenticated(w, r)
			return
		}
		if !user.IsAdmin {
			slog.Warn("admin access denied", "email", user.Email, "path", r.URL.Path)
			httputil.Forbidden(w, "Forbidden - Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthenticated(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		httputil.Unauthorized(w, "Unauthorized")
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func GetAuthenticatedUser(ctx context.Context) *users.User {
	return users.FromContext(ctx)
}

// IssueToken signs an HS256 token carrying claims, for local testing against
// a server configured with the same secret.
func IssueToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("a JWT secret is required to sign tokens")
	}

	now := time.Now()
	claims.ID = uuid.NewString()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if claims.Subject == "" {
		claims.Subject = claims.NavIdent
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
