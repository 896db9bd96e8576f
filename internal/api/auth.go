package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"carrental/internal/config"
	"carrental/internal/models"

	"github.com/golang-jwt/jwt/v4"
)

const (
	permReadBookings  = "read:bookings"
	permWriteBookings = "write:bookings"
	permAdmin         = "admin"
)

var (
	errMissingCredentials = errors.New("authentication required")
	errInvalidToken       = errors.New("invalid or expired token")
	errInvalidAPIKey      = errors.New("invalid api key")
	errPermissionDenied   = errors.New("permission denied")
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID      int64
	Username    string
	Role        string
	Permissions []string
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller set by the auth middleware.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// Claims is the bearer token payload.
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 bearer tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(cfg config.APIAuthConfig) *TokenManager {
	return &TokenManager{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL(),
		now:    time.Now,
	}
}

func (m *TokenManager) Issue(user *models.User) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (m *TokenManager) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	if !claims.VerifyIssuer(m.issuer, m.issuer != "") || claims.UserID == 0 {
		return nil, errInvalidToken
	}
	return claims, nil
}

// HTTPAuth resolves the caller from a bearer token or a configured API key
// pair. API keys act on behalf of the user they are bound to.
type HTTPAuth struct {
	cfg     config.APIAuthConfig
	tokens  *TokenManager
	clients map[string]config.APIClientKey
}

func NewHTTPAuth(cfg config.APIAuthConfig, tokens *TokenManager) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, tokens: tokens, clients: m}
}

// Identify attaches the caller to the request context when credentials are
// present. Invalid credentials are rejected here; missing ones are left to
// the per-route guards.
func (a *HTTPAuth) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.authenticate(r)
		if err != nil {
			if errors.Is(err, errMissingCredentials) {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
	})
}

func (a *HTTPAuth) authenticate(r *http.Request) (*Principal, error) {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return nil, errInvalidToken
		}
		claims, err := a.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			return nil, err
		}
		return &Principal{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil
	}

	apiKey := strings.TrimSpace(r.Header.Get(a.cfg.HeaderAPIKey))
	if apiKey == "" {
		return nil, errMissingCredentials
	}
	extra := strings.TrimSpace(r.Header.Get(a.cfg.HeaderExtra))

	client, ok := a.clients[apiKey]
	if !ok {
		return nil, errInvalidAPIKey
	}
	if client.Extra != "" && subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return nil, errors.New("invalid extra header")
	}

	return &Principal{
		UserID:      client.UserID,
		Username:    client.Name,
		Role:        client.Role,
		Permissions: client.Permissions,
	}, nil
}

// requireUser rejects anonymous callers and API keys lacking the permission
// the route needs.
func requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, errMissingCredentials.Error())
			return
		}
		if err := checkPermissions(p, r); err != nil {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		next(w, r)
	}
}

func requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return requireUser(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFromContext(r.Context())
		if !p.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	})
}

func checkPermissions(p *Principal, r *http.Request) error {
	required := requiredPermissionHTTP(r)
	if required == "" {
		return nil
	}
	// An empty permission list allows everything the role allows.
	if len(p.Permissions) == 0 {
		return nil
	}
	for _, perm := range p.Permissions {
		if strings.TrimSpace(perm) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermissionHTTP(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/admin/"):
		return permAdmin
	case path == "/api/bookings/all":
		return permAdmin
	case strings.HasPrefix(path, "/api/bookings"):
		if r.Method == http.MethodGet {
			return permReadBookings
		}
		return permWriteBookings
	}
	return ""
}
