package httpapi

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"storepos/internal/domain"
	"storepos/internal/service"
)

const tokenIssuer = "storepos"

// Authenticator checks a username and password.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (domain.Identity, error)
}

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	accounts Authenticator
	now      func() time.Time
}

type posClaims struct {
	jwtlib.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, accounts Authenticator) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		accounts: accounts,
		now:      time.Now,
	}
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return domain.LoginResponse{}, err
	}
	user, err := a.accounts.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	token, err := a.sign(user, a.now().UTC().Add(a.tokenTTL))
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{AccessToken: token, Employee: user}, nil
}

// ParseToken accepts only HS256 tokens signed with the manager's secret.
// The subject is the employee id.
func (a *AuthManager) ParseToken(tokenStr string) (domain.Identity, error) {
	claims := &posClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	},
		jwtlib.WithValidMethods([]string{"HS256"}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return domain.Identity{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Identity{}, errors.New("invalid token subject")
	}
	return domain.Identity{ID: sub, Username: claims.Username, Position: domain.Position(claims.Role)}, nil
}

func (a *AuthManager) sign(user domain.Identity, expiresAt time.Time) (string, error) {
	claims := posClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(a.now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		Username: user.Username,
		Role:     string(user.Position),
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "missing bearer token")
			return
		}
		actor, err := a.auth.ParseToken(strings.TrimSpace(authorization[len("Bearer "):]))
		if err != nil {
			writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
	})
}

func requirePosition(allowed ...domain.Position) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := service.ActorFromContext(r.Context())
			if !ok || !slices.Contains(allowed, actor.Position) {
				writeError(w, http.StatusForbidden, "", "forbidden position")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "", "too many login attempts")
		return
	}
	var req domain.LoginRequest
	if err := decodeJSON(r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrAccountInactive) {
			writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "account is inactive")
			return
		}
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
