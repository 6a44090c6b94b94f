package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storepos/internal/domain"
	"storepos/internal/gateway"
	"storepos/internal/logging"
)

// SessionWriter is the write side of the session store used by login.
type SessionWriter interface {
	SetAuth(ctx context.Context, token string, user domain.Identity) error
	Logout(ctx context.Context) bool
}

type Auth struct {
	client  *gateway.Client
	session SessionWriter
	logger  *zap.Logger
}

func NewAuth(client *gateway.Client, session SessionWriter, logger *zap.Logger) *Auth {
	return &Auth{client: client, session: session, logger: logging.OrNop(logger)}
}

// Login exchanges credentials for a token and installs it in the session.
func (a *Auth) Login(ctx context.Context, username string, password string) (domain.Identity, error) {
	resp, err := gateway.Post[domain.LoginResponse](ctx, a.client, pathLogin, domain.LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return domain.Identity{}, err
	}
	if err := a.session.SetAuth(ctx, resp.AccessToken, resp.Employee); err != nil {
		return domain.Identity{}, fmt.Errorf("login: %w", err)
	}
	a.logger.Info("logged in", zap.String("username", resp.Employee.Username))
	return resp.Employee, nil
}

// Logout ends the local session. The backend keeps no session state.
func (a *Auth) Logout(ctx context.Context) bool {
	return a.session.Logout(ctx)
}
