package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"storepos/internal/domain"
	"storepos/internal/logging"
)

type State int

const (
	StateLoading State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

type Snapshot struct {
	State State
	Token string
	User  *domain.Identity
}

func (s Snapshot) IsAuthenticated() bool { return s.State == StateAuthenticated }
func (s Snapshot) IsLoading() bool       { return s.State == StateLoading }

// Reader is the read-only view of the session handed to everything
// except the login flow and the gateway.
type Reader interface {
	Token() string
	Snapshot() Snapshot
	User() (domain.Identity, bool)
	IsAuthenticated() bool
	IsLoading() bool
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store owns the process-wide session. It starts in StateLoading and
// leaves it exactly once, through LoadFromStorage or SetAuth.
type Store struct {
	mu        sync.Mutex
	state     State
	token     string
	user      domain.Identity
	storage   TokenStorage
	logger    *zap.Logger
	now       func() time.Time
	listeners map[int]func(Snapshot)
	nextID    int
}

func NewStore(storage TokenStorage, logger *zap.Logger, opts ...Option) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	s := &Store{
		state:     StateLoading,
		storage:   storage,
		logger:    logging.OrNop(logger),
		now:       time.Now,
		listeners: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetAuth installs a freshly issued token. Tokens that are malformed or
// already expired are refused and leave the state untouched.
func (s *Store) SetAuth(ctx context.Context, token string, user domain.Identity) error {
	if IsExpired(token, s.now()) {
		return fmt.Errorf("set auth: %w", domain.ErrAuthExpired)
	}
	if err := user.Validate(); err != nil {
		return fmt.Errorf("set auth: %w", err)
	}

	s.mu.Lock()
	if err := s.storage.Save(ctx, token); err != nil {
		s.logger.Warn("persist access token failed", zap.Error(err))
	}
	s.state = StateAuthenticated
	s.token = token
	s.user = user
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("session started", zap.String("username", user.Username), zap.String("position", string(user.Position)))
	s.notify(snap)
	return nil
}

// Logout clears the session and its persisted token. It reports whether
// an authenticated session was actually torn down, so callers racing on
// the same 401 can tell which one should redirect.
func (s *Store) Logout(ctx context.Context) bool {
	s.mu.Lock()
	prev := s.state
	transitioned := s.logoutLocked(ctx)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if prev != StateUnauthenticated {
		s.notify(snap)
	}
	return transitioned
}

func (s *Store) logoutLocked(ctx context.Context) bool {
	wasAuthenticated := s.state == StateAuthenticated
	if err := s.storage.Clear(ctx); err != nil {
		s.logger.Warn("clear access token failed", zap.Error(err))
	}
	s.state = StateUnauthenticated
	s.token = ""
	s.user = domain.Identity{}
	if wasAuthenticated {
		s.logger.Info("session ended")
	}
	return wasAuthenticated
}

// LoadFromStorage rehydrates the session at startup. Storage errors and
// stale tokens degrade to StateUnauthenticated; nothing is returned.
func (s *Store) LoadFromStorage(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateLoading {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	token, err := s.storage.Load(ctx)
	if err != nil {
		s.logger.Warn("load access token failed", zap.Error(err))
		token = ""
	}

	var claims Claims
	valid := false
	if token != "" && !IsExpired(token, s.now()) {
		claims, valid = Decode(token)
	}

	s.mu.Lock()
	if s.state != StateLoading {
		// A login finished while storage was being read.
		s.mu.Unlock()
		return
	}
	if valid {
		s.state = StateAuthenticated
		s.token = token
		s.user = claims.Identity()
	} else {
		if token != "" {
			if err := s.storage.Clear(ctx); err != nil {
				s.logger.Warn("clear stale access token failed", zap.Error(err))
			}
		}
		s.state = StateUnauthenticated
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("session restored", zap.String("state", snap.State.String()))
	s.notify(snap)
}

// ActiveToken returns the bearer token for an outgoing call, or "" when
// there is no session. A token found expired ends the session and the
// caller that ended it gets domain.ErrAuthExpired.
func (s *Store) ActiveToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state != StateAuthenticated {
		s.mu.Unlock()
		return "", nil
	}
	if !IsExpired(s.token, s.now()) {
		token := s.token
		s.mu.Unlock()
		return token, nil
	}
	s.logoutLocked(ctx)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return "", domain.ErrAuthExpired
}

// Subscribe registers fn for every state change and returns a func that
// removes it.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify(snap Snapshot) {
	s.mu.Lock()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state, Token: s.token}
	if s.state == StateAuthenticated {
		user := s.user
		snap.User = &user
	}
	return snap
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Store) User() (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.state == StateAuthenticated
}

func (s *Store) IsAuthenticated() bool {
	return s.Snapshot().IsAuthenticated()
}

func (s *Store) IsLoading() bool {
	return s.Snapshot().IsLoading()
}
