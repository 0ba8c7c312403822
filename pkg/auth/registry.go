package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/josenovais97/distributed-systems/pkg/logger"
)

// MaxUsernameLength is the longest accepted username, in runes.
const MaxUsernameLength = 64

// maxPasswordBytes is the input limit of bcrypt.
const maxPasswordBytes = 72

// Registry is an in-memory credential store mapping usernames to bcrypt
// password hashes. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	hashes map[string][]byte

	bcryptCost int
	logger     *slog.Logger
}

type Option func(*Registry)

// WithBcryptCost sets the bcrypt cost for new hashes.
// Values outside bcrypt's accepted range fall back to bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option {
	return func(r *Registry) {
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			cost = bcrypt.DefaultCost
		}
		r.bcryptCost = cost
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty credential registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		hashes:     make(map[string][]byte),
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger.Noop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores a new user. Registering a name that is already taken
// returns ErrDuplicateRegistration and leaves the existing password intact.
func (r *Registry) Register(ctx context.Context, username, password string) error {
	name, err := NormalizeUsername(username)
	if err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	// Cheap pre-check so duplicates do not pay for a bcrypt hash.
	if r.Exists(ctx, name) {
		return ErrDuplicateRegistration
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.bcryptCost)
	if err != nil {
		return errors.Join(ErrFailedToHashPassword, err)
	}

	r.mu.Lock()
	if _, exists := r.hashes[name]; exists {
		r.mu.Unlock()
		return ErrDuplicateRegistration
	}
	r.hashes[name] = hash
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "user registered", logger.Username(name))
	return nil
}

// Authenticate checks a username and password pair. It returns
// ErrUserNotFound for unknown names and ErrInvalidCredentials for a wrong
// password.
func (r *Registry) Authenticate(ctx context.Context, username, password string) error {
	name, err := NormalizeUsername(username)
	if err != nil {
		return ErrUserNotFound
	}

	r.mu.RLock()
	hash, ok := r.hashes[name]
	r.mu.RUnlock()
	if !ok {
		return ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		r.logger.DebugContext(ctx, "authentication failed", logger.Username(name))
		return ErrInvalidCredentials
	}
	return nil
}

// Exists reports whether username is registered.
func (r *Registry) Exists(_ context.Context, username string) bool {
	name, err := NormalizeUsername(username)
	if err != nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.hashes[name]
	return ok
}

// Count returns the number of registered users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hashes)
}

// NormalizeUsername trims surrounding space and converts the name to Unicode
// NFC so that canonically equivalent spellings map to one account.
func NormalizeUsername(username string) (string, error) {
	name := norm.NFC.String(strings.TrimSpace(username))
	if name == "" || utf8.RuneCountInString(name) > MaxUsernameLength {
		return "", ErrInvalidUsername
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", ErrInvalidUsername
		}
	}
	return name, nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}
