package repository

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cinegate/cinegate/internal/model"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
)

// userRecord guards one user's mutable state. Favorites mutations lock
// only the record, so different users never contend.
type userRecord struct {
	mu   sync.Mutex
	user model.User
}

// UserRepository is the process-lifetime credential store, keyed by
// username. Data is lost on restart.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*userRecord
	now   func() time.Time
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[string]*userRecord),
		now:   time.Now,
	}
}

// Create stores a new user and sets the generated ID and creation time.
// An existing username is left untouched and ErrDuplicateUser is returned.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Username]; exists {
		return ErrDuplicateUser
	}

	user.ID = uuid.NewString()
	user.CreatedAt = r.now().UTC()
	user.Favorites = []model.FavoriteRef{}

	r.users[user.Username] = &userRecord{user: cloneUser(*user)}
	return nil
}

// Exists reports whether a username is registered.
func (r *UserRepository) Exists(ctx context.Context, username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.users[username]
	return ok
}

// GetByUsername returns a snapshot of the user record.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	rec, err := r.record(username)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	u := cloneUser(rec.user)
	return &u, nil
}

// Favorites returns a copy of the user's favorites in insertion order.
func (r *UserRepository) Favorites(ctx context.Context, username string) ([]model.FavoriteRef, error) {
	rec, err := r.record(username)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	return slices.Clone(rec.user.Favorites), nil
}

// AddFavorite appends ref to the user's favorites. Duplicates are kept.
func (r *UserRepository) AddFavorite(ctx context.Context, username string, ref model.FavoriteRef) error {
	rec, err := r.record(username)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.user.Favorites = append(rec.user.Favorites, ref)
	return nil
}

// RemoveFavorite deletes the first favorite with the given id, whatever its
// kind, and reports whether one was removed.
func (r *UserRepository) RemoveFavorite(ctx context.Context, username string, id int) (bool, error) {
	rec, err := r.record(username)
	if err != nil {
		return false, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	idx := slices.IndexFunc(rec.user.Favorites, func(f model.FavoriteRef) bool {
		return f.ID == id
	})
	if idx == -1 {
		return false, nil
	}

	rec.user.Favorites = slices.Delete(rec.user.Favorites, idx, idx+1)
	return true, nil
}

func (r *UserRepository) record(username string) (*userRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return rec, nil
}

func cloneUser(u model.User) model.User {
	u.Favorites = slices.Clone(u.Favorites)
	return u
}
