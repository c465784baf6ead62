// Package testutil provides shared fakes for tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/gotchalabs/social-auth/identity"
	"github.com/gotchalabs/social-auth/providers"
)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a Clock at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time. Pass as a security.NowFunc.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// UserRepo is an in-memory identity.UserRepository.
type UserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*identity.User

	// Err, when set, is returned by every method.
	Err error

	CreateCalls int
	UpdateCalls int
}

var _ identity.UserRepository = (*UserRepo)(nil)

func NewUserRepo() *UserRepo {
	return &UserRepo{nextID: 1, users: make(map[int64]*identity.User)}
}

// Seed inserts u directly, assigning an ID if unset.
func (r *UserRepo) Seed(u *identity.User) *identity.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == 0 {
		u.ID = r.nextID
		r.nextID++
	}
	cp := *u
	r.users[u.ID] = &cp
	return u
}

// Get returns the stored copy of the user with the given id, or nil.
func (r *UserRepo) Get(id int64) *identity.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (r *UserRepo) FindBySocial(ctx context.Context, p providers.Provider, subjectID string) (*identity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, u := range r.users {
		if u.Provider == p && u.SubjectID == subjectID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (r *UserRepo) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	for _, u := range r.users {
		if u.Nickname == nickname {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepo) Create(ctx context.Context, u *identity.User) (*identity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	r.CreateCalls++
	cp := *u
	cp.ID = r.nextID
	r.nextID++
	stored := cp
	r.users[cp.ID] = &stored
	return &cp, nil
}

func (r *UserRepo) Update(ctx context.Context, u *identity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.UpdateCalls++
	cp := *u
	r.users[u.ID] = &cp
	return nil
}
