package memory

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gotchalabs/social-auth/internal/util"
	"github.com/gotchalabs/social-auth/security"
	"github.com/gotchalabs/social-auth/storage"
)

const (
	maxStoredRequests = 10000
	cleanupInterval   = 60 * time.Second
)

// RequestStore is an in-memory storage.AuthRequestStore keyed by state
// value. A background goroutine sweeps expired entries; call Stop when
// the store is no longer needed.
type RequestStore struct {
	mu       sync.RWMutex
	requests map[string]*storage.AuthorizationRequest

	// redirect targets from consumed requests, readable once
	removedRedirects map[string]string

	validator storage.RedirectValidator
	logger    *slog.Logger
	now       security.NowFunc

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

var _ storage.AuthRequestStore = (*RequestStore)(nil)

// NewRequestStore creates a RequestStore and starts its cleanup
// goroutine. validator may be nil to accept any redirect target.
func NewRequestStore(validator storage.RedirectValidator) *RequestStore {
	s := &RequestStore{
		requests:         make(map[string]*storage.AuthorizationRequest),
		removedRedirects: make(map[string]string),
		validator:        validator,
		logger:           slog.Default(),
		now:              time.Now,
		stopCleanup:      make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// SetLogger replaces the store's logger.
func (s *RequestStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetClock replaces the store's time source. Intended for tests.
func (s *RequestStore) SetClock(now security.NowFunc) {
	if now != nil {
		s.now = now
	}
}

// SaveAuthorizationRequest stores req keyed by its state. Passing a nil
// req removes the entry matching r's state parameter instead.
func (s *RequestStore) SaveAuthorizationRequest(w http.ResponseWriter, r *http.Request, req *storage.AuthorizationRequest) error {
	if req == nil {
		s.mu.Lock()
		delete(s.requests, stateParam(r))
		s.mu.Unlock()
		return nil
	}
	if req.State == "" {
		return storage.ErrStateNotFound
	}

	stored := *req
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	if stored.RedirectURI != "" && s.validator != nil && !s.validator.IsAllowed(stored.RedirectURI) {
		s.logger.Warn("rejecting unauthorized redirect URI",
			"redirect_uri", util.SafeTruncate(stored.RedirectURI, 64))
		stored.RedirectURI = ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) >= maxStoredRequests {
		s.evictExpiredLocked()
		if len(s.requests) >= maxStoredRequests {
			s.logger.Warn("authorization request store at capacity",
				"size", len(s.requests))
		}
	}
	s.requests[stored.State] = &stored
	return nil
}

// LoadAuthorizationRequest returns the request matching r's state
// parameter without consuming it.
func (s *RequestStore) LoadAuthorizationRequest(r *http.Request) (*storage.AuthorizationRequest, error) {
	state := stateParam(r)
	if state == "" {
		return nil, storage.ErrStateNotFound
	}

	s.mu.RLock()
	req, ok := s.requests[state]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrStateNotFound
	}
	if req.IsExpiredAt(s.now()) {
		s.mu.Lock()
		delete(s.requests, state)
		delete(s.removedRedirects, state)
		s.mu.Unlock()
		return nil, storage.ErrStateExpired
	}
	cp := *req
	return &cp, nil
}

// RemoveAuthorizationRequest atomically loads and deletes the request
// matching r's state parameter. The request's redirect target, if any,
// is stashed for a single later RedirectURI call.
func (s *RequestStore) RemoveAuthorizationRequest(w http.ResponseWriter, r *http.Request) (*storage.AuthorizationRequest, error) {
	state := stateParam(r)
	if state == "" {
		return nil, storage.ErrStateNotFound
	}

	s.mu.Lock()
	req, ok := s.requests[state]
	if ok {
		delete(s.requests, state)
		if req.RedirectURI != "" {
			s.removedRedirects[state] = req.RedirectURI
		}
	}
	s.mu.Unlock()

	if !ok {
		return nil, storage.ErrStateNotFound
	}
	if req.IsExpiredAt(s.now()) {
		s.mu.Lock()
		delete(s.removedRedirects, state)
		s.mu.Unlock()
		return nil, storage.ErrStateExpired
	}
	cp := *req
	return &cp, nil
}

// RedirectURI returns the redirect target stashed by the last
// RemoveAuthorizationRequest for r's state, consuming it.
func (s *RequestStore) RedirectURI(r *http.Request) string {
	state := stateParam(r)
	if state == "" {
		return ""
	}
	s.mu.Lock()
	uri, ok := s.removedRedirects[state]
	if ok {
		delete(s.removedRedirects, state)
	}
	s.mu.Unlock()
	if !ok {
		return ""
	}
	return uri
}

// ClearRedirectURI discards any stashed redirect target for r's state.
func (s *RequestStore) ClearRedirectURI(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.removedRedirects, stateParam(r))
	s.mu.Unlock()
}

// Len returns the number of stored requests. Used by metric callbacks.
func (s *RequestStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requests)
}

// Stop terminates the cleanup goroutine. Safe to call multiple times.
func (s *RequestStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
}

func (s *RequestStore) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			removed := s.evictExpiredLocked()
			s.mu.Unlock()
			if removed > 0 {
				s.logger.Debug("cleaned up expired authorization requests",
					"removed", removed)
			}
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *RequestStore) evictExpiredLocked() int {
	now := s.now()
	removed := 0
	for state, req := range s.requests {
		if req.IsExpiredAt(now) {
			delete(s.requests, state)
			delete(s.removedRedirects, state)
			removed++
		}
	}
	return removed
}

func stateParam(r *http.Request) string {
	if r == nil {
		return ""
	}
	if v := r.URL.Query().Get("state"); v != "" {
		return v
	}
	// Apple posts the callback as a form instead of a query string.
	if r.Method == http.MethodPost {
		return r.PostFormValue("state")
	}
	return ""
}
