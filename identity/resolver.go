package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gotchalabs/social-auth/providers"
	"github.com/gotchalabs/social-auth/security"
)

// Resolver maps authenticated external identities to local users,
// creating an account on first login and enforcing account state on
// every login after.
type Resolver struct {
	repo             UserRepository
	nicknames        *NicknameGenerator
	defaultAvatarURL string
	logger           *slog.Logger
	auditor          *security.Auditor
	now              security.NowFunc
}

// NewResolver creates a Resolver over repo.
func NewResolver(repo UserRepository) *Resolver {
	return &Resolver{
		repo:      repo,
		nicknames: NewNicknameGenerator(),
		logger:    slog.Default(),
		now:       time.Now,
	}
}

// SetLogger replaces the resolver's logger.
func (r *Resolver) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetAuditor attaches an audit logger for account state rejections.
func (r *Resolver) SetAuditor(a *security.Auditor) { r.auditor = a }

// SetClock replaces the resolver's time source. Intended for tests.
func (r *Resolver) SetClock(now security.NowFunc) {
	if now != nil {
		r.now = now
	}
}

// SetDefaultAvatarURL sets the avatar applied to new accounts when the
// provider does not supply a profile image.
func (r *Resolver) SetDefaultAvatarURL(url string) { r.defaultAvatarURL = url }

// SetNicknameGenerator replaces the nickname source. Intended for tests.
func (r *Resolver) SetNicknameGenerator(g *NicknameGenerator) {
	if g != nil {
		r.nicknames = g
	}
}

// Resolve returns the local user for ext, provisioning one on first
// login. The bool result reports whether the user was just created.
// Deleted, banned, and still-suspended accounts are rejected; a
// suspension whose window has elapsed is lifted in place.
func (r *Resolver) Resolve(ctx context.Context, ext *providers.ExternalIdentity) (*User, bool, error) {
	if ext == nil || ext.SubjectID == "" {
		return nil, false, ErrBlankSubject
	}

	user, err := r.repo.FindBySocial(ctx, ext.Provider, ext.SubjectID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		created, err := r.provision(ctx, ext)
		if err != nil {
			return nil, false, err
		}
		return created, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("looking up %s user: %w", ext.Provider, err)
	}

	if err := r.checkAccountState(user); err != nil {
		return nil, false, err
	}
	if err := r.refresh(ctx, user, ext); err != nil {
		return nil, false, err
	}
	return user, false, nil
}

// provision creates the local account for a first login. The provider's
// display name is not carried over; every new account gets a generated
// nickname so names stay collision-checked and uniform.
func (r *Resolver) provision(ctx context.Context, ext *providers.ExternalIdentity) (*User, error) {
	nickname, err := r.nicknames.Generate(ctx, r.repo.ExistsByNickname)
	if err != nil {
		return nil, fmt.Errorf("generating nickname: %w", err)
	}
	avatar := ext.AvatarURL
	if avatar == "" {
		avatar = r.defaultAvatarURL
	}
	now := r.now()
	user := &User{
		Provider:          ext.Provider,
		SubjectID:         ext.SubjectID,
		Nickname:          nickname,
		Email:             ext.Email,
		AvatarURL:         avatar,
		SocialRevokeToken: ext.RevokeToken,
		Status:            StatusActive,
		CreatedAt:         now,
		LastLoginAt:       now,
	}
	created, err := r.repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("creating %s user: %w", ext.Provider, err)
	}
	r.logger.Info("provisioned user from social login",
		"provider", ext.Provider, "user_id", created.ID)
	return created, nil
}

func (r *Resolver) checkAccountState(user *User) error {
	switch user.Status {
	case StatusDeleted:
		r.audit(security.EventDeletedUserLogin, user)
		return ErrUserDeleted
	case StatusBanned:
		r.audit(security.EventLoginFailed, user)
		return ErrUserBanned
	case StatusSuspended:
		if !user.SuspendedUntil.IsZero() && !r.now().Before(user.SuspendedUntil) {
			user.Status = StatusActive
			user.SuspendedUntil = time.Time{}
			r.logger.Info("lifted elapsed suspension", "user_id", user.ID)
			return nil
		}
		r.audit(security.EventLoginFailed, user)
		return ErrUserSuspended
	default:
		return nil
	}
}

// refresh folds newly provided profile fields into the account and
// stamps the login.
func (r *Resolver) refresh(ctx context.Context, user *User, ext *providers.ExternalIdentity) error {
	if ext.Email != "" && ext.Email != user.Email {
		user.Email = ext.Email
	}
	if ext.AvatarURL != "" && ext.AvatarURL != user.AvatarURL {
		user.AvatarURL = ext.AvatarURL
	}
	if ext.RevokeToken != "" && user.SocialRevokeToken == "" {
		user.SocialRevokeToken = ext.RevokeToken
	}
	user.LastLoginAt = r.now()
	if err := r.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("updating %s user: %w", ext.Provider, err)
	}
	return nil
}

func (r *Resolver) audit(event string, user *User) {
	if r.auditor == nil {
		return
	}
	r.auditor.LogEvent(security.Event{
		Type:     event,
		UserID:   fmt.Sprintf("%d", user.ID),
		Provider: string(user.Provider),
	})
}
