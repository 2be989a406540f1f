package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"
	"github.com/scene-dev/storymap/internal/apperror"
	"github.com/scene-dev/storymap/internal/model"
	"github.com/scene-dev/storymap/internal/repository"
)

// =========================================================================
// IN-MEMORY FAKES
// =========================================================================

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
// A hand-written fake (not a mock framework) keeps these tests readable —
// what the fake does is right here on the page.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // keyed by internal ID
	// set to a non-nil error to simulate a database failure
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.ExternalID == user.ExternalID {
			return apperror.Conflict("user", user.ExternalID)
		}
	}
	user.ID = xid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ExternalID == externalID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", externalID)
}

func (f *fakeUserRepo) UpdateIntro(ctx context.Context, id, intro string) error {
	return f.setField(id, func(u *model.User) { u.IntroText = intro })
}

func (f *fakeUserRepo) UpdateProfileImage(ctx context.Context, id, path string) error {
	return f.setField(id, func(u *model.User) { u.ProfileImage = path })
}

func (f *fakeUserRepo) UpdateBackgroundImage(ctx context.Context, id, path string) error {
	return f.setField(id, func(u *model.User) { u.BackgroundImage = path })
}

func (f *fakeUserRepo) setField(id string, apply func(*model.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	apply(u)
	u.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	return nil
}

// fakeFeedRepo is an in-memory implementation of repository.FeedRepository.
// Insertion order is tracked so GetByCoords can return the first-inserted
// match, same as the SQL implementation.
type fakeFeedRepo struct {
	mu    sync.Mutex
	feeds []*model.Feed
}

func newFakeFeedRepo() *fakeFeedRepo {
	return &fakeFeedRepo{}
}

func (f *fakeFeedRepo) Create(ctx context.Context, feed *model.Feed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if feed.ID == "" {
		feed.ID = uuid.NewString()
	}
	feed.CreatedAt = time.Now()
	feed.UpdatedAt = feed.CreatedAt
	copied := *feed
	f.feeds = append(f.feeds, &copied)
	return nil
}

func (f *fakeFeedRepo) GetByID(ctx context.Context, id string) (*model.Feed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fd := range f.feeds {
		if fd.ID == id {
			copied := *fd
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("feed", id)
}

func (f *fakeFeedRepo) GetByCoords(ctx context.Context, lat, lng float64) (*model.Feed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fd := range f.feeds {
		if fd.Latitude == lat && fd.Longitude == lng {
			copied := *fd
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("feed", fmt.Sprintf("%v,%v", lat, lng))
}

func (f *fakeFeedRepo) List(ctx context.Context) ([]model.Feed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Feed, 0, len(f.feeds))
	for _, fd := range f.feeds {
		out = append(out, *fd)
	}
	return out, nil
}

func (f *fakeFeedRepo) ListInViewport(ctx context.Context, box repository.Viewport) ([]model.Feed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Feed, 0)
	for _, fd := range f.feeds {
		if fd.Latitude >= box.MinLat && fd.Latitude <= box.MaxLat &&
			fd.Longitude >= box.MinLng && fd.Longitude <= box.MaxLng {
			out = append(out, *fd)
		}
	}
	return out, nil
}

func (f *fakeFeedRepo) UpdateIntroduction(ctx context.Context, id, introduction string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fd := range f.feeds {
		if fd.ID == id {
			fd.Introduction = introduction
			fd.UpdatedAt = time.Now()
			return nil
		}
	}
	return apperror.NotFound("feed", id)
}

// fakeSessionRepo is an in-memory implementation of
// repository.SessionRepository with the same lazy expiry as the SQL store.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*model.Session)}
}

func (f *fakeSessionRepo) Create(ctx context.Context, session *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session.CreatedAt = time.Now()
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeSessionRepo) Get(ctx context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	if s.Expired(time.Now()) {
		delete(f.sessions, id)
		return nil, apperror.NotFound("session", id)
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSessionRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.Expired(now) {
			delete(f.sessions, id)
		}
	}
	return nil
}
