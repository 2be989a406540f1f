package handler_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/scene-dev/storymap/internal/auth"
	"github.com/scene-dev/storymap/internal/handler"
	"github.com/scene-dev/storymap/internal/media"
	sqliteRepo "github.com/scene-dev/storymap/internal/repository/sqlite"
	"github.com/scene-dev/storymap/internal/service"
)

// fakeNaver scripts the OAuth provider and counts Exchange calls, so
// tests can assert that a bad state never reaches the token endpoint.
type fakeNaver struct {
	user          *auth.NaverUser
	exchangeErr   error
	exchangeCalls int
}

func (f *fakeNaver) AuthURL(state string) string {
	return "https://nid.example.test/authorize?state=" + state
}

func (f *fakeNaver) Exchange(ctx context.Context, code string) (*auth.NaverUser, error) {
	f.exchangeCalls++
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.user, nil
}

// testEnv is a fully wired stack on an in-memory database, mounted on
// the same routes the real server uses.
type testEnv struct {
	router *chi.Mux
	naver  *fakeNaver
	auths  *service.AuthService
	feeds  *service.FeedService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqliteRepo.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := media.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("media.NewStore: %v", err)
	}

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("auth.NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)

	naver := &fakeNaver{}

	authService := service.NewAuthService(db.Users(), db.Sessions(), tokens, passwords, logger)
	profileService := service.NewProfileService(db.Users(), store, logger)
	feedService := service.NewFeedService(db.Feeds(), store, logger)

	authHandler := handler.NewAuthHandler(authService, naver, logger)
	profileHandler := handler.NewProfileHandler(profileService, logger)
	feedHandler := handler.NewFeedHandler(feedService, logger)

	requireAuth := auth.RequireAuth(tokens, db.Sessions())

	router := chi.NewRouter()
	router.Post("/register", authHandler.HandleRegister)
	router.Post("/login", authHandler.HandleLogin)
	router.Get("/auth/naver/login", authHandler.HandleNaverLogin)
	router.Get("/naver_callback", authHandler.HandleNaverCallback)
	router.Get("/get_feeds", feedHandler.HandleGetFeeds)
	router.Get("/feeds", feedHandler.HandleQueryFeeds)
	router.Get("/get_feed_data", feedHandler.HandleGetFeedData)
	router.Get("/get_feed_data_by_coords", feedHandler.HandleGetFeedDataByCoords)
	router.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/logout", authHandler.HandleLogout)
		r.Get("/profile", profileHandler.HandleGetProfile)
		r.Post("/upload_profile_pic", profileHandler.HandleUploadProfilePic)
		r.Post("/upload_background", profileHandler.HandleUploadBackground)
		r.Post("/update_intro", profileHandler.HandleUpdateIntro)
		r.Post("/delete_account", profileHandler.HandleDeleteAccount)
		r.Post("/add_feed", feedHandler.HandleAddFeed)
		r.Post("/add_feed_full", feedHandler.HandleAddFeedFull)
		r.Post("/update_feed_full", feedHandler.HandleUpdateFeedFull)
	})

	return &testEnv{router: router, naver: naver, auths: authService, feeds: feedService}
}

// do runs one request through the router.
func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// postForm builds a urlencoded POST.
func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// registerAndLogin creates an account and returns the session cookie.
func (e *testEnv) registerAndLogin(t *testing.T, userID, password, nickname string) *http.Cookie {
	t.Helper()

	rr := e.do(postForm("/register", url.Values{
		"user_id":  {userID},
		"password": {password},
		"nickname": {nickname},
	}))
	if rr.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", rr.Code, rr.Body.String())
	}

	rr = e.do(postForm("/login", url.Values{
		"user_id":  {userID},
		"password": {password},
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rr.Code, rr.Body.String())
	}

	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookie && c.Value != "" {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}
