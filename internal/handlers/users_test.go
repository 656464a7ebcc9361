package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/playtube/backend/internal/auth"
	"github.com/playtube/backend/internal/media"
	"github.com/playtube/backend/internal/models"
	"github.com/playtube/backend/internal/repositories"
)

type memoryUserStore struct {
	users map[string]models.User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: make(map[string]models.User)}
}

func (s *memoryUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *memoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *memoryUserStore) FindByUsernameOrEmail(_ context.Context, identifier string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *memoryUserStore) UpdateRefreshToken(_ context.Context, userID, refreshToken string) error {
	return s.mutate(userID, func(u *models.User) { u.RefreshToken = refreshToken })
}

func (s *memoryUserStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	return s.mutate(userID, func(u *models.User) { u.PasswordHash = passwordHash })
}

func (s *memoryUserStore) UpdateDetails(_ context.Context, userID, fullName, email string) error {
	for id, existing := range s.users {
		if id != userID && existing.Email == email {
			return repositories.ErrConflict
		}
	}
	return s.mutate(userID, func(u *models.User) {
		u.FullName = fullName
		u.Email = email
	})
}

func (s *memoryUserStore) UpdateAvatar(_ context.Context, userID, avatarURL string) error {
	return s.mutate(userID, func(u *models.User) { u.AvatarURL = avatarURL })
}

func (s *memoryUserStore) UpdateCoverImage(_ context.Context, userID, coverImageURL string) error {
	return s.mutate(userID, func(u *models.User) { u.CoverImageURL = coverImageURL })
}

func (s *memoryUserStore) mutate(userID string, fn func(*models.User)) error {
	user, ok := s.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	fn(&user)
	s.users[userID] = user
	return nil
}

type fakeMediaStore struct {
	calls int
	fail  bool
}

func (s *fakeMediaStore) UploadFile(_ context.Context, localPath string) (media.UploadResult, error) {
	s.calls++
	if s.fail {
		return media.UploadResult{}, errors.New("upload rejected")
	}
	return media.UploadResult{
		URL: "https://cdn.example.com/playtube/" + filepath.Base(localPath),
		Key: "playtube/" + filepath.Base(localPath),
	}, nil
}

func newTestIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
}

func newUserHandler(t *testing.T, store *memoryUserStore, mediaStore *fakeMediaStore) UserHandler {
	t.Helper()
	return UserHandler{
		Users:     store,
		Tokens:    newTestIssuer(),
		Media:     mediaStore,
		UploadDir: t.TempDir(),
	}
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	for field, filename := range files {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file %s: %v", field, err)
		}
		if _, err := io.Copy(fw, strings.NewReader("file-bytes")); err != nil {
			t.Fatalf("write form file %s: %v", field, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func seedUser(t *testing.T, store *memoryUserStore, username, email, password string) models.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user := models.User{
		ID:           "user-" + username,
		Username:     username,
		Email:        email,
		FullName:     "Test " + username,
		AvatarURL:    "https://cdn.example.com/playtube/" + username + ".png",
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	store.users[user.ID] = user
	return user
}

func asCaller(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), callerKey, userID))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestRegister(t *testing.T) {
	store := newMemoryUserStore()
	mediaStore := &fakeMediaStore{}
	handler := newUserHandler(t, store, mediaStore)

	req := multipartRequest(t, "/api/v1/users/register", map[string]string{
		"fullname": "A B",
		"email":    "a@x.com",
		"username": "AB",
		"password": "secret",
	}, map[string]string{"avatar": "avatar.png"})
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	body := rec.Body.String()
	if strings.Contains(body, `"password"`) || strings.Contains(body, `"refreshToken"`) {
		t.Fatalf("response leaked secret fields: %s", body)
	}

	payload := decodeEnvelope(t, rec)
	data, ok := payload["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", payload["data"])
	}
	if data["username"] != "ab" {
		t.Fatalf("expected case-normalized username ab, got %v", data["username"])
	}
	if data["avatar"] == "" {
		t.Fatal("expected hosted avatar URL in response")
	}

	if mediaStore.calls != 1 {
		t.Fatalf("expected 1 media upload for avatar only, got %d", mediaStore.calls)
	}

	stored, err := store.FindByUsernameOrEmail(context.Background(), "ab")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if stored.PasswordHash == "secret" || !auth.CheckPassword(stored.PasswordHash, "secret") {
		t.Fatal("stored password is not a verifiable hash")
	}
}

func TestRegisterWithCoverImage(t *testing.T) {
	store := newMemoryUserStore()
	mediaStore := &fakeMediaStore{}
	handler := newUserHandler(t, store, mediaStore)

	req := multipartRequest(t, "/api/v1/users/register", map[string]string{
		"fullname": "A B",
		"email":    "a@x.com",
		"username": "ab",
		"password": "secret",
	}, map[string]string{"avatar": "avatar.png", "coverimage": "cover.jpg"})
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if mediaStore.calls != 2 {
		t.Fatalf("expected avatar and cover uploads, got %d", mediaStore.calls)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	store := newMemoryUserStore()
	mediaStore := &fakeMediaStore{}
	handler := newUserHandler(t, store, mediaStore)

	req := multipartRequest(t, "/api/v1/users/register", map[string]string{
		"fullname": "  ",
		"email":    "a@x.com",
		"username": "ab",
		"password": "secret",
	}, map[string]string{"avatar": "avatar.png"})
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
	if mediaStore.calls != 0 {
		t.Fatalf("expected no uploads for invalid input, got %d", mediaStore.calls)
	}
}

func TestRegisterMissingAvatar(t *testing.T) {
	store := newMemoryUserStore()
	mediaStore := &fakeMediaStore{}
	handler := newUserHandler(t, store, mediaStore)

	req := multipartRequest(t, "/api/v1/users/register", map[string]string{
		"fullname": "A B",
		"email":    "a@x.com",
		"username": "ab",
		"password": "secret",
	}, nil)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
	if mediaStore.calls != 0 {
		t.Fatalf("expected no upload attempt without an avatar, got %d", mediaStore.calls)
	}
}

func TestRegisterDuplicateUsernameIgnoresCase(t *testing.T) {
	store := newMemoryUserStore()
	mediaStore := &fakeMediaStore{}
	handler := newUserHandler(t, store, mediaStore)

	seedUser(t, store, "ab", "a@x.com", "secret")

	req := multipartRequest(t, "/api/v1/users/register", map[string]string{
		"fullname": "Another",
		"email":    "other@x.com",
		"username": "AB",
		"password": "secret",
	}, map[string]string{"avatar": "avatar.png"})
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d got %d", http.StatusConflict, rec.Code)
	}
	if mediaStore.calls != 0 {
		t.Fatalf("expected no uploads for duplicate user, got %d", mediaStore.calls)
	}
}

func TestRegisterUploadFailure(t *testing.T) {
	store := newMemoryUserStore()
	mediaStore := &fakeMediaStore{fail: true}
	handler := newUserHandler(t, store, mediaStore)

	req := multipartRequest(t, "/api/v1/users/register", map[string]string{
		"fullname": "A B",
		"email":    "a@x.com",
		"username": "ab",
		"password": "secret",
	}, map[string]string{"avatar": "avatar.png"})
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d got %d", http.StatusInternalServerError, rec.Code)
	}
	if len(store.users) != 0 {
		t.Fatal("no user should be persisted when the avatar upload fails")
	}
}

func TestRegisterPreservesPasswordPadding(t *testing.T) {
	store := newMemoryUserStore()
	handler := newUserHandler(t, store, &fakeMediaStore{})

	req := multipartRequest(t, "/api/v1/users/register", map[string]string{
		"fullname": "A B",
		"email":    "a@x.com",
		"username": "ab",
		"password": "  secret  ",
	}, map[string]string{"avatar": "avatar.png"})
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	login := func(password string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login",
			loginBody(t, loginRequest{Username: "ab", Password: password}))
		rec := httptest.NewRecorder()
		handler.Login(rec, req)
		return rec
	}

	if rec := login("  secret  "); rec.Code != http.StatusOK {
		t.Fatalf("expected the password to round-trip exactly as registered, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := login("secret"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected the trimmed variant to be a different password, got %d", rec.Code)
	}
}

func TestZeroValueHandlerDoesNotPanic(t *testing.T) {
	handler := UserHandler{}

	calls := []struct {
		name string
		do   func(w http.ResponseWriter, r *http.Request)
		req  *http.Request
	}{
		{"refresh", handler.Refresh, httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", bytes.NewReader([]byte(`{"refreshToken":"x"}`)))},
		{"logout", handler.Logout, asCaller(httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil), "user-1")},
		{"me", handler.CurrentUser, asCaller(httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil), "user-1")},
		{"avatar", handler.UpdateAvatar, asCaller(httptest.NewRequest(http.MethodPatch, "/api/v1/users/avatar", nil), "user-1")},
		{"cover", handler.UpdateCoverImage, asCaller(httptest.NewRequest(http.MethodPatch, "/api/v1/users/cover-image", nil), "user-1")},
	}

	for _, call := range calls {
		t.Run(call.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			call.do(rec, call.req)
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("expected status %d from an unconfigured handler, got %d", http.StatusInternalServerError, rec.Code)
			}
		})
	}
}

func loginBody(t *testing.T, req loginRequest) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal login request: %v", err)
	}
	return bytes.NewReader(body)
}

func TestLoginUnknownUser(t *testing.T) {
	store := newMemoryUserStore()
	handler := newUserHandler(t, store, &fakeMediaStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login",
		loginBody(t, loginRequest{Email: "nobody@x.com", Password: "secret"}))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	store := newMemoryUserStore()
	handler := newUserHandler(t, store, &fakeMediaStore{})
	seedUser(t, store, "alice", "alice@x.com", "correct")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login",
		loginBody(t, loginRequest{Email: "alice@x.com", Password: "wrong"}))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestLoginNormalizesIdentifier(t *testing.T) {
	store := newMemoryUserStore()
	handler := newUserHandler(t, store, &fakeMediaStore{})
	user := seedUser(t, store, "alice", "alice@x.com", "secret")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login",
		loginBody(t, loginRequest{Username: "  AliCe ", Password: "secret"}))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	body := rec.Body.String()
	if strings.Contains(body, `"password"`) {
		t.Fatalf("login response leaked password field: %s", body)
	}

	cookies := rec.Result().Cookies()
	var gotAccess, gotRefresh bool
	for _, c := range cookies {
		switch c.Name {
		case accessCookie:
			gotAccess = true
		case refreshCookie:
			gotRefresh = true
		default:
			continue
		}
		if !c.HttpOnly || !c.Secure {
			t.Fatalf("cookie %s must be httpOnly and secure: %+v", c.Name, c)
		}
	}
	if !gotAccess || !gotRefresh {
		t.Fatalf("expected both auth cookies, got %v", cookies)
	}

	stored, err := store.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.RefreshToken == "" {
		t.Fatal("expected refresh token to be persisted on login")
	}
}

func TestRefreshRotation(t *testing.T) {
	store := newMemoryUserStore()
	handler := newUserHandler(t, store, &fakeMediaStore{})
	user := seedUser(t, store, "alice", "alice@x.com", "secret")

	login := httptest.NewRequest(http.MethodPost, "/api/v1/users/login",
		loginBody(t, loginRequest{Username: "alice", Password: "secret"}))
	loginRec := httptest.NewRecorder()
	handler.Login(loginRec, login)
	if loginRec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", loginRec.Code, loginRec.Body.String())
	}

	first, err := store.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	oldToken := first.RefreshToken

	refreshReq := func(token string) *httptest.ResponseRecorder {
		body, err := json.Marshal(refreshRequest{RefreshToken: token})
		if err != nil {
			t.Fatalf("marshal refresh request: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Refresh(rec, req)
		return rec
	}

	rec := refreshReq(oldToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected refresh to succeed, got %d: %s", rec.Code, rec.Body.String())
	}

	rotated, err := store.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if rotated.RefreshToken == oldToken {
		t.Fatal("expected the stored refresh token to rotate")
	}

	if rec := refreshReq(oldToken); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected the previous refresh token to be rejected, got %d", rec.Code)
	}

	if rec := refreshReq(rotated.RefreshToken); rec.Code != http.StatusOK {
		t.Fatalf("expected the rotated refresh token to work, got %d", rec.Code)
	}
}

func TestRefreshMissingToken(t *testing.T) {
	handler := newUserHandler(t, newMemoryUserStore(), &fakeMediaStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()

	handler.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRefreshFromCookie(t *testing.T) {
	store := newMemoryUserStore()
	handler := newUserHandler(t, store, &fakeMediaStore{})
	user := seedUser(t, store, "alice", "alice@x.com", "secret")

	pair, err := handler.Tokens.Issue(user)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	if err := store.UpdateRefreshToken(context.Background(), user.ID, pair.RefreshToken); err != nil {
		t.Fatalf("persist refresh token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookie, Value: pair.RefreshToken})
	rec := httptest.NewRecorder()

	handler.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestLogout(t *testing.T) {
	store := newMemoryUserStore()
	handler := newUserHandler(t, store, &fakeMediaStore{})
	user := seedUser(t, store, "alice", "alice@x.com", "secret")
	if err := store.UpdateRefreshToken(context.Background(), user.ID, "some-refresh-token"); err != nil {
		t.Fatalf("seed refresh token: %v", err)
	}

	req := asCaller(httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil), user.ID)
	rec := httptest.NewRecorder()

	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	stored, err := store.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.RefreshToken != "" {
		t.Fatal("expected stored refresh token to be cleared on logout")
	}

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 && c.Value != "" {
			t.Fatalf("expected cookie %s to be expired, got %+v", c.Name, c)
		}
	}
}

func TestChangePassword(t *testing.T) {
	store := newMemoryUserStore()
	handler := newUserHandler(t, store, &fakeMediaStore{})
	user := seedUser(t, store, "alice", "alice@x.com", "old-secret")

	post := func(old, new string) *httptest.ResponseRecorder {
		body, err := json.Marshal(changePasswordRequest{OldPassword: old, NewPassword: new})
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req := asCaller(httptest.NewRequest(http.MethodPost, "/api/v1/users/change-password", bytes.NewReader(body)), user.ID)
		rec := httptest.NewRecorder()
		handler.ChangePassword(rec, req)
		return rec
	}

	if rec := post("wrong", "new-secret"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d for wrong old password, got %d", http.StatusUnauthorized, rec.Code)
	}

	if rec := post("old-secret", "new-secret"); rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	stored, err := store.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !auth.CheckPassword(stored.PasswordHash, "new-secret") {
		t.Fatal("expected the new password to verify after change")
	}
}

func TestUpdateDetails(t *testing.T) {
	store := newMemoryUserStore()
	handler := newUserHandler(t, store, &fakeMediaStore{})
	user := seedUser(t, store, "alice", "alice@x.com", "secret")

	body, err := json.Marshal(updateDetailsRequest{FullName: "Alice Cooper", Email: "Cooper@X.com"})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := asCaller(httptest.NewRequest(http.MethodPatch, "/api/v1/users/update-details", bytes.NewReader(body)), user.ID)
	rec := httptest.NewRecorder()

	handler.UpdateDetails(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	stored, err := store.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.FullName != "Alice Cooper" || stored.Email != "cooper@x.com" {
		t.Fatalf("unexpected stored details: %+v", stored)
	}
}

func TestUpdateAvatar(t *testing.T) {
	store := newMemoryUserStore()
	mediaStore := &fakeMediaStore{}
	handler := newUserHandler(t, store, mediaStore)
	user := seedUser(t, store, "alice", "alice@x.com", "secret")

	req := asCaller(multipartRequest(t, "/api/v1/users/avatar", nil,
		map[string]string{"avatar": "new-avatar.png"}), user.ID)
	req.Method = http.MethodPatch
	rec := httptest.NewRecorder()

	handler.UpdateAvatar(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	stored, err := store.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !strings.HasSuffix(stored.AvatarURL, ".png") || stored.AvatarURL == user.AvatarURL {
		t.Fatalf("expected a new hosted avatar URL, got %s", stored.AvatarURL)
	}
}

func TestUpdateAvatarUploadFailure(t *testing.T) {
	store := newMemoryUserStore()
	handler := newUserHandler(t, store, &fakeMediaStore{fail: true})
	user := seedUser(t, store, "alice", "alice@x.com", "secret")

	req := asCaller(multipartRequest(t, "/api/v1/users/avatar", nil,
		map[string]string{"avatar": "new-avatar.png"}), user.ID)
	req.Method = http.MethodPatch
	rec := httptest.NewRecorder()

	handler.UpdateAvatar(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d on upload failure, got %d", http.StatusBadRequest, rec.Code)
	}

	stored, err := store.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.AvatarURL != user.AvatarURL {
		t.Fatal("avatar URL must not change when the upload fails")
	}
}

func TestCurrentUser(t *testing.T) {
	store := newMemoryUserStore()
	handler := newUserHandler(t, store, &fakeMediaStore{})
	user := seedUser(t, store, "alice", "alice@x.com", "secret")

	req := asCaller(httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil), user.ID)
	rec := httptest.NewRecorder()

	handler.CurrentUser(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	payload := decodeEnvelope(t, rec)
	data, ok := payload["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", payload["data"])
	}
	if data["username"] != "alice" {
		t.Fatalf("unexpected user payload: %v", data)
	}
	if _, leaked := data["password"]; leaked {
		t.Fatal("current user response leaked password")
	}
}

func TestEnvelopeShape(t *testing.T) {
	handler := newUserHandler(t, newMemoryUserStore(), &fakeMediaStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login",
		loginBody(t, loginRequest{Password: "only-password"}))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	payload := decodeEnvelope(t, rec)
	if payload["success"] != false {
		t.Fatalf("expected success=false, got %v", payload["success"])
	}
	if fmt.Sprintf("%v", payload["statusCode"]) != "400" {
		t.Fatalf("expected statusCode 400, got %v", payload["statusCode"])
	}
	if payload["message"] == "" {
		t.Fatal("expected an error message")
	}
}
