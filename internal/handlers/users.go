package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playtube/backend/internal/auth"
	"github.com/playtube/backend/internal/logging"
	"github.com/playtube/backend/internal/models"
	"github.com/playtube/backend/internal/repositories"
)

// UserHandler implements registration, authentication, and profile endpoints.
type UserHandler struct {
	Users     UserStore
	Tokens    TokenService
	Media     MediaStore
	UploadDir string
	NowFunc   func() time.Time
}

// Register handles POST /api/v1/users/register. The request is a multipart
// form carrying fullname/email/username/password fields plus an avatar file
// (required) and a coverimage file (optional).
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Tokens == nil || h.Media == nil {
		logger.Error("registration dependencies unavailable")
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "registration service unavailable"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.Warn("invalid register payload", "error", err)
		respondError(ctx, w, newAPIError(http.StatusBadRequest, "invalid multipart request body"))
		return
	}

	fullName := strings.TrimSpace(r.FormValue("fullname"))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	// The password is hashed as submitted. Login and change-password compare
	// the raw value, so trimming here would lock padded passwords out.
	password := r.FormValue("password")

	if fullName == "" || email == "" || username == "" || strings.TrimSpace(password) == "" {
		respondError(ctx, w, newAPIError(http.StatusBadRequest, "all fields are required"))
		return
	}

	for _, identifier := range []string{username, email} {
		if _, err := h.Users.FindByUsernameOrEmail(ctx, identifier); err == nil {
			respondError(ctx, w, newAPIError(http.StatusConflict, "user already exists with this username or email"))
			return
		} else if !errors.Is(err, repositories.ErrNotFound) {
			logger.Error("register lookup failed", "identifier", identifier, "error", err)
			respondError(ctx, w, newAPIError(http.StatusInternalServerError, "unable to verify existing accounts"))
			return
		}
	}

	// uploadFormFile rejects a missing avatar with 400 before any external
	// upload is attempted.
	avatarURL, apiErr := h.uploadFormFile(r, "avatar", http.StatusInternalServerError)
	if apiErr != nil {
		respondError(ctx, w, apiErr)
		return
	}

	coverURL := ""
	if r.MultipartForm != nil && len(r.MultipartForm.File["coverimage"]) > 0 {
		coverURL, apiErr = h.uploadFormFile(r, "coverimage", http.StatusInternalServerError)
		if apiErr != nil {
			// A remote avatar may already exist at this point; there is no
			// cleanup path for it.
			respondError(ctx, w, apiErr)
			return
		}
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		logger.Error("register failed to hash password", "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "failed to secure password"))
		return
	}

	now := h.now()
	user := models.User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		PasswordHash:  passwordHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, newAPIError(http.StatusConflict, "user already exists with this username or email"))
			return
		}
		logger.Error("register failed to create user", "error", err, "username", username)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "failed to create user"))
		return
	}

	created, err := h.Users.FindByID(ctx, user.ID)
	if err != nil {
		logger.Error("register post-create fetch failed", "error", err, "userId", user.ID)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "user was not created, please try again later"))
		return
	}

	respondData(ctx, w, http.StatusCreated, created.Sanitize(), "user created successfully")
}

// Login handles POST /api/v1/users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Tokens == nil {
		logger.Error("authentication dependencies unavailable")
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "authentication service unavailable"))
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, newAPIError(http.StatusBadRequest, "invalid request body"))
		return
	}

	identifier := strings.ToLower(strings.TrimSpace(req.Username))
	if identifier == "" {
		identifier = strings.ToLower(strings.TrimSpace(req.Email))
	}

	if identifier == "" || req.Password == "" {
		respondError(ctx, w, newAPIError(http.StatusBadRequest, "username or email and password are required"))
		return
	}

	user, err := h.Users.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, newAPIError(http.StatusNotFound, "user does not exist"))
			return
		}
		logger.Error("login lookup failed", "identifier", identifier, "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "unable to look up user"))
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondError(ctx, w, newAPIError(http.StatusUnauthorized, "invalid user credentials"))
		return
	}

	pair, apiErr := h.issueSession(r, w, user)
	if apiErr != nil {
		respondError(ctx, w, apiErr)
		return
	}

	respondData(ctx, w, http.StatusOK, loginResponse{
		User:         user.Sanitize(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "user logged in successfully")
}

// Refresh handles POST /api/v1/users/refresh-token. The refresh token is read
// from the cookie first, then the body. A successful refresh rotates the
// stored token, so the previous refresh token is no longer accepted.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Tokens == nil {
		logger.Error("authentication dependencies unavailable")
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "authentication service unavailable"))
		return
	}

	token := ""
	if c, err := r.Cookie(refreshCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = strings.TrimSpace(req.RefreshToken)
		}
	}

	if token == "" {
		respondError(ctx, w, newAPIError(http.StatusUnauthorized, "refresh token is required"))
		return
	}

	claims, err := h.Tokens.VerifyRefresh(token)
	if err != nil {
		logger.Warn("refresh token rejected", "error", err)
		respondError(ctx, w, newAPIError(http.StatusUnauthorized, "invalid or expired refresh token"))
		return
	}

	user, err := h.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, newAPIError(http.StatusNotFound, "user does not exist"))
			return
		}
		logger.Error("refresh lookup failed", "userId", claims.UserID, "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "unable to look up user"))
		return
	}

	if user.RefreshToken == "" || user.RefreshToken != token {
		logger.Warn("refresh token mismatch", "userId", user.ID)
		respondError(ctx, w, newAPIError(http.StatusUnauthorized, "refresh token is expired or already used"))
		return
	}

	pair, apiErr := h.issueSession(r, w, user)
	if apiErr != nil {
		respondError(ctx, w, apiErr)
		return
	}

	respondData(ctx, w, http.StatusOK, pair, "access token refreshed")
}

// Logout handles POST /api/v1/users/logout. Requires authentication; clears
// the stored refresh token and expires both cookies.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Users == nil {
		logging.FromContext(ctx).Error("account dependencies unavailable")
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "account service unavailable"))
		return
	}

	userID := callerID(ctx)
	if userID == "" {
		respondError(ctx, w, newAPIError(http.StatusUnauthorized, "unauthorized request"))
		return
	}

	if err := h.Users.UpdateRefreshToken(ctx, userID, ""); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		logging.FromContext(ctx).Error("logout failed to clear refresh token", "userId", userID, "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "failed to log out"))
		return
	}

	clearAuthCookies(w)
	respondData(ctx, w, http.StatusOK, nil, "user logged out")
}

// CurrentUser handles GET /api/v1/users/me.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, apiErr := h.caller(r)
	if apiErr != nil {
		respondError(ctx, w, apiErr)
		return
	}

	respondData(ctx, w, http.StatusOK, user.Sanitize(), "current user fetched")
}

// ChangePassword handles POST /api/v1/users/change-password. The old password
// must verify before the new one is hashed and stored.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, newAPIError(http.StatusBadRequest, "invalid request body"))
		return
	}

	if strings.TrimSpace(req.OldPassword) == "" || strings.TrimSpace(req.NewPassword) == "" {
		respondError(ctx, w, newAPIError(http.StatusBadRequest, "old and new passwords are required"))
		return
	}

	user, apiErr := h.caller(r)
	if apiErr != nil {
		respondError(ctx, w, apiErr)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.OldPassword) {
		respondError(ctx, w, newAPIError(http.StatusUnauthorized, "old password is incorrect"))
		return
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("change password failed to hash", "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "failed to secure password"))
		return
	}

	if err := h.Users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		logger.Error("change password failed to persist", "userId", user.ID, "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "failed to change password"))
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "password changed successfully")
}

// UpdateDetails handles PATCH /api/v1/users/update-details.
func (h UserHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req updateDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, newAPIError(http.StatusBadRequest, "invalid request body"))
		return
	}

	fullName := strings.TrimSpace(req.FullName)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if fullName == "" || email == "" {
		respondError(ctx, w, newAPIError(http.StatusBadRequest, "fullname and email are required"))
		return
	}

	user, apiErr := h.caller(r)
	if apiErr != nil {
		respondError(ctx, w, apiErr)
		return
	}

	if err := h.Users.UpdateDetails(ctx, user.ID, fullName, email); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondError(ctx, w, newAPIError(http.StatusConflict, "email is already in use"))
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, newAPIError(http.StatusNotFound, "user does not exist"))
		default:
			logger.Error("update details failed", "userId", user.ID, "error", err)
			respondError(ctx, w, newAPIError(http.StatusInternalServerError, "failed to update account details"))
		}
		return
	}

	updated, err := h.Users.FindByID(ctx, user.ID)
	if err != nil {
		logger.Error("update details refetch failed", "userId", user.ID, "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "failed to load updated account"))
		return
	}

	respondData(ctx, w, http.StatusOK, updated.Sanitize(), "account details updated")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	// The method value below dereferences h.Users, so the guard has to run
	// before updateImage is even called.
	if apiErr := h.imageDepsReady(); apiErr != nil {
		respondError(r.Context(), w, apiErr)
		return
	}
	h.updateImage(w, r, "avatar", h.Users.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	if apiErr := h.imageDepsReady(); apiErr != nil {
		respondError(r.Context(), w, apiErr)
		return
	}
	h.updateImage(w, r, "coverimage", h.Users.UpdateCoverImage)
}

func (h UserHandler) imageDepsReady() *apiError {
	if h.Users == nil || h.Media == nil {
		return newAPIError(http.StatusInternalServerError, "account service unavailable")
	}
	return nil
}

func (h UserHandler) updateImage(w http.ResponseWriter, r *http.Request, field string, persist func(ctx context.Context, userID, url string) error) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, apiErr := h.caller(r)
	if apiErr != nil {
		respondError(ctx, w, apiErr)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(ctx, w, newAPIError(http.StatusBadRequest, "invalid multipart request body"))
		return
	}

	url, apiErr := h.uploadFormFile(r, field, http.StatusBadRequest)
	if apiErr != nil {
		respondError(ctx, w, apiErr)
		return
	}

	if err := persist(ctx, user.ID, url); err != nil {
		logger.Error("failed to persist "+field, "userId", user.ID, "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "failed to update "+field))
		return
	}

	updated, err := h.Users.FindByID(ctx, user.ID)
	if err != nil {
		logger.Error("refetch after "+field+" update failed", "userId", user.ID, "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "failed to load updated account"))
		return
	}

	respondData(ctx, w, http.StatusOK, updated.Sanitize(), field+" updated successfully")
}

// uploadFormFile stages the named multipart file in the local upload dir and
// pushes it to the media store. failStatus controls the status surfaced when
// the external upload fails (500 at registration, 400 on profile updates).
func (h UserHandler) uploadFormFile(r *http.Request, field string, failStatus int) (string, *apiError) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	file, header, err := r.FormFile(field)
	if err != nil {
		return "", newAPIError(http.StatusBadRequest, field+" file is required")
	}
	defer file.Close()

	localPath, err := saveUpload(h.UploadDir, header)
	if err != nil {
		logger.Error("failed to stage upload", "field", field, "error", err)
		return "", newAPIError(http.StatusInternalServerError, "failed to store uploaded file")
	}

	result, err := h.Media.UploadFile(ctx, localPath)
	if err != nil {
		logger.Error("media store upload failed", "field", field, "error", err)
		return "", newAPIError(failStatus, "could not upload "+field+", please try again later")
	}
	_ = os.Remove(localPath)

	return result.URL, nil
}

// caller loads the authenticated user's record. It also guards against a
// missing user store so every handler built on it degrades to a 500 instead
// of panicking.
func (h UserHandler) caller(r *http.Request) (models.User, *apiError) {
	ctx := r.Context()

	if h.Users == nil {
		logging.FromContext(ctx).Error("account dependencies unavailable")
		return models.User{}, newAPIError(http.StatusInternalServerError, "account service unavailable")
	}

	userID := callerID(ctx)
	if userID == "" {
		return models.User{}, newAPIError(http.StatusUnauthorized, "unauthorized request")
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, newAPIError(http.StatusNotFound, "user does not exist")
		}
		logging.FromContext(ctx).Error("caller lookup failed", "userId", userID, "error", err)
		return models.User{}, newAPIError(http.StatusInternalServerError, "unable to look up user")
	}

	return user, nil
}

func (h UserHandler) issueSession(r *http.Request, w http.ResponseWriter, user models.User) (models.TokenPair, *apiError) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	pair, err := h.Tokens.Issue(user)
	if err != nil {
		logger.Error("failed to issue tokens", "userId", user.ID, "error", err)
		return models.TokenPair{}, newAPIError(http.StatusInternalServerError, "failed to create session")
	}

	if err := h.Users.UpdateRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		logger.Error("failed to persist refresh token", "userId", user.ID, "error", err)
		return models.TokenPair{}, newAPIError(http.StatusInternalServerError, "failed to create session")
	}

	setAuthCookies(w, pair)
	return pair, nil
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateDetailsRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
}

type loginResponse struct {
	User         models.PublicUser `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}
