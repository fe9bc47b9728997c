// Package handler implements the HTTP boundary. Request and response bodies
// are explicit typed structures validated here before anything reaches the
// credential core; status codes are the contract other layers rely on.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-token-service/internal/auth"
	"github.com/iliyamo/auth-token-service/internal/middleware"
	"github.com/iliyamo/auth-token-service/internal/model"
	"github.com/iliyamo/auth-token-service/internal/repository"
)

// requestTimeout bounds each handler's storage round-trips.
const requestTimeout = 5 * time.Second

// UserCreator is the slice of the user collaborator the register endpoint
// needs.
type UserCreator interface {
	Create(ctx context.Context, email, displayName, password, role string, cost int) (uint64, error)
}

// AuthHandler bundles dependencies for the credential endpoints.
type AuthHandler struct {
	Svc   *auth.Service
	Users UserCreator
	Cost  int // bcrypt cost for registration
}

func NewAuthHandler(svc *auth.Service, users UserCreator, bcryptCost int) *AuthHandler {
	return &AuthHandler{Svc: svc, Users: users, Cost: bcryptCost}
}

// ----- DTOs -----

type registerReq struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RenewalToken string `json:"renewal_token"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID          uint64 `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}
type AuthResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Renewal tokenPart `json:"renewal"`
}

func sessionResp(s *auth.Session) AuthResp {
	return AuthResp{
		User:    toUserPart(s.User),
		Access:  tokenPart{Token: s.Access.Token, Expires: s.Access.ExpiresAt},
		Renewal: tokenPart{Token: s.Renewal.Value, Expires: s.Renewal.ExpiresAt},
	}
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Role: u.Role}
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func sessionMeta(c echo.Context) auth.SessionMeta {
	return auth.SessionMeta{
		ClientIP:  c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

// currentUserID reads the subject id injected by the access middleware.
func currentUserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(middleware.CtxUserID).(uint64)
	return id, ok
}

// Register creates a user and logs it in immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Users.Create(ctx, req.Email, req.DisplayName, req.Password, model.RoleStandard, h.Cost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	s, err := h.Svc.Login(ctx, req.Email, req.Password, sessionMeta(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue credentials failed"})
	}
	return c.JSON(http.StatusCreated, sessionResp(s))
}

// Login verifies credentials and returns an access/renewal pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Svc.Login(ctx, req.Email, req.Password, sessionMeta(c))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	return c.JSON(http.StatusOK, sessionResp(s))
}

// Refresh rotates a renewal value into a new pair. All rejection reasons
// collapse into one 401.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RenewalToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "renewal_token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Svc.Refresh(ctx, strings.TrimSpace(req.RenewalToken), sessionMeta(c))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidOrExpiredRenewal) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired renewal token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	return c.JSON(http.StatusOK, sessionResp(s))
}

// Logout revokes sessions for the authenticated user: all of them by
// default, or the single session behind a renewal value given in the body.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req refreshReq
	_ = c.Bind(&req) // body is optional
	presented := strings.TrimSpace(req.RenewalToken)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if presented != "" {
		if err := h.Svc.LogoutSession(ctx, presented); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "session revoked"})
	}
	if err := h.Svc.Logout(ctx, uid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "all sessions revoked"})
}

// ChangePassword verifies the current password, applies the new one and
// revokes every other session.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current_password/new_password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch err := h.Svc.ChangePassword(ctx, uid, req.CurrentPassword, req.NewPassword); {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"status": "password changed"})
	case errors.Is(err, auth.ErrWrongCurrentPassword):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current password is wrong"})
	case errors.Is(err, auth.ErrPasswordUnchanged):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new password must differ from current"})
	case errors.Is(err, auth.ErrWeakPassword):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password does not meet policy"})
	case errors.Is(err, auth.ErrUserNotFound):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "change password failed"})
	}
}

// Sessions lists the caller's active sessions, newest first.
func (h *AuthHandler) Sessions(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sessions, err := h.Svc.Sessions(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list sessions failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": sessions})
}
