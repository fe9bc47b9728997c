package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-token-service/internal/auth"
)

type recoveryRequestReq struct {
	Email string `json:"email"`
}
type recoveryConsumeReq struct {
	NewPassword string `json:"new_password"`
}

type recoveryValidateResp struct {
	Email   string    `json:"email"`
	Expires time.Time `json:"expires"`
}

// RequestRecovery starts the password-recovery flow. It answers 200 whether
// or not the address exists so the endpoint cannot be used to enumerate
// accounts; notification delivery is best-effort and asynchronous.
func (h *AuthHandler) RequestRecovery(c echo.Context) error {
	var req recoveryRequestReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.RequestRecovery(ctx, strings.ToLower(strings.TrimSpace(req.Email))); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "recovery request failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "if the address exists, a recovery message was sent"})
}

// ValidateRecovery is the pre-flight check a reset UI performs before
// showing the new-password form. Consumed tokens get their own message;
// everything else is the one undifferentiated 400.
func (h *AuthHandler) ValidateRecovery(c echo.Context) error {
	value := strings.TrimSpace(c.Param("token"))
	if value == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, exp, err := h.Svc.ValidateRecovery(ctx, value)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, recoveryValidateResp{Email: u.Email, Expires: exp})
	case errors.Is(err, auth.ErrRecoveryTokenConsumed):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "recovery token already used"})
	case errors.Is(err, auth.ErrInvalidOrExpiredRecoveryToken):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired recovery token"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "validate failed"})
	}
}

// ConsumeRecovery applies the password reset the token authorizes. The token
// flip and the password update commit together; afterwards every session of
// the user is revoked.
func (h *AuthHandler) ConsumeRecovery(c echo.Context) error {
	value := strings.TrimSpace(c.Param("token"))
	var req recoveryConsumeReq
	if err := c.Bind(&req); err != nil || value == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token and new_password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Svc.ConsumeRecovery(ctx, value, req.NewPassword)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"status": "password reset", "user": toUserPart(u)})
	case errors.Is(err, auth.ErrWeakPassword):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password does not meet policy"})
	case errors.Is(err, auth.ErrInvalidOrExpiredRecoveryToken):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired recovery token"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
}
