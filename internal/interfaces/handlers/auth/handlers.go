package auth

import (
	"errors"

	authsvc "houseform-api/internal/application/auth"
	"houseform-api/internal/domain"
	"houseform-api/internal/middleware"
	"houseform-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Handlers holds dependencies for wallet auth endpoints.
type Handlers struct {
	Service *authsvc.Service
	Rdb     *redis.Client
	Config  middleware.SessionConfig
}

// LoginRequest carries the personal_sign signature over the challenge message.
type LoginRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, authsvc.ErrAddressRequired), errors.Is(err, domain.ErrInvalidAddress):
		return fiber.StatusBadRequest
	case errors.Is(err, authsvc.ErrNonceNotFound), errors.Is(err, authsvc.ErrInvalidSignature):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

func authError(c *fiber.Ctx, err error) error {
	code := authStatus(err)
	if code == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("auth failed")
		return response.Error(c, "Internal Server Error", code, nil)
	}
	return response.Error(c, err.Error(), code, nil)
}

// Nonce GET /api/v1/auth/nonce?address=
func (h *Handlers) Nonce(c *fiber.Ctx) error {
	ch, err := h.Service.IssueNonce(c.UserContext(), c.Query("address"))
	if err != nil {
		return authError(c, err)
	}
	return response.Success(c, "Nonce issued", ch, nil)
}

// Login POST /api/v1/auth/login
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Address and signature are required", fiber.StatusBadRequest, nil)
	}
	if req.Address == "" || req.Signature == "" {
		return response.Error(c, "Address and signature are required", fiber.StatusBadRequest, nil)
	}

	addr, err := h.Service.Verify(c.UserContext(), req.Address, req.Signature)
	if err != nil {
		return authError(c, err)
	}

	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{Address: addr.Hex()})
	if err := h.Service.TrackSession(c.UserContext(), addr, sessionID); err != nil {
		return authError(c, err)
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = sessionID
	c.Cookie(&cookie)

	log.Info().Str("address", addr.Hex()).Msg("wallet signed in")
	return response.Success(c, "Login successful", fiber.Map{
		"user": authsvc.SessionUserShape{Address: addr.Hex()},
	}, nil)
}

// Me GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	user, err := authsvc.VerifyUser(middleware.GetUser(c))
	if err != nil {
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": user}, nil)
}

// Logout DELETE /api/v1/auth/logout
func (h *Handlers) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()
	sessionID := middleware.GetSessionID(c)

	if addr, ok := middleware.SessionAddress(c); ok && sessionID != "" {
		if err := h.Service.UntrackSession(ctx, addr, sessionID); err != nil {
			log.Warn().Err(err).Msg("untrack session failed")
		}
	}
	if sessionID != "" {
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.MaxAge = -1
	if h.Config.IsProduction && !h.Config.AllowCrossSiteDev {
		cookie.Domain = ".houseform.app"
	}
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}
