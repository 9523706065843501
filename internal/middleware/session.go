package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// SessionConfig for the Redis-backed wallet session.
type SessionConfig struct {
	AllowCrossSiteDev bool
	IsProduction      bool
}

const (
	SessionCookieName  = "houseform.sid"
	SessionRedisPrefix = "session:"
	sessionMaxAge      = 24 * time.Hour
)

// SessionUser is the shape stored in session under "user".
type SessionUser struct {
	Address string `json:"address"`
}

// Session returns a Fiber middleware that loads the session named by the
// cookie from Redis and saves it back after the handler ran.
func Session(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(SessionCookieName)
		if _, err := uuid.Parse(sessionID); err != nil {
			sessionID = ""
		}

		var data map[string]interface{}
		if sessionID != "" {
			b, err := rdb.Get(context.Background(), SessionRedisPrefix+sessionID).Bytes()
			if err == nil {
				_ = json.Unmarshal(b, &data)
			} else if err != redis.Nil {
				log.Warn().Err(err).Msg("session load failed")
			}
		}
		if data == nil {
			data = make(map[string]interface{})
		}

		c.Locals("session_data", data)
		if u, ok := data["user"]; ok {
			c.Locals(userLocal, u)
		} else {
			c.Locals(userLocal, nil)
		}
		c.Locals("session_id", sessionID)

		if err := c.Next(); err != nil {
			return err
		}

		// Persist only sessions that hold a user; logout clears the user.
		if sid, _ := c.Locals("session_id").(string); sid != "" {
			updated, _ := c.Locals("session_data").(map[string]interface{})
			if _, ok := updated["user"]; ok {
				b, _ := json.Marshal(updated)
				if err := rdb.Set(context.Background(), SessionRedisPrefix+sid, b, sessionMaxAge).Err(); err != nil {
					log.Warn().Err(err).Msg("session save failed")
				}
			}
		}
		return nil
	}
}

// GetSessionID returns the current session ID from context.
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals("session_id").(string)
	return sid
}

// SetSessionUser sets the user in the session and marks it for save.
// Call RegenerateSessionID first.
func SetSessionUser(c *fiber.Ctx, user SessionUser) {
	data, _ := c.Locals("session_data").(map[string]interface{})
	if data == nil {
		data = make(map[string]interface{})
	}
	data["user"] = map[string]interface{}{
		"address": user.Address,
	}
	c.Locals("session_data", data)
	c.Locals(userLocal, data["user"])
}

// RegenerateSessionID creates a new session ID and sets it in Locals (cookie set by handler).
func RegenerateSessionID(c *fiber.Ctx) string {
	newID := uuid.New().String()
	c.Locals("session_id", newID)
	return newID
}

// DestroySession clears user and session data from Locals; caller must clear cookie and Redis.
func DestroySession(c *fiber.Ctx) {
	c.Locals("session_data", make(map[string]interface{}))
	c.Locals(userLocal, nil)
}

// SessionAddress returns the signed-in wallet address.
func SessionAddress(c *fiber.Ctx) (common.Address, bool) {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return common.Address{}, false
	}
	s, _ := m["address"].(string)
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

// SessionCookieConfig returns the cookie options for set and clear.
func SessionCookieConfig(cfg SessionConfig) fiber.Cookie {
	sameSite := "Lax"
	if cfg.AllowCrossSiteDev {
		sameSite = "None"
	}
	secure := cfg.IsProduction || cfg.AllowCrossSiteDev
	return fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
}
