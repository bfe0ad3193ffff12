package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rociobottinelli/citypass-emergency/internal/config"
	"github.com/rociobottinelli/citypass-emergency/internal/models"
	"github.com/sirupsen/logrus"
)

const userContextKey = "user"

var (
	errNoUserID = errors.New("token carries no user id")
	errNoSecret = errors.New("token verification secret is not configured")
)

// APIKeyAuthMiddleware - middleware для аутентификации по API-ключу
func APIKeyAuthMiddleware(cfg *config.Config, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			apiKey = bearerToken(c)
		}

		if apiKey == "" {
			log.Warn("API key missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			return
		}

		isValid := false
		for _, key := range cfg.APIKeys {
			if key == apiKey {
				isValid = true
				break
			}
		}

		if !isValid {
			log.Warn("Invalid API key provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		c.Next()
	}
}

// BearerAuthMiddleware определяет текущего гражданина по подписанному токену из заголовка Authorization
func BearerAuthMiddleware(cfg *config.Config, log *logrus.Logger) gin.HandlerFunc {
	return bearerAuth(cfg, log, false)
}

// StreamAuthMiddleware дополнительно принимает токен из параметра ?token=:
// браузер не умеет передавать заголовки при открытии websocket
func StreamAuthMiddleware(cfg *config.Config, log *logrus.Logger) gin.HandlerFunc {
	return bearerAuth(cfg, log, true)
}

func bearerAuth(cfg *config.Config, log *logrus.Logger, allowQueryToken bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" && allowQueryToken {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication token required"})
			return
		}

		userID, err := userIDFromToken(token, cfg.JWTSecret)
		if err != nil {
			log.WithError(err).Warn("Invalid bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authentication token"})
			return
		}

		c.Set(userContextKey, models.User{ID: userID, Token: token})
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// userIDFromToken проверяет подпись и срок действия токена и возвращает идентификатор пользователя.
// Пустой секрет означает, что проверить токен нельзя, и любой токен отклоняется.
func userIDFromToken(token, secret string) (string, error) {
	if secret == "" {
		return "", errNoSecret
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return "", err
	}

	// Бэкенд выдает идентификатор под разными именами
	for _, key := range []string{"userId", "id", "sub"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v, nil
			}
		case float64:
			return fmt.Sprintf("%.0f", v), nil
		}
	}
	return "", errNoUserID
}

// currentUser возвращает пользователя, установленного BearerAuthMiddleware
func currentUser(c *gin.Context) models.User {
	if v, ok := c.Get(userContextKey); ok {
		if u, ok := v.(models.User); ok {
			return u
		}
	}
	return models.User{}
}
