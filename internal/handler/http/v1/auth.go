package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mangrovewatch/mangrove_guardian/internal/config"
	"github.com/mangrovewatch/mangrove_guardian/internal/models"
	"github.com/sirupsen/logrus"
)

const roleContextKey = "role"

// RoleAuthMiddleware - middleware аутентификации по API-ключу.
// Три набора ключей из конфигурации отображают ключ в роль
// (reporter / verifier / government); роль кладется в контекст Gin
// и дальше передается в сервисы как доверенный вход.
func RoleAuthMiddleware(cfg *config.Config, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			// Проверяем также заголовок Authorization: Bearer
			authHeader := c.GetHeader("Authorization")
			if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
				apiKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if apiKey == "" {
			log.Warn("API key missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			return
		}

		role, ok := resolveRole(cfg, apiKey)
		if !ok {
			log.Warn("Invalid API key provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		c.Set(roleContextKey, role)
		c.Next()
	}
}

func resolveRole(cfg *config.Config, apiKey string) (models.Role, bool) {
	for _, key := range cfg.ReporterAPIKeys {
		if key == apiKey {
			return models.RoleReporter, true
		}
	}
	for _, key := range cfg.VerifierAPIKeys {
		if key == apiKey {
			return models.RoleVerifier, true
		}
	}
	for _, key := range cfg.GovernmentAPIKeys {
		if key == apiKey {
			return models.RoleGovernment, true
		}
	}
	return "", false
}

// roleFromContext достает роль, положенную middleware
func roleFromContext(c *gin.Context) models.Role {
	if v, ok := c.Get(roleContextKey); ok {
		if role, ok := v.(models.Role); ok {
			return role
		}
	}
	return ""
}
