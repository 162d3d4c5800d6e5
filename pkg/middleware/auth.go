package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"audio-convert-service/pkg/config"
	"audio-convert-service/pkg/errno"
	"audio-convert-service/pkg/restapi"
)

// AdminClaims 管理端令牌声明
type AdminClaims struct {
	Subject string `json:"sub_name"`
	jwt.RegisteredClaims
}

// IssueAdminToken 签发管理端令牌,运维脚本使用
func IssueAdminToken(cfg *config.JWTConfig, subject string) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.ExpireTime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// ParseAdminToken 校验并解析管理端令牌
func ParseAdminToken(cfg *config.JWTConfig, raw string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer))
	if err != nil || !token.Valid {
		return nil, errno.ErrUnauthorized
	}
	return claims, nil
}

// AdminAuthMiddleware 管理端接口JWT鉴权
func AdminAuthMiddleware(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			restapi.Failed(c, errno.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, err := ParseAdminToken(cfg, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			restapi.Failed(c, errno.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Set("admin_subject", claims.Subject)
		c.Next()
	}
}
