// internal/app/middleware/auth.go
package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/anzhiyu-c/anshen-app/internal/pkg/auth"
	"github.com/anzhiyu-c/anshen-app/pkg/config"
	"github.com/anzhiyu-c/anshen-app/pkg/response"

	"github.com/gin-gonic/gin"
)

type Middleware struct {
	secret []byte
}

func NewMiddleware(cfg *config.Config) *Middleware {
	return &Middleware{secret: []byte(cfg.GetString(config.KeyJWTSecret))}
}

// JWTAuth 是一个强制性的JWT认证中间件
func (m *Middleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")
		if authHeader == "" {
			response.Fail(c, http.StatusUnauthorized, "请求未携带Token，无权限访问")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			response.Fail(c, http.StatusUnauthorized, "Token格式不正确")
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(parts[1], m.secret)
		if err != nil {
			log.Printf("[JWTAuth] JWT token解析失败: %v", err)
			response.Fail(c, http.StatusUnauthorized, "无效或过期的Token")
			c.Abort()
			return
		}

		c.Set(auth.ClaimsKey, claims)
		c.Next()
	}
}

// AdminAuth 是一个管理员权限验证中间件，必须在 JWTAuth 之后挂载
func (m *Middleware) AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(auth.ClaimsKey)
		if !exists {
			log.Printf("[AdminAuth] 错误: 上下文中没有找到认证信息 ClaimsKey")
			response.Fail(c, http.StatusForbidden, "权限信息获取失败")
			c.Abort()
			return
		}

		claims, ok := claimsValue.(*auth.CustomClaims)
		if !ok {
			log.Printf("[AdminAuth] 错误: 权限信息格式不正确")
			response.Fail(c, http.StatusForbidden, "权限信息格式不正确")
			c.Abort()
			return
		}

		if !claims.IsAdmin {
			log.Printf("[AdminAuth] 权限不足: 用户 %s 不是管理员", claims.UserID)
			response.Fail(c, http.StatusForbidden, "权限不足：此操作需要管理员权限")
			c.Abort()
			return
		}

		c.Next()
	}
}
