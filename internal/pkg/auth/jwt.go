/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-02-10 09:05:51
 * @LastEditTime: 2026-03-14 17:28:40
 * @LastEditors: 安知鱼
 */
package auth

import (
	"fmt"
	"time"

	"github.com/anzhiyu-c/anshen-app/pkg/idgen"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateToken 生成一个新的 JWT Access Token。
// 身份签发本身属于外围系统，这里保留生成逻辑用于测试与运维工具。
func GenerateToken(userID, tenantID uint, isAdmin bool, secretKey []byte) (string, error) {
	if len(secretKey) == 0 {
		return "", fmt.Errorf("JWT Secret 不能为空")
	}

	accessTokenExpires := time.Now().Add(time.Minute * 15)

	publicUserID, err := idgen.GeneratePublicID(userID, idgen.EntityTypeUser)
	if err != nil {
		return "", fmt.Errorf("生成用户公共ID失败: %w", err)
	}

	publicTenantID, err := idgen.GeneratePublicID(tenantID, idgen.EntityTypeTenant)
	if err != nil {
		return "", fmt.Errorf("生成租户公共ID失败: %w", err)
	}

	claims := CustomClaims{
		UserID:   publicUserID,
		TenantID: publicTenantID,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(accessTokenExpires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "anshen-app",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey)
}

// ParseToken 解析 JWT Token
func ParseToken(tokenStr string, secretKey []byte) (*CustomClaims, error) {
	if len(secretKey) == 0 {
		return nil, fmt.Errorf("JWT Secret 不能为空")
	}

	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("解析token失败: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("无效或过期Token")
	}

	return claims, nil
}
