/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-02-10 09:02:14
 * @LastEditTime: 2026-02-10 09:02:38
 * @LastEditors: 安知鱼
 */
package auth

import "github.com/golang-jwt/jwt/v5"

// ClaimsKey 是用于在 gin.Context 中存储和检索整个用户信息结构体的键。
const ClaimsKey = "user_claims"

// CustomClaims 定义了 JWT 的自定义 Claims 结构体。
// UserID 和 TenantID 存储的是其公共 ID 字符串表示，
// 数据库数字 ID 不会出现在令牌中。
type CustomClaims struct {
	UserID   string `json:"user_id"`   // 用户公共ID
	TenantID string `json:"tenant_id"` // 租户公共ID
	IsAdmin  bool   `json:"is_admin"`  // 是否为租户管理员
	jwt.RegisteredClaims
}
