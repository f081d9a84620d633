/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-02-09 12:03:41
 * @LastEditTime: 2026-07-30 18:12:06
 * @LastEditors: 安知鱼
 */
package response

import (
	"errors"
	"net/http"

	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/gin-gonic/gin"
)

// Response 是统一的API返回结构体
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Fail 失败响应
func Fail(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// SuccessWithStatus 成功响应，但允许自定义 HTTP 状态码。
// 这对于返回 201 Created 或 202 Accepted 等状态非常有用。
func SuccessWithStatus(c *gin.Context, code int, data interface{}, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// FailWithError 将业务哨兵错误统一映射为 HTTP 状态码后返回。
// 所有 Handler 都应通过这里收敛错误出口，保证错误语义一致。
func FailWithError(c *gin.Context, err error) {
	Fail(c, StatusFromError(err), err.Error())
}

// StatusFromError 返回业务错误对应的 HTTP 状态码
func StatusFromError(err error) int {
	switch {
	case errors.Is(err, constant.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, constant.ErrInvalidUpload),
		errors.Is(err, constant.ErrBadRequest),
		errors.Is(err, constant.ErrInvalidPublicID):
		return http.StatusBadRequest
	case errors.Is(err, constant.ErrUploadIncomplete),
		errors.Is(err, constant.ErrInvalidTransition),
		errors.Is(err, constant.ErrBusy),
		errors.Is(err, constant.ErrStageOccupied),
		errors.Is(err, constant.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, constant.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, constant.ErrUnauthorized), errors.Is(err, constant.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, constant.ErrStorageUnavailable),
		errors.Is(err, constant.ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
