/*
 * @Description: 本地对象的签名下载路由
 * @Author: 安知鱼
 * @Date: 2026-08-23 17:08:25
 * @LastEditTime: 2026-08-23 17:08:25
 * @LastEditors: 安知鱼
 */
package object

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anshen-app/internal/infra/storage"
	"github.com/anzhiyu-c/anshen-app/pkg/response"
)

// Handler 负责承接本地存储驱动签发的读取授权链接。
// 链接由 HMAC 签名保护，不要求登录态，适合直接交给浏览器下载。
type Handler struct {
	provider      storage.IStorageProvider
	signingSecret string
}

// NewHandler 创建一个新的对象下载处理器实例。
func NewHandler(provider storage.IStorageProvider, signingSecret string) *Handler {
	return &Handler{
		provider:      provider,
		signingSecret: signingSecret,
	}
}

// ServeLocalObject 处理签名下载请求 (GET /api/objects/local/*key)
// @Summary      下载本地对象
// @Description  校验读取授权签名后流式返回对象内容
// @Tags         对象
// @Produce      octet-stream
// @Param        key      path   string  true  "对象键"
// @Param        expires  query  int     true  "过期时间戳"
// @Param        sign     query  string  true  "HMAC签名"
// @Success      200  {file}    file  "对象内容"
// @Failure      400  {object}  response.Response  "参数缺失"
// @Failure      403  {object}  response.Response  "签名无效或已过期"
// @Failure      404  {object}  response.Response  "对象不存在"
// @Router       /objects/local/{key} [get]
func (h *Handler) ServeLocalObject(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		response.Fail(c, http.StatusBadRequest, "对象键不能为空")
		return
	}

	expires, err := strconv.ParseInt(c.Query("expires"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "无效的过期时间")
		return
	}
	if !storage.VerifyObjectSignature(h.signingSecret, key, c.Query("sign"), expires) {
		response.Fail(c, http.StatusForbidden, "下载链接无效或已过期")
		return
	}

	local, ok := h.provider.(*storage.LocalProvider)
	if !ok {
		response.Fail(c, http.StatusNotFound, "当前存储驱动不提供本地下载")
		return
	}

	stat, err := local.StatObject(c.Request.Context(), key)
	if err != nil || !stat.Exists {
		response.Fail(c, http.StatusNotFound, "文件不存在")
		return
	}

	reader, contentType, err := local.Open(key)
	if err != nil {
		response.Fail(c, http.StatusNotFound, "文件不存在")
		return
	}
	defer reader.Close()

	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(stat.Size, 10))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(path.Base(key))))
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, reader); err != nil {
		// 响应头已发出，只能记录不能改写状态码
		log.Printf("[对象下载] 写出对象 %s 内容中断: %v", key, err)
	}
}
