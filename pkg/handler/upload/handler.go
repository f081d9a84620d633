/*
 * @Description: 上传与文件查询相关的 HTTP 处理器
 * @Author: 安知鱼
 * @Date: 2026-08-23 16:40:12
 * @LastEditTime: 2026-08-23 16:40:12
 * @LastEditors: 安知鱼
 */
package upload

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anshen-app/internal/pkg/auth"
	"github.com/anzhiyu-c/anshen-app/internal/pkg/types"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
	"github.com/anzhiyu-c/anshen-app/pkg/idgen"
	"github.com/anzhiyu-c/anshen-app/pkg/response"
	"github.com/anzhiyu-c/anshen-app/pkg/service/upload"
	"github.com/anzhiyu-c/anshen-app/pkg/service/validator"
)

// Handler 负责上传入库与文件查询相关的 API。
type Handler struct {
	uploadSvc    *upload.Service
	validatorSvc *validator.Service
}

// NewHandler 创建一个新的上传处理器实例。
func NewHandler(uploadSvc *upload.Service, validatorSvc *validator.Service) *Handler {
	return &Handler{
		uploadSvc:    uploadSvc,
		validatorSvc: validatorSvc,
	}
}

// principal 是从登录态解码出的数据库主键形式的请求者身份。
type principal struct {
	userID   uint
	tenantID uint
	isAdmin  bool
}

func currentPrincipal(c *gin.Context) (*principal, error) {
	claimsValue, exists := c.Get(auth.ClaimsKey)
	if !exists {
		return nil, errors.New("无法获取用户信息，请确认是否已登录")
	}
	claims, ok := claimsValue.(*auth.CustomClaims)
	if !ok {
		return nil, errors.New("用户信息格式不正确")
	}
	userID, err := idgen.DecodePublicIDOfType(claims.UserID, idgen.EntityTypeUser)
	if err != nil {
		return nil, errors.New("无效的用户凭证")
	}
	tenantID, err := idgen.DecodePublicIDOfType(claims.TenantID, idgen.EntityTypeTenant)
	if err != nil {
		return nil, errors.New("无效的租户凭证")
	}
	return &principal{userID: userID, tenantID: tenantID, isAdmin: claims.IsAdmin}, nil
}

// RequestUploadURL 处理申请上传授权的请求 (POST /api/upload-url)
// @Summary      申请上传授权
// @Description  校验候选文件元数据，创建占位记录并签发预签名直传地址
// @Tags         上传
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body  model.UploadURLRequest  true  "上传授权请求"
// @Success      200  {object}  response.Response  "签发成功"
// @Failure      400  {object}  response.Response  "候选文件未通过校验"
// @Failure      401  {object}  response.Response  "未授权"
// @Failure      404  {object}  response.Response  "项目不存在"
// @Failure      503  {object}  response.Response  "存储驱动不支持直传"
// @Router       /upload-url [post]
func (h *Handler) RequestUploadURL(c *gin.Context) {
	var req model.UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "无效的请求参数: "+err.Error())
		return
	}
	p, err := currentPrincipal(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, err.Error())
		return
	}

	result, err := h.uploadSvc.RequestUpload(c.Request.Context(), p.tenantID, &req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, result, "上传授权签发成功")
}

// ConfirmUpload 处理直传完成后的确认请求 (POST /api/upload-confirm)
// @Summary      确认上传完成
// @Description  回源核对对象存在性与大小后，将占位记录提升为已入库文件，重复确认幂等
// @Tags         上传
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body  model.UploadConfirmRequest  true  "上传确认请求"
// @Success      200  {object}  response.Response  "确认成功"
// @Failure      400  {object}  response.Response  "对象大小越界"
// @Failure      401  {object}  response.Response  "未授权"
// @Failure      404  {object}  response.Response  "占位记录不存在"
// @Failure      409  {object}  response.Response  "对象尚未写入存储"
// @Router       /upload-confirm [post]
func (h *Handler) ConfirmUpload(c *gin.Context) {
	var req model.UploadConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "无效的请求参数: "+err.Error())
		return
	}
	p, err := currentPrincipal(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, err.Error())
		return
	}

	actorID := types.NewNullUint64(uint64(p.userID))
	result, err := h.uploadSvc.ConfirmUpload(c.Request.Context(), p.tenantID, actorID, &req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, result, "上传确认成功")
}

// DirectUpload 处理服务端代传请求 (POST /api/upload-direct)
// @Summary      服务端代传
// @Description  接收 multipart 文件内容，由服务端校验魔数后写入存储并直接入库
// @Tags         上传
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file      formData  file    true   "文件内容"
// @Param        projectId formData  string  false  "项目公共ID"
// @Success      200  {object}  response.Response  "上传成功"
// @Failure      400  {object}  response.Response  "内容未通过校验"
// @Failure      401  {object}  response.Response  "未授权"
// @Failure      503  {object}  response.Response  "对象存储不可用"
// @Router       /upload-direct [post]
func (h *Handler) DirectUpload(c *gin.Context) {
	p, err := currentPrincipal(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, err.Error())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "未找到上传文件: "+err.Error())
		return
	}

	actorID := types.NewNullUint64(uint64(p.userID))
	result, err := h.uploadSvc.DirectUpload(c.Request.Context(), p.tenantID, actorID, c.PostForm("projectId"), fileHeader)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, result, "上传成功")
}

// ValidateBatch 处理批量预校验请求 (POST /api/uploads/validate)
// @Summary      批量预校验
// @Description  对一批候选文件做纯元数据校验，不产生任何记录
// @Tags         上传
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body  model.ValidateBatchRequest  true  "候选文件列表"
// @Success      200  {object}  response.Response  "校验完成"
// @Failure      400  {object}  response.Response  "候选数量越界"
// @Failure      401  {object}  response.Response  "未授权"
// @Router       /uploads/validate [post]
func (h *Handler) ValidateBatch(c *gin.Context) {
	var req model.ValidateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "无效的请求参数: "+err.Error())
		return
	}
	if _, err := currentPrincipal(c); err != nil {
		response.Fail(c, http.StatusUnauthorized, err.Error())
		return
	}

	result, err := h.validatorSvc.ValidateBatch(&req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, result, "校验完成")
}

// GetFile 处理获取文件详情的请求 (GET /api/files/:id)
// @Summary      获取文件详情
// @Description  按公共ID获取文件记录，占位记录对该接口不可见
// @Tags         文件
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "文件公共ID"
// @Success      200  {object}  response.Response  "获取成功"
// @Failure      401  {object}  response.Response  "未授权"
// @Failure      404  {object}  response.Response  "文件不存在"
// @Router       /files/{id} [get]
func (h *Handler) GetFile(c *gin.Context) {
	p, err := currentPrincipal(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, err.Error())
		return
	}

	result, err := h.uploadSvc.GetFile(c.Request.Context(), p.tenantID, c.Param("id"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, result, "获取成功")
}

// ListFiles 处理文件列表查询请求 (GET /api/files)
// @Summary      文件列表
// @Description  分页列出本租户文件，默认只含已入库文件，支持项目、阶段与状态过滤
// @Tags         文件
// @Security     BearerAuth
// @Produce      json
// @Param        projectId  query  string  false  "项目公共ID"
// @Param        stage      query  string  false  "阶段名过滤"
// @Param        status     query  string  false  "状态过滤 active/pending"
// @Param        page       query  int     false  "页码"
// @Param        pageSize   query  int     false  "每页数量"
// @Success      200  {object}  response.Response  "获取成功"
// @Failure      400  {object}  response.Response  "未知的状态过滤值"
// @Failure      401  {object}  response.Response  "未授权"
// @Router       /files [get]
func (h *Handler) ListFiles(c *gin.Context) {
	var req model.FileListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "无效的查询参数: "+err.Error())
		return
	}
	p, err := currentPrincipal(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, err.Error())
		return
	}

	result, err := h.uploadSvc.ListFiles(c.Request.Context(), p.tenantID, &req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, result, "获取成功")
}

// GetDownloadURL 处理获取读取授权的请求 (GET /api/files/:id/download-url)
// @Summary      获取读取授权
// @Description  为已入库文件签发限时预签名下载地址
// @Tags         文件
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "文件公共ID"
// @Success      200  {object}  response.Response  "签发成功"
// @Failure      401  {object}  response.Response  "未授权"
// @Failure      404  {object}  response.Response  "文件不存在"
// @Failure      503  {object}  response.Response  "存储驱动不支持签发读取授权"
// @Router       /files/{id}/download-url [get]
func (h *Handler) GetDownloadURL(c *gin.Context) {
	p, err := currentPrincipal(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, err.Error())
		return
	}

	result, err := h.uploadSvc.GetDownloadURL(c.Request.Context(), p.tenantID, c.Param("id"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, result, "获取成功")
}
