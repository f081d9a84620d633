/*
 * @Description: 工作流动作、流转历史与阶段管理的 HTTP 处理器
 * @Author: 安知鱼
 * @Date: 2026-08-23 16:55:40
 * @LastEditTime: 2026-08-23 16:55:40
 * @LastEditors: 安知鱼
 */
package workflow

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anshen-app/internal/pkg/auth"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
	"github.com/anzhiyu-c/anshen-app/pkg/idgen"
	"github.com/anzhiyu-c/anshen-app/pkg/response"
	"github.com/anzhiyu-c/anshen-app/pkg/service/workflow"
)

// Handler 负责工作流流转与审核阶段管理相关的 API。
type Handler struct {
	engine   *workflow.Engine
	stageSvc *workflow.StageService
}

// NewHandler 创建一个新的工作流处理器实例。
func NewHandler(engine *workflow.Engine, stageSvc *workflow.StageService) *Handler {
	return &Handler{
		engine:   engine,
		stageSvc: stageSvc,
	}
}

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

// ApplyTransition 处理执行工作流动作的请求 (POST /api/files/:id/transition)
// @Summary      执行工作流动作
// @Description  对文件执行领取、通过、打回、回退、重开或归档动作，动作名大小写不敏感
// @Tags         工作流
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "文件公共ID"
// @Param        body  body  model.TransitionRequest  true  "工作流动作"
// @Success      200  {object}  response.Response  "执行成功"
// @Failure      400  {object}  response.Response  "未知动作"
// @Failure      401  {object}  response.Response  "未授权"
// @Failure      403  {object}  response.Response  "归档仅限管理员"
// @Failure      404  {object}  response.Response  "文件不存在"
// @Failure      409  {object}  response.Response  "非法流转或文件正忙"
// @Router       /files/{id}/transition [post]
func (h *Handler) ApplyTransition(c *gin.Context) {
	var req model.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "无效的请求参数: "+err.Error())
		return
	}
	p, err := currentPrincipal(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, err.Error())
		return
	}

	result, err := h.engine.ApplyAction(c.Request.Context(), p.tenantID, p.userID, p.isAdmin, c.Param("id"), &req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, result, "动作执行成功")
}

// GetHistory 处理查询流转历史的请求 (GET /api/files/:id/history)
// @Summary      查询流转历史
// @Description  按台账总顺序返回文件的全部流转记录
// @Tags         工作流
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "文件公共ID"
// @Success      200  {object}  response.Response  "获取成功"
// @Failure      401  {object}  response.Response  "未授权"
// @Failure      404  {object}  response.Response  "文件不存在"
// @Router       /files/{id}/history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	p, err := currentPrincipal(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, err.Error())
		return
	}

	result, err := h.engine.GetHistory(c.Request.Context(), p.tenantID, c.Param("id"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, result, "获取成功")
}

// ListStages 处理列出审核阶段的请求 (GET /api/workflow/stages)
// @Summary      列出审核阶段
// @Description  按顺序号返回本租户配置的全部审核阶段，含停用阶段
// @Tags         工作流
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response  "获取成功"
// @Failure      401  {object}  response.Response  "未授权"
// @Router       /workflow/stages [get]
func (h *Handler) ListStages(c *gin.Context) {
	p, err := currentPrincipal(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, err.Error())
		return
	}

	result, err := h.stageSvc.ListStages(c.Request.Context(), p.tenantID)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, result, "获取成功")
}

// CreateStage 处理新建审核阶段的请求 (POST /api/workflow/stages)
// @Summary      新建审核阶段
// @Description  新建一个自定义审核阶段，阶段名不得与内置阶段冲突
// @Tags         工作流
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body  model.CreateStageRequest  true  "阶段定义"
// @Success      200  {object}  response.Response  "创建成功"
// @Failure      400  {object}  response.Response  "阶段名或顺序号非法"
// @Failure      401  {object}  response.Response  "未授权"
// @Failure      409  {object}  response.Response  "名称或顺序冲突"
// @Router       /workflow/stages [post]
func (h *Handler) CreateStage(c *gin.Context) {
	var req model.CreateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "无效的请求参数: "+err.Error())
		return
	}
	p, err := currentPrincipal(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, err.Error())
		return
	}

	result, err := h.stageSvc.CreateStage(c.Request.Context(), p.tenantID, &req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, result, "创建成功")
}

// UpdateStage 处理更新审核阶段的请求 (PUT /api/workflow/stages/:id)
// @Summary      更新审核阶段
// @Description  更新展示名、顺序号或启停状态，仍有文件停留的阶段不可停用
// @Tags         工作流
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "阶段公共ID"
// @Param        body  body  model.UpdateStageRequest true  "更新内容"
// @Success      200  {object}  response.Response  "更新成功"
// @Failure      400  {object}  response.Response  "参数非法"
// @Failure      401  {object}  response.Response  "未授权"
// @Failure      404  {object}  response.Response  "阶段不存在"
// @Failure      409  {object}  response.Response  "仍有文件处于该阶段"
// @Router       /workflow/stages/{id} [put]
func (h *Handler) UpdateStage(c *gin.Context) {
	var req model.UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "无效的请求参数: "+err.Error())
		return
	}
	p, err := currentPrincipal(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, err.Error())
		return
	}

	result, err := h.stageSvc.UpdateStage(c.Request.Context(), p.tenantID, c.Param("id"), &req)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, result, "更新成功")
}
