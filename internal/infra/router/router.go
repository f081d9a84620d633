/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-08-23 17:35:10
 * @LastEditTime: 2026-08-23 17:35:10
 * @LastEditors: 安知鱼
 */
// anshen-app/internal/infra/router/router.go
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anshen-app/internal/app/middleware"
	object_handler "github.com/anzhiyu-c/anshen-app/pkg/handler/object"
	upload_handler "github.com/anzhiyu-c/anshen-app/pkg/handler/upload"
	workflow_handler "github.com/anzhiyu-c/anshen-app/pkg/handler/workflow"
)

// NoCacheMiddleware 全局反缓存中间件，确保所有API响应都不会被CDN缓存
func NoCacheMiddleware() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate, private, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")

		c.Next()
	})
}

// Router 封装了应用的所有路由和其依赖的处理器。
type Router struct {
	uploadHandler   *upload_handler.Handler
	workflowHandler *workflow_handler.Handler
	objectHandler   *object_handler.Handler
	mw              *middleware.Middleware
}

// NewRouter 是 Router 的构造函数，通过依赖注入接收所有处理器。
func NewRouter(
	uploadHandler *upload_handler.Handler,
	workflowHandler *workflow_handler.Handler,
	objectHandler *object_handler.Handler,
	mw *middleware.Middleware,
) *Router {
	return &Router{
		uploadHandler:   uploadHandler,
		workflowHandler: workflowHandler,
		objectHandler:   objectHandler,
		mw:              mw,
	}
}

// Setup 将所有路由注册到 Gin 引擎。
// 这是在 main.go 中将被调用的唯一入口点。
func (r *Router) Setup(engine *gin.Engine) {
	// 创建 /api 分组
	apiGroup := engine.Group("/api")
	// 应用全局反缓存中间件
	apiGroup.Use(NoCacheMiddleware())

	// 本地对象签名下载，由 HMAC 签名保护，不要求登录态
	apiGroup.GET("/objects/local/*key", r.objectHandler.ServeLocalObject)

	// 注册各个模块的路由
	r.registerUploadRoutes(apiGroup)
	r.registerFileRoutes(apiGroup)
	r.registerWorkflowRoutes(apiGroup)
}

// registerUploadRoutes 注册上传入库链路的路由
func (r *Router) registerUploadRoutes(api *gin.RouterGroup) {
	// 上传链路全部要求登录态，并共用一个IP频率配额
	uploads := api.Group("").Use(r.mw.JWTAuth(), middleware.UploadRateLimit())
	{
		// 申请预签名直传授权: POST /api/upload-url
		uploads.POST("/upload-url", r.uploadHandler.RequestUploadURL)

		// 直传完成后的确认回调: POST /api/upload-confirm
		uploads.POST("/upload-confirm", r.uploadHandler.ConfirmUpload)

		// 服务端代传回退链路: POST /api/upload-direct
		uploads.POST("/upload-direct", r.uploadHandler.DirectUpload)

		// 批量预校验，不产生任何记录: POST /api/uploads/validate
		uploads.POST("/uploads/validate", r.uploadHandler.ValidateBatch)
	}
}

// registerFileRoutes 注册文件查询与工作流动作的路由
func (r *Router) registerFileRoutes(api *gin.RouterGroup) {
	files := api.Group("/files").Use(r.mw.JWTAuth())
	{
		// 文件列表: GET /api/files
		files.GET("", r.uploadHandler.ListFiles)

		// 文件详情: GET /api/files/:id
		files.GET("/:id", r.uploadHandler.GetFile)

		// 获取读取授权: GET /api/files/:id/download-url
		files.GET("/:id/download-url", r.uploadHandler.GetDownloadURL)

		// 流转历史: GET /api/files/:id/history
		files.GET("/:id/history", r.workflowHandler.GetHistory)

		// 执行工作流动作: POST /api/files/:id/transition
		// 归档动作的管理员校验在引擎内完成
		files.POST("/:id/transition", r.workflowHandler.ApplyTransition)
	}
}

// registerWorkflowRoutes 注册审核阶段管理的路由
func (r *Router) registerWorkflowRoutes(api *gin.RouterGroup) {
	// 阶段列表对所有登录用户可见
	stages := api.Group("/workflow/stages").Use(r.mw.JWTAuth())
	{
		stages.GET("", r.workflowHandler.ListStages)
	}

	// 阶段的增改仅限管理员
	stagesAdmin := api.Group("/workflow/stages").Use(r.mw.JWTAuth(), r.mw.AdminAuth())
	{
		stagesAdmin.POST("", r.workflowHandler.CreateStage)
		stagesAdmin.PUT("/:id", r.workflowHandler.UpdateStage)
	}
}
