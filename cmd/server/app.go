/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-08-23 19:02:11
 * @LastEditTime: 2026-08-23 19:02:11
 * @LastEditors: 安知鱼
 */
// anshen-app/cmd/server/app.go
package server

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/anzhiyu-c/anshen-app/internal/app/bootstrap"
	"github.com/anzhiyu-c/anshen-app/internal/app/listener"
	"github.com/anzhiyu-c/anshen-app/internal/app/middleware"
	"github.com/anzhiyu-c/anshen-app/internal/app/task"
	"github.com/anzhiyu-c/anshen-app/internal/infra/persistence/database"
	gorm_impl "github.com/anzhiyu-c/anshen-app/internal/infra/persistence/gorm"
	"github.com/anzhiyu-c/anshen-app/internal/infra/router"
	"github.com/anzhiyu-c/anshen-app/internal/infra/storage"
	"github.com/anzhiyu-c/anshen-app/internal/pkg/event"
	"github.com/anzhiyu-c/anshen-app/pkg/config"
	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"
	object_handler "github.com/anzhiyu-c/anshen-app/pkg/handler/object"
	upload_handler "github.com/anzhiyu-c/anshen-app/pkg/handler/upload"
	workflow_handler "github.com/anzhiyu-c/anshen-app/pkg/handler/workflow"
	"github.com/anzhiyu-c/anshen-app/pkg/idgen"
	upload_service "github.com/anzhiyu-c/anshen-app/pkg/service/upload"
	"github.com/anzhiyu-c/anshen-app/pkg/service/utility"
	validator_service "github.com/anzhiyu-c/anshen-app/pkg/service/validator"
	workflow_service "github.com/anzhiyu-c/anshen-app/pkg/service/workflow"
)

// App 结构体，用于封装应用的所有核心组件
type App struct {
	cfg        *config.Config
	engine     *gin.Engine
	db         *gorm.DB
	taskBroker *task.Broker
	eventBus   *event.EventBus
	mw         *middleware.Middleware

	fileRepo       repository.FileRepository
	transitionRepo repository.TransitionRepository
	cacheSvc       utility.CacheService
	uploadSvc      *upload_service.Service
	workflowEngine *workflow_service.Engine
}

func (a *App) PrintBanner() {
	banner := `

       █████╗ ███╗   ██╗███████╗██╗  ██╗███████╗███╗   ██╗
      ██╔══██╗████╗  ██║██╔════╝██║  ██║██╔════╝████╗  ██║
      ███████║██╔██╗ ██║███████╗███████║█████╗  ██╔██╗ ██║
      ██╔══██║██║╚██╗██║╚════██║██╔══██║██╔══╝  ██║╚██╗██║
      ██║  ██║██║ ╚████║███████║██║  ██║███████╗██║ ╚████║
      ╚═╝  ╚═╝╚═╝  ╚═══╝╚══════╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═══╝

`
	log.Println(banner)
	log.Println("--------------------------------------------------------")
	log.Println(" AnShen App - 内容入库与审核流转核心")
	log.Println("--------------------------------------------------------")
}

// NewApp 是应用的构造函数，它执行所有的初始化和依赖注入工作
func NewApp() (*App, func(), error) {
	// --- Phase 1: 加载外部配置 ---
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}

	// --- Phase 2: 初始化基础设施 ---
	db, err := database.NewGormDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("创建数据库连接池失败: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("获取底层连接池失败: %w", err)
	}

	// 尝试连接 Redis（未配置或失败时，缓存将自动降级到内存实现）
	redisClient, err := database.NewRedisClient(context.Background(), cfg)
	if err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("redis 初始化失败: %w", err)
	}

	cleanup := func() {
		log.Println("执行清理操作：关闭数据库连接...")
		sqlDB.Close()
		if redisClient != nil {
			log.Println("关闭 Redis 连接...")
			redisClient.Close()
		}
	}

	eventBus := event.NewEventBus()

	// --- Phase 3: 初始化数据仓库层 ---
	settingRepo := gorm_impl.NewSettingRepository(db)
	tenantRepo := gorm_impl.NewTenantRepository(db)
	projectRepo := gorm_impl.NewProjectRepository(db)
	fileRepo := gorm_impl.NewFileRepository(db)
	stageRepo := gorm_impl.NewStageRepository(db)
	transitionRepo := gorm_impl.NewTransitionRepository(db)
	txManager := gorm_impl.NewTransactionManager(db)

	// --- Phase 4: 初始化应用引导程序 ---
	bootstrapper := bootstrap.NewBootstrapper(db, tenantRepo, stageRepo)
	if err := bootstrapper.InitializeDatabase(); err != nil {
		return nil, cleanup, fmt.Errorf("数据库初始化失败: %w", err)
	}

	// --- Phase 4.5: 初始化 ID 编码器 ---
	// IDSeed 随数据库存续，保证重启后对外公共 ID 保持稳定
	idSeed, err := getOrCreateIDSeed(context.Background(), settingRepo)
	if err != nil {
		return nil, cleanup, fmt.Errorf("获取 IDSeed 失败: %w", err)
	}
	if err := idgen.InitSqidsEncoderWithSeed(idSeed); err != nil {
		return nil, cleanup, fmt.Errorf("初始化 ID 编码器失败: %w", err)
	}
	log.Println("✅ ID 编码器初始化成功")

	// --- Phase 5: 初始化业务逻辑层 ---
	// 使用智能缓存工厂，自动选择 Redis 或内存缓存
	cacheSvc := utility.NewCacheServiceWithFallback(redisClient)

	signingSecret := cfg.GetString(config.KeyJWTSecret)
	storageSettings := &storage.Settings{
		Type:      constant.StorageDriverType(cfg.GetStringOrDefault(config.KeyStorageType, string(constant.DriverLocal))),
		Bucket:    cfg.GetString(config.KeyStorageBucket),
		Region:    cfg.GetString(config.KeyStorageRegion),
		Endpoint:  cfg.GetString(config.KeyStorageEndpoint),
		AccessKey: cfg.GetString(config.KeyStorageAccessKey),
		SecretKey: cfg.GetString(config.KeyStorageSecretKey),
		BasePath:  cfg.GetString(config.KeyStorageBasePath),
	}
	provider, err := storage.NewProvider(storageSettings, signingSecret)
	if err != nil {
		return nil, cleanup, fmt.Errorf("初始化对象存储驱动失败: %w", err)
	}
	log.Printf("✅ 对象存储驱动初始化成功: %s", storageSettings.Type)

	validatorSvc := validator_service.NewService(cfg)
	uploadSvc := upload_service.NewService(txManager, fileRepo, projectRepo, provider, validatorSvc, eventBus, cfg)
	stageSvc := workflow_service.NewStageService(stageRepo, fileRepo, cacheSvc)
	fileLocker := utility.NewFileLocker()
	workflowEngine := workflow_service.NewEngine(txManager, fileRepo, transitionRepo, stageSvc, fileLocker, eventBus, cfg)

	// 台账一致性核对监听器：订阅确认与流转事件，后台只读核对
	_ = listener.NewTransitionAuditListener(eventBus, fileRepo, transitionRepo)

	// 后台任务：过期占位记录回收 + 全量台账审计
	taskBroker := task.NewBroker(fileRepo, transitionRepo, provider, cfg)

	// --- Phase 6: 初始化表现层 (Handlers) ---
	mw := middleware.NewMiddleware(cfg)
	uploadHandler := upload_handler.NewHandler(uploadSvc, validatorSvc)
	workflowHandler := workflow_handler.NewHandler(workflowEngine, stageSvc)
	objectHandler := object_handler.NewHandler(provider, signingSecret)

	// --- Phase 7: 初始化路由 ---
	appRouter := router.NewRouter(uploadHandler, workflowHandler, objectHandler, mw)

	// --- Phase 8: 配置 Gin 引擎 ---
	if cfg.GetBool(config.KeyServerDebug) {
		gin.SetMode(gin.DebugMode)
		log.Println("运行模式: Debug (Gin 将打印详细路由日志)")
	} else {
		gin.SetMode(gin.ReleaseMode)
		log.Println("运行模式: Release (Gin 启动日志已禁用)")
	}

	engine := gin.Default()
	if err := engine.SetTrustedProxies([]string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}); err != nil {
		return nil, cleanup, fmt.Errorf("设置信任代理失败: %w", err)
	}
	engine.ForwardedByClientIP = true
	engine.Use(middleware.Cors())
	appRouter.Setup(engine)

	app := &App{
		cfg:            cfg,
		engine:         engine,
		db:             db,
		taskBroker:     taskBroker,
		eventBus:       eventBus,
		mw:             mw,
		fileRepo:       fileRepo,
		transitionRepo: transitionRepo,
		cacheSvc:       cacheSvc,
		uploadSvc:      uploadSvc,
		workflowEngine: workflowEngine,
	}

	return app, cleanup, nil
}

func (a *App) Config() *config.Config {
	return a.cfg
}

func (a *App) Engine() *gin.Engine {
	return a.engine
}

func (a *App) Middleware() *middleware.Middleware {
	return a.mw
}

func (a *App) FileRepository() repository.FileRepository {
	return a.fileRepo
}

func (a *App) TransitionRepository() repository.TransitionRepository {
	return a.transitionRepo
}

func (a *App) CacheService() utility.CacheService {
	return a.cacheSvc
}

// UploadService 返回上传代理服务实例
func (a *App) UploadService() *upload_service.Service {
	return a.uploadSvc
}

// WorkflowEngine 返回工作流引擎实例
func (a *App) WorkflowEngine() *workflow_service.Engine {
	return a.workflowEngine
}

// EventBus 返回事件总线，用于发布和订阅事件
func (a *App) EventBus() *event.EventBus {
	return a.eventBus
}

func (a *App) Run() error {
	a.taskBroker.RegisterCronJobs()
	a.taskBroker.Start()
	port := a.cfg.GetString(config.KeyServerPort)
	if port == "" {
		port = "8093"
	}
	fmt.Printf("应用程序启动成功，正在监听端口: %s\n", port)

	return a.engine.Run(":" + port)
}

func (a *App) Stop() {
	if a.taskBroker != nil {
		a.taskBroker.Stop()
		log.Println("任务调度器已停止。")
	}
	if a.eventBus != nil {
		a.eventBus.Shutdown()
	}
}

// getOrCreateIDSeed 从数据库获取或创建 IDSeed。
// IDSeed 用于打乱公共 ID 字母表，存储在数据库中以防止被外部修改；
// 首次启动时生成随机种子并落库，此后每次启动读取同一个值。
func getOrCreateIDSeed(ctx context.Context, settingRepo repository.SettingRepository) (string, error) {
	const idSeedKey = "id_seed"

	setting, err := settingRepo.FindByKey(ctx, idSeedKey)
	if err == nil && setting != nil {
		log.Println("📦 已从数据库加载 IDSeed")
		return setting.Value, nil
	}

	newSeed, err := idgen.GenerateRandomSeed()
	if err != nil {
		return "", fmt.Errorf("生成随机 IDSeed 失败: %w", err)
	}

	newSetting := &model.Setting{
		ConfigKey: idSeedKey,
		Value:     newSeed,
	}
	if err := settingRepo.Save(ctx, newSetting); err != nil {
		return "", fmt.Errorf("保存 IDSeed 到数据库失败: %w", err)
	}
	log.Println("✅ 首次启动，已生成随机 IDSeed")

	return newSeed, nil
}
