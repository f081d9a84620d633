// internal/app/bootstrap/bootstrap.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/anzhiyu-c/anshen-app/internal/configdef"
	gorm_impl "github.com/anzhiyu-c/anshen-app/internal/infra/persistence/gorm"
	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"
)

// Bootstrapper 负责首次启动与升级时的数据库准备工作：
// 同步表结构、确保默认租户存在、为没有阶段配置的租户写入默认审核阶段。
type Bootstrapper struct {
	db         *gorm.DB
	tenantRepo repository.TenantRepository
	stageRepo  repository.StageRepository
}

func NewBootstrapper(db *gorm.DB, tenantRepo repository.TenantRepository, stageRepo repository.StageRepository) *Bootstrapper {
	return &Bootstrapper{
		db:         db,
		tenantRepo: tenantRepo,
		stageRepo:  stageRepo,
	}
}

// InitializeDatabase 执行全部引导步骤，任何一步失败都会中止启动。
func (b *Bootstrapper) InitializeDatabase() error {
	log.Println("--- 开始执行数据库初始化引导程序 ---")

	if err := gorm_impl.Migrate(b.db); err != nil {
		return fmt.Errorf("数据库 schema 创建/更新失败: %w", err)
	}
	log.Println("--- 数据库 Schema 同步成功 ---")

	tenant, err := b.ensureDefaultTenant()
	if err != nil {
		return err
	}
	if err := b.syncDefaultStages(tenant); err != nil {
		return err
	}

	log.Println("--- 数据库初始化引导程序执行完成 ---")
	return nil
}

// ensureDefaultTenant 确保默认租户存在，返回该租户。
// 单租户部署下所有登录态都落在这个租户内；多租户部署由外部系统继续开通。
func (b *Bootstrapper) ensureDefaultTenant() (*model.Tenant, error) {
	ctx := context.Background()

	tenant, err := b.tenantRepo.FindByName(ctx, configdef.DefaultTenantName)
	if err == nil {
		return tenant, nil
	}
	if !errors.Is(err, constant.ErrNotFound) {
		return nil, fmt.Errorf("查询默认租户失败: %w", err)
	}

	tenant = &model.Tenant{Name: configdef.DefaultTenantName}
	if err := b.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, fmt.Errorf("创建默认租户失败: %w", err)
	}
	log.Printf("✅ 成功: 默认租户 '%s' 已创建 (ID: %d)。", tenant.Name, tenant.ID)
	return tenant, nil
}

// syncDefaultStages 在租户没有任何阶段配置时写入默认审核阶段序列。
// 已有配置（含全部停用的情况）一律不动，避免覆盖管理员的调整。
func (b *Bootstrapper) syncDefaultStages(tenant *model.Tenant) error {
	ctx := context.Background()

	existing, err := b.stageRepo.ListByTenant(ctx, tenant.ID)
	if err != nil {
		return fmt.Errorf("查询租户 %d 的阶段配置失败: %w", tenant.ID, err)
	}
	if len(existing) > 0 {
		log.Printf("--- 租户 '%s' 已有 %d 个阶段配置，跳过默认阶段初始化。---", tenant.Name, len(existing))
		return nil
	}

	created := 0
	for _, def := range configdef.DefaultStages {
		stage := &model.WorkflowStage{
			TenantID:    tenant.ID,
			Name:        def.Name,
			DisplayName: def.DisplayName,
			OrderIndex:  def.OrderIndex,
			IsActive:    true,
		}
		if err := b.stageRepo.Create(ctx, stage); err != nil {
			return fmt.Errorf("创建默认审核阶段 '%s' 失败: %w", def.Name, err)
		}
		created++
	}
	log.Printf("✅ 成功: 已为租户 '%s' 写入 %d 个默认审核阶段。", tenant.Name, created)
	return nil
}
