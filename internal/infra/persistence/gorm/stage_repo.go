/*
 * @Description: 审核阶段仓库的 GORM 实现
 * @Author: 安知鱼
 * @Date: 2026-08-23 10:38:05
 * @LastEditTime: 2026-08-23 10:38:05
 * @LastEditors: 安知鱼
 */
package gorm

import (
	"context"
	"time"

	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"

	"gorm.io/gorm"
)

type stageRepository struct {
	db *gorm.DB
}

// NewStageRepository 创建一个 StageRepository 接口的 GORM 实现实例。
func NewStageRepository(db *gorm.DB) repository.StageRepository {
	return &stageRepository{db: db}
}

func (r *stageRepository) Create(ctx context.Context, stage *model.WorkflowStage) error {
	po := fromDomainStage(stage)
	po.ID = 0
	po.CreatedAt = time.Time{}
	po.UpdatedAt = time.Time{}
	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		return translateError(err)
	}
	stage.ID = po.ID
	stage.CreatedAt = po.CreatedAt
	stage.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *stageRepository) Update(ctx context.Context, stage *model.WorkflowStage) error {
	po := fromDomainStage(stage)
	// 用 map 更新以便把 is_active 显式写为 false。
	res := r.db.WithContext(ctx).Model(&WorkflowStage{}).Where("id = ?", stage.ID).Updates(map[string]interface{}{
		"display_name": po.DisplayName,
		"order_index":  po.OrderIndex,
		"is_active":    po.IsActive,
	})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return constant.ErrNotFound
	}
	return nil
}

func (r *stageRepository) FindByIDAndTenant(ctx context.Context, id, tenantID uint) (*model.WorkflowStage, error) {
	var po WorkflowStage
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&po).Error
	if err != nil {
		return nil, translateError(err)
	}
	return toDomainStage(&po), nil
}

func (r *stageRepository) FindByName(ctx context.Context, tenantID uint, name string) (*model.WorkflowStage, error) {
	var po WorkflowStage
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND name = ?", tenantID, name).
		First(&po).Error
	if err != nil {
		return nil, translateError(err)
	}
	return toDomainStage(&po), nil
}

func (r *stageRepository) ListByTenant(ctx context.Context, tenantID uint) ([]*model.WorkflowStage, error) {
	var pos []*WorkflowStage
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("order_index ASC").
		Find(&pos).Error
	if err != nil {
		return nil, translateError(err)
	}
	stages := make([]*model.WorkflowStage, 0, len(pos))
	for _, po := range pos {
		stages = append(stages, toDomainStage(po))
	}
	return stages, nil
}
