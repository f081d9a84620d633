/*
 * @Description: 流转台账仓库的 GORM 实现，只追加不修改
 * @Author: 安知鱼
 * @Date: 2026-08-23 10:42:51
 * @LastEditTime: 2026-08-23 10:42:51
 * @LastEditors: 安知鱼
 */
package gorm

import (
	"context"
	"time"

	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"

	"gorm.io/gorm"
)

type transitionRepository struct {
	db *gorm.DB
}

// NewTransitionRepository 创建一个 TransitionRepository 接口的 GORM 实现实例。
func NewTransitionRepository(db *gorm.DB) repository.TransitionRepository {
	return &transitionRepository{db: db}
}

func (r *transitionRepository) Append(ctx context.Context, transition *model.StageTransition) error {
	po := fromDomainTransition(transition)
	po.ID = 0
	po.CreatedAt = time.Time{}
	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		return translateError(err)
	}
	transition.ID = po.ID
	transition.CreatedAt = po.CreatedAt
	return nil
}

func (r *transitionRepository) ListByFile(ctx context.Context, fileID uint) ([]*model.StageTransition, error) {
	var pos []*StageTransition
	// (created_at, id) 双键排序，同一时刻写入的记录也能保持稳定总序。
	err := r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("created_at ASC, id ASC").
		Find(&pos).Error
	if err != nil {
		return nil, translateError(err)
	}
	transitions := make([]*model.StageTransition, 0, len(pos))
	for _, po := range pos {
		transitions = append(transitions, toDomainTransition(po))
	}
	return transitions, nil
}

func (r *transitionRepository) LastByFile(ctx context.Context, fileID uint) (*model.StageTransition, error) {
	var po StageTransition
	err := r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("created_at DESC, id DESC").
		First(&po).Error
	if err != nil {
		return nil, translateError(err)
	}
	return toDomainTransition(&po), nil
}
