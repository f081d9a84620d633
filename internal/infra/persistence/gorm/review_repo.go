/*
 * @Description: 质检记录仓库的 GORM 实现
 * @Author: 安知鱼
 * @Date: 2026-08-23 10:47:33
 * @LastEditTime: 2026-08-23 10:47:33
 * @LastEditors: 安知鱼
 */
package gorm

import (
	"context"
	"time"

	"github.com/anzhiyu-c/anshen-app/internal/pkg/types"
	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"

	"gorm.io/gorm"
)

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository 创建一个 ReviewRepository 接口的 GORM 实现实例。
func NewReviewRepository(db *gorm.DB) repository.ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *model.QCReview) error {
	// 同一 (文件, 阶段) 只允许一条未裁决记录。
	var count int64
	err := r.db.WithContext(ctx).Model(&QCReview{}).
		Where("file_id = ? AND stage = ? AND status = ?", review.FileID, review.Stage, int(model.ReviewStatusPending)).
		Count(&count).Error
	if err != nil {
		return translateError(err)
	}
	if count > 0 {
		return constant.ErrConflict
	}

	po := fromDomainReview(review)
	po.ID = 0
	po.CreatedAt = time.Time{}
	po.UpdatedAt = time.Time{}
	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		return translateError(err)
	}
	review.ID = po.ID
	review.CreatedAt = po.CreatedAt
	review.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *reviewRepository) FindOpenByFileAndStage(ctx context.Context, fileID uint, stage string) (*model.QCReview, error) {
	var po QCReview
	err := r.db.WithContext(ctx).
		Where("file_id = ? AND stage = ? AND status = ?", fileID, stage, int(model.ReviewStatusPending)).
		Order("created_at DESC, id DESC").
		First(&po).Error
	if err != nil {
		return nil, translateError(err)
	}
	return toDomainReview(&po), nil
}

func (r *reviewRepository) CloseOpenForStage(ctx context.Context, fileID uint, stage string, action constant.WorkflowAction, reviewerID types.NullUint64) error {
	res := r.db.WithContext(ctx).Model(&QCReview{}).
		Where("file_id = ? AND stage = ? AND status = ?", fileID, stage, int(model.ReviewStatusPending)).
		Updates(map[string]interface{}{
			"status":      int(model.ReviewStatusCompleted),
			"action":      string(action),
			"reviewer_id": nullToPtr(reviewerID),
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	// 没有未裁决记录属于正常情况，例如文件从 UPLOADED 直接进入首个阶段。
	return nil
}

func (r *reviewRepository) ListByFile(ctx context.Context, fileID uint) ([]*model.QCReview, error) {
	var pos []*QCReview
	err := r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("created_at ASC, id ASC").
		Find(&pos).Error
	if err != nil {
		return nil, translateError(err)
	}
	reviews := make([]*model.QCReview, 0, len(pos))
	for _, po := range pos {
		reviews = append(reviews, toDomainReview(po))
	}
	return reviews, nil
}
