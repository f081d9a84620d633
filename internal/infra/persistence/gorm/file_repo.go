/*
 * @Description: 文件仓库的 GORM 实现
 * @Author: 安知鱼
 * @Date: 2026-08-23 10:31:17
 * @LastEditTime: 2026-08-23 10:31:17
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

type fileRepository struct {
	db *gorm.DB
}

// NewFileRepository 创建一个 FileRepository 接口的 GORM 实现实例。
func NewFileRepository(db *gorm.DB) repository.FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(ctx context.Context, file *model.File) error {
	po := fromDomainFile(file)
	po.ID = 0
	po.CreatedAt = time.Time{}
	po.UpdatedAt = time.Time{}
	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		return translateError(err)
	}
	file.ID = po.ID
	file.CreatedAt = po.CreatedAt
	file.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *fileRepository) Update(ctx context.Context, file *model.File) error {
	po := fromDomainFile(file)
	// 用 map 更新以便把 assignee_id 等字段写回 NULL，storage_key 不在更新列内。
	res := r.db.WithContext(ctx).Model(&File{}).Where("id = ?", file.ID).Updates(map[string]interface{}{
		"original_name":  po.OriginalName,
		"declared_mime":  po.DeclaredMIME,
		"size":           po.Size,
		"status":         po.Status,
		"current_stage":  po.CurrentStage,
		"revision_count": po.RevisionCount,
		"assignee_id":    po.AssigneeID,
		"metadata":       po.Metadata,
	})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return constant.ErrNotFound
	}
	return nil
}

func (r *fileRepository) UpdateWithStageCheck(ctx context.Context, file *model.File, expectedStage string) error {
	po := fromDomainFile(file)
	res := r.db.WithContext(ctx).Model(&File{}).
		Where("id = ? AND current_stage = ?", file.ID, expectedStage).
		Updates(map[string]interface{}{
			"status":         po.Status,
			"current_stage":  po.CurrentStage,
			"revision_count": po.RevisionCount,
			"assignee_id":    po.AssigneeID,
			"declared_mime":  po.DeclaredMIME,
			"size":           po.Size,
			"metadata":       po.Metadata,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return constant.ErrBusy
	}
	return nil
}

func (r *fileRepository) Delete(ctx context.Context, id uint) error {
	return translateError(r.db.WithContext(ctx).Delete(&File{}, id).Error)
}

func (r *fileRepository) FindByID(ctx context.Context, id uint) (*model.File, error) {
	var po File
	if err := r.db.WithContext(ctx).First(&po, id).Error; err != nil {
		return nil, translateError(err)
	}
	return toDomainFile(&po), nil
}

func (r *fileRepository) FindByIDAndTenant(ctx context.Context, id, tenantID uint) (*model.File, error) {
	var po File
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&po).Error
	if err != nil {
		return nil, translateError(err)
	}
	return toDomainFile(&po), nil
}

func (r *fileRepository) FindByStorageKey(ctx context.Context, tenantID uint, key string) (*model.File, error) {
	var po File
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND storage_key = ?", tenantID, key).
		First(&po).Error
	if err != nil {
		return nil, translateError(err)
	}
	return toDomainFile(&po), nil
}

func (r *fileRepository) List(ctx context.Context, params repository.FileListParams) ([]*model.File, int64, error) {
	query := r.db.WithContext(ctx).Model(&File{}).Where("tenant_id = ?", params.TenantID)
	if params.ProjectID != 0 {
		query = query.Where("project_id = ?", params.ProjectID)
	}
	if params.Stage != "" {
		query = query.Where("current_stage = ?", params.Stage)
	}
	if params.Status != 0 {
		query = query.Where("status = ?", int(params.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var pos []*File
	err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&pos).Error
	if err != nil {
		return nil, 0, translateError(err)
	}

	files := make([]*model.File, 0, len(pos))
	for _, po := range pos {
		files = append(files, toDomainFile(po))
	}
	return files, total, nil
}

func (r *fileRepository) CountActiveByStage(ctx context.Context, tenantID uint, stage string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&File{}).
		Where("tenant_id = ? AND current_stage = ? AND status = ?", tenantID, stage, int(model.FileStatusActive)).
		Count(&count).Error
	if err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

func (r *fileRepository) ListExpiredPending(ctx context.Context, olderThan time.Time, limit int) ([]*model.File, error) {
	var pos []*File
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", int(model.FileStatusPending), olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&pos).Error
	if err != nil {
		return nil, translateError(err)
	}
	files := make([]*model.File, 0, len(pos))
	for _, po := range pos {
		files = append(files, toDomainFile(po))
	}
	return files, nil
}

func (r *fileRepository) ListRecentlyUpdated(ctx context.Context, since time.Time, limit int) ([]*model.File, error) {
	var pos []*File
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at >= ?", int(model.FileStatusActive), since).
		Order("updated_at DESC").
		Limit(limit).
		Find(&pos).Error
	if err != nil {
		return nil, translateError(err)
	}
	files := make([]*model.File, 0, len(pos))
	for _, po := range pos {
		files = append(files, toDomainFile(po))
	}
	return files, nil
}
