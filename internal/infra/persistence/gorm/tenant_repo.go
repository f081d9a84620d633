/*
 * @Description: 租户与项目仓库的 GORM 实现
 * @Author: 安知鱼
 * @Date: 2026-08-23 10:52:09
 * @LastEditTime: 2026-08-23 10:52:09
 * @LastEditors: 安知鱼
 */
package gorm

import (
	"context"

	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"

	"gorm.io/gorm"
)

type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository 创建一个 TenantRepository 接口的 GORM 实现实例。
func NewTenantRepository(db *gorm.DB) repository.TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) Create(ctx context.Context, tenant *model.Tenant) error {
	po := &Tenant{Name: tenant.Name}
	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		return translateError(err)
	}
	tenant.ID = po.ID
	tenant.CreatedAt = po.CreatedAt
	tenant.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *tenantRepository) FindByID(ctx context.Context, id uint) (*model.Tenant, error) {
	var po Tenant
	if err := r.db.WithContext(ctx).First(&po, id).Error; err != nil {
		return nil, translateError(err)
	}
	return toDomainTenant(&po), nil
}

func (r *tenantRepository) FindByName(ctx context.Context, name string) (*model.Tenant, error) {
	var po Tenant
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&po).Error; err != nil {
		return nil, translateError(err)
	}
	return toDomainTenant(&po), nil
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建一个 ProjectRepository 接口的 GORM 实现实例。
func NewProjectRepository(db *gorm.DB) repository.ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *model.Project) error {
	po := &Project{TenantID: project.TenantID, Name: project.Name}
	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		return translateError(err)
	}
	project.ID = po.ID
	project.CreatedAt = po.CreatedAt
	project.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *projectRepository) FindByIDAndTenant(ctx context.Context, id, tenantID uint) (*model.Project, error) {
	var po Project
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&po).Error
	if err != nil {
		return nil, translateError(err)
	}
	return toDomainProject(&po), nil
}

func (r *projectRepository) ListByTenant(ctx context.Context, tenantID uint) ([]*model.Project, error) {
	var pos []*Project
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id ASC").
		Find(&pos).Error
	if err != nil {
		return nil, translateError(err)
	}
	projects := make([]*model.Project, 0, len(pos))
	for _, po := range pos {
		projects = append(projects, toDomainProject(po))
	}
	return projects, nil
}
