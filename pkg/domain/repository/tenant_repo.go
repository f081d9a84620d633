/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-02-11 11:25:50
 * @LastEditTime: 2026-02-11 11:26:07
 * @LastEditors: 安知鱼
 */
package repository

import (
	"context"

	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
)

// TenantRepository 定义了租户的数据操作契约。
type TenantRepository interface {
	Create(ctx context.Context, tenant *model.Tenant) error
	FindByID(ctx context.Context, id uint) (*model.Tenant, error)
	FindByName(ctx context.Context, name string) (*model.Tenant, error)
}

// ProjectRepository 定义了项目的数据操作契约。
// 跨租户查找返回 constant.ErrNotFound。
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	FindByIDAndTenant(ctx context.Context, id, tenantID uint) (*model.Project, error)
	ListByTenant(ctx context.Context, tenantID uint) ([]*model.Project, error)
}
