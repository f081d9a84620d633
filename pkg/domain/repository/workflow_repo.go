/*
 * @Description: 工作流相关仓库接口定义：阶段、流转台账、质检记录
 * @Author: 安知鱼
 * @Date: 2026-02-11 11:18:02
 * @LastEditTime: 2026-08-06 10:44:31
 * @LastEditors: 安知鱼
 */
package repository

import (
	"context"

	"github.com/anzhiyu-c/anshen-app/internal/pkg/types"
	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
)

// StageRepository 定义了审核阶段配置的数据操作契约。
type StageRepository interface {
	// Create 创建审核阶段。名称或顺序与既有阶段冲突时返回 constant.ErrConflict。
	Create(ctx context.Context, stage *model.WorkflowStage) error

	// Update 更新审核阶段的展示名、顺序与启用状态。
	Update(ctx context.Context, stage *model.WorkflowStage) error

	// FindByIDAndTenant 在租户范围内根据 ID 查找阶段。
	FindByIDAndTenant(ctx context.Context, id, tenantID uint) (*model.WorkflowStage, error)

	// FindByName 在租户范围内根据阶段名查找阶段。
	FindByName(ctx context.Context, tenantID uint, name string) (*model.WorkflowStage, error)

	// ListByTenant 列出租户的全部阶段（含停用），按 OrderIndex 升序。
	ListByTenant(ctx context.Context, tenantID uint) ([]*model.WorkflowStage, error)
}

// TransitionRepository 定义了流转台账的数据操作契约。
// 台账只追加：接口上不存在更新或删除。
type TransitionRepository interface {
	// Append 追加一条流转记录。
	Append(ctx context.Context, transition *model.StageTransition) error

	// ListByFile 按台账总顺序 (created_at, id) 列出某文件的全部流转记录。
	ListByFile(ctx context.Context, fileID uint) ([]*model.StageTransition, error)

	// LastByFile 返回某文件台账中的最后一条记录，没有记录时返回 constant.ErrNotFound。
	LastByFile(ctx context.Context, fileID uint) (*model.StageTransition, error)
}

// ReviewRepository 定义了质检记录的数据操作契约。
type ReviewRepository interface {
	// Create 开启一条 PENDING 质检记录。
	// 同一 (文件, 阶段) 已存在 PENDING 记录时返回 constant.ErrConflict。
	Create(ctx context.Context, review *model.QCReview) error

	// FindOpenByFileAndStage 查找某文件在某阶段的未裁决记录，
	// 不存在时返回 constant.ErrNotFound。
	FindOpenByFileAndStage(ctx context.Context, fileID uint, stage string) (*model.QCReview, error)

	// CloseOpenForStage 将某文件在某阶段的未裁决记录标记为已完成，
	// 记录裁决动作与裁决人。没有未裁决记录时静默返回 nil。
	CloseOpenForStage(ctx context.Context, fileID uint, stage string, action constant.WorkflowAction, reviewerID types.NullUint64) error

	// ListByFile 列出某文件的全部质检记录，按创建时间升序。
	ListByFile(ctx context.Context, fileID uint) ([]*model.QCReview, error)
}
