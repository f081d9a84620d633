/*
 * @Description: 文件仓库接口定义
 * @Author: 安知鱼
 * @Date: 2026-02-11 11:10:36
 * @LastEditTime: 2026-08-06 10:41:15
 * @LastEditors: 安知鱼
 */
package repository

import (
	"context"
	"time"

	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
)

// FileListParams 定义了文件列表查询的过滤与分页参数。
// TenantID 必填，其余过滤项为空时不参与过滤。
type FileListParams struct {
	TenantID  uint
	ProjectID uint   // 0 表示不过滤
	Stage     string // 为空表示不过滤
	Status    model.FileStatus // 0 表示不过滤
	Page      int
	PageSize  int
}

// FileRepository 定义了所有文件数据操作的契约。
// 所有按租户查找的方法在跨租户访问时返回 constant.ErrNotFound，
// 与记录不存在不可区分。
type FileRepository interface {
	// Create 创建文件记录（含 PENDING 占位记录）。
	// 存储键冲突时返回 constant.ErrConflict。
	Create(ctx context.Context, file *model.File) error

	// Update 保存文件记录的全部可变字段。StorageKey 不可变，不会被更新。
	Update(ctx context.Context, file *model.File) error

	// UpdateWithStageCheck 在确认观察到的阶段未变的前提下保存文件。
	// 底层执行条件更新 (WHERE current_stage = expectedStage)；
	// 没有命中任何行时返回 constant.ErrBusy，调用方应回滚本次流转。
	UpdateWithStageCheck(ctx context.Context, file *model.File, expectedStage string) error

	// Delete 物理删除文件记录，仅用于回收过期的 PENDING 占位记录。
	Delete(ctx context.Context, id uint) error

	// FindByID 根据内部数据库 ID 查找文件，不做租户过滤，仅限内部使用。
	FindByID(ctx context.Context, id uint) (*model.File, error)

	// FindByIDAndTenant 在租户范围内根据 ID 查找文件。
	FindByIDAndTenant(ctx context.Context, id, tenantID uint) (*model.File, error)

	// FindByStorageKey 在租户范围内根据对象存储键查找文件。
	FindByStorageKey(ctx context.Context, tenantID uint, key string) (*model.File, error)

	// List 按条件分页列出租户的文件，返回记录与总数。
	List(ctx context.Context, params FileListParams) ([]*model.File, int64, error)

	// CountActiveByStage 统计租户内停留在指定阶段的 ACTIVE 文件数，
	// 用于阶段停用前的占用检查。
	CountActiveByStage(ctx context.Context, tenantID uint, stage string) (int64, error)

	// ListExpiredPending 列出在 olderThan 之前创建且仍为 PENDING 的占位记录，
	// 供后台回收任务使用。
	ListExpiredPending(ctx context.Context, olderThan time.Time, limit int) ([]*model.File, error)

	// ListRecentlyUpdated 列出 since 之后有变动的 ACTIVE 文件，供台账审计任务使用。
	ListRecentlyUpdated(ctx context.Context, since time.Time, limit int) ([]*model.File, error)
}
