/*
 * @Description: 运行时键值配置的数据操作契约
 * @Author: 安知鱼
 * @Date: 2026-02-11 11:31:28
 * @LastEditTime: 2026-02-11 11:32:02
 * @LastEditors: 安知鱼
 */
package repository

import (
	"context"

	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
)

// SettingRepository 定义了运行时键值配置的数据操作契约。
// 目前只承载必须随数据库存续的少量状态（如公共 ID 编码种子）。
type SettingRepository interface {
	// FindByKey 根据键查找配置，不存在时返回 constant.ErrNotFound。
	FindByKey(ctx context.Context, key string) (*model.Setting, error)
	// Save 创建或覆盖配置。
	Save(ctx context.Context, setting *model.Setting) error
}
