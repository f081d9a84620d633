/*
 * @Description: 站点配置仓库的 GORM 实现
 * @Author: 安知鱼
 * @Date: 2026-08-23 10:55:44
 * @LastEditTime: 2026-08-23 10:55:44
 * @LastEditors: 安知鱼
 */
package gorm

import (
	"context"
	"errors"

	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"

	"gorm.io/gorm"
)

type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository 创建一个 SettingRepository 接口的 GORM 实现实例。
func NewSettingRepository(db *gorm.DB) repository.SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) FindByKey(ctx context.Context, key string) (*model.Setting, error) {
	var po Setting
	if err := r.db.WithContext(ctx).Where("config_key = ?", key).First(&po).Error; err != nil {
		return nil, translateError(err)
	}
	return toDomainSetting(&po), nil
}

func (r *settingRepository) Save(ctx context.Context, setting *model.Setting) error {
	var existing Setting
	err := r.db.WithContext(ctx).Where("config_key = ?", setting.ConfigKey).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			po := &Setting{ConfigKey: setting.ConfigKey, Value: setting.Value}
			if cerr := r.db.WithContext(ctx).Create(po).Error; cerr != nil {
				return translateError(cerr)
			}
			setting.ID = po.ID
			setting.CreatedAt = po.CreatedAt
			setting.UpdatedAt = po.UpdatedAt
			return nil
		}
		return translateError(err)
	}

	res := r.db.WithContext(ctx).Model(&Setting{}).
		Where("id = ?", existing.ID).
		Update("value", setting.Value)
	if res.Error != nil {
		return translateError(res.Error)
	}
	setting.ID = existing.ID
	return nil
}
