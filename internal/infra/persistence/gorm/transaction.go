/*
 * @Description: 基于 GORM 的事务管理器实现
 * @Author: 安知鱼
 * @Date: 2026-08-23 10:22:40
 * @LastEditTime: 2026-08-23 10:22:40
 * @LastEditors: 安知鱼
 */
package gorm

import (
	"context"
	"fmt"

	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"

	"gorm.io/gorm"
)

type gormTransactionManager struct {
	db *gorm.DB
}

// NewTransactionManager 创建一个 TransactionManager 接口的 GORM 实现实例。
func NewTransactionManager(db *gorm.DB) repository.TransactionManager {
	return &gormTransactionManager{db: db}
}

// NewRepositories 基于给定的数据库句柄组装全部仓储。
// 传入事务句柄时，返回的仓储都运行在同一个事务里。
func NewRepositories(db *gorm.DB) repository.Repositories {
	return repository.Repositories{
		File:       NewFileRepository(db),
		Stage:      NewStageRepository(db),
		Transition: NewTransitionRepository(db),
		Review:     NewReviewRepository(db),
		Tenant:     NewTenantRepository(db),
		Project:    NewProjectRepository(db),
		Setting:    NewSettingRepository(db),
	}
}

// Do 在一个数据库事务中执行 fn。
// fn 返回错误或发生 panic 时回滚，否则提交。
func (tm *gormTransactionManager) Do(ctx context.Context, fn func(repos repository.Repositories) error) error {
	tx := tm.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("启动事务失败: %w", tx.Error)
	}

	defer func() {
		if v := recover(); v != nil {
			tx.Rollback()
			panic(v)
		}
	}()

	repos := NewRepositories(tx)

	if err := fn(repos); err != nil {
		if rerr := tx.Rollback().Error; rerr != nil {
			return fmt.Errorf("事务执行失败: %w, 回滚事务也失败: %v", err, rerr)
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}
