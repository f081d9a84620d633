package gorm

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

// Migrate 按依赖顺序同步所有表结构。
func Migrate(db *gorm.DB) error {
	log.Println("开始执行数据库迁移...")

	if err := db.AutoMigrate(
		&Tenant{},
		&Project{},
		&WorkflowStage{},
		&File{},
		&StageTransition{},
		&QCReview{},
		&Setting{},
	); err != nil {
		return fmt.Errorf("数据库表结构迁移失败: %w", err)
	}

	log.Println("✅ 数据库迁移完成。")
	return nil
}
