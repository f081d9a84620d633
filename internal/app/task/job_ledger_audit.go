/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-08-23 18:11:02
 * @LastEditTime: 2026-08-23 18:11:02
 * @LastEditors: 安知鱼
 */
// internal/app/task/job_ledger_audit.go
package task

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"
)

// LedgerAuditJob 周期性核对流转台账与文件当前阶段的一致性。
// 正常情况下每个 ACTIVE 文件台账的最后一条记录都指向它的当前阶段，
// 该任务扫描近期有变动的文件，对不一致的记录输出告警供人工介入。
type LedgerAuditJob struct {
	fileRepo       repository.FileRepository
	transitionRepo repository.TransitionRepository
	window         time.Duration
	batchSize      int
}

// NewLedgerAuditJob 是任务的构造函数
func NewLedgerAuditJob(fileRepo repository.FileRepository, transitionRepo repository.TransitionRepository) *LedgerAuditJob {
	return &LedgerAuditJob{
		fileRepo:       fileRepo,
		transitionRepo: transitionRepo,
		window:         24 * time.Hour,
		batchSize:      500,
	}
}

// Run 是 Job 接口要求实现的方法
func (j *LedgerAuditJob) Run() {
	ctx := context.Background()
	since := time.Now().Add(-j.window)

	files, err := j.fileRepo.ListRecentlyUpdated(ctx, since, j.batchSize)
	if err != nil {
		log.Printf("任务 '%s' 查询近期变动文件失败: %v", j.Name(), err)
		return
	}

	divergent := 0
	for _, file := range files {
		last, err := j.transitionRepo.LastByFile(ctx, file.ID)
		if err != nil {
			if errors.Is(err, constant.ErrNotFound) {
				// ACTIVE 文件至少应有入库台账记录
				log.Printf("⚠️ 任务 '%s' 发现文件 %d 没有任何台账记录，当前阶段 %s", j.Name(), file.ID, file.CurrentStage)
				divergent++
				continue
			}
			log.Printf("任务 '%s' 读取文件 %d 台账失败: %v", j.Name(), file.ID, err)
			continue
		}
		if last.ToStage != file.CurrentStage {
			log.Printf("⚠️ 任务 '%s' 发现文件 %d 台账末条指向 %s，但当前阶段为 %s", j.Name(), file.ID, last.ToStage, file.CurrentStage)
			divergent++
		}
	}

	if divergent > 0 {
		log.Printf("任务 '%s' 业务逻辑执行完毕，核对 %d 个文件，发现 %d 处不一致。", j.Name(), len(files), divergent)
	} else {
		log.Printf("任务 '%s' 业务逻辑执行完毕，核对 %d 个文件，台账全部一致。", j.Name(), len(files))
	}
}

// Name 方法让日志包装器可以打印出更有意义的任务名
func (j *LedgerAuditJob) Name() string {
	return "LedgerAuditJob"
}
