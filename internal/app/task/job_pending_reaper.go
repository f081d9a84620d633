/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-08-23 18:05:17
 * @LastEditTime: 2026-08-23 18:05:17
 * @LastEditors: 安知鱼
 */
// internal/app/task/job_pending_reaper.go
package task

import (
	"context"
	"log"
	"time"

	"github.com/anzhiyu-c/anshen-app/internal/infra/storage"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"
)

// PendingReaperJob 负责回收过期的 PENDING 占位记录。
// 客户端申请了上传授权却一直没有确认时，占位记录会永远停在 PENDING，
// 该任务按创建时间批量清掉这些记录，并顺带删除可能已写入的半成品对象。
type PendingReaperJob struct {
	fileRepo  repository.FileRepository
	provider  storage.IStorageProvider
	ttl       time.Duration
	batchSize int
}

// NewPendingReaperJob 是任务的构造函数
func NewPendingReaperJob(fileRepo repository.FileRepository, provider storage.IStorageProvider, ttl time.Duration) *PendingReaperJob {
	return &PendingReaperJob{
		fileRepo:  fileRepo,
		provider:  provider,
		ttl:       ttl,
		batchSize: 200,
	}
}

// Run 是 Job 接口要求实现的方法
func (j *PendingReaperJob) Run() {
	ctx := context.Background()
	cutoff := time.Now().Add(-j.ttl)

	files, err := j.fileRepo.ListExpiredPending(ctx, cutoff, j.batchSize)
	if err != nil {
		log.Printf("任务 '%s' 查询过期占位记录失败: %v", j.Name(), err)
		return
	}
	if len(files) == 0 {
		return
	}

	reaped := 0
	for _, file := range files {
		// 对象可能已被客户端写入但始终没有确认，先尽力删对象再删记录。
		// 对象删除失败不阻塞记录回收，残留对象下一轮还有机会清理。
		if err := j.provider.DeleteObject(ctx, file.StorageKey); err != nil {
			log.Printf("任务 '%s' 删除对象 %s 失败: %v", j.Name(), file.StorageKey, err)
		}
		if err := j.fileRepo.Delete(ctx, file.ID); err != nil {
			log.Printf("任务 '%s' 删除占位记录 %d 失败: %v", j.Name(), file.ID, err)
			continue
		}
		reaped++
	}

	log.Printf("任务 '%s' 业务逻辑执行完毕，共回收了 %d 条过期占位记录。", j.Name(), reaped)
}

// Name 方法让日志包装器可以打印出更有意义的任务名
func (j *PendingReaperJob) Name() string {
	return "PendingReaperJob"
}
