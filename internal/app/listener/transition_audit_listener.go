/*
 * @Description: 监听工作流事件，核对台账末条与文件当前阶段的一致性。
 * @Author: 安知鱼
 * @Date: 2026-08-23 17:48:36
 * @LastEditTime: 2026-08-23 17:48:36
 * @LastEditors: 安知鱼
 */
package listener

import (
	"context"
	"errors"
	"log"

	"github.com/anzhiyu-c/anshen-app/internal/pkg/event"
	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"
)

// TransitionAuditListener 订阅台账落账事件，在后台核对每次流转后
// 台账的最后一条记录与文件的当前阶段仍然吻合。
// 核对只读不写，发现分歧时仅告警，由定时审计任务兜底处理。
type TransitionAuditListener struct {
	fileRepo       repository.FileRepository
	transitionRepo repository.TransitionRepository
}

// NewTransitionAuditListener 是 TransitionAuditListener 的构造函数。
// 它同时订阅上传确认与工作流落账两个事件。
func NewTransitionAuditListener(
	eventBus *event.EventBus,
	fileRepo repository.FileRepository,
	transitionRepo repository.TransitionRepository,
) *TransitionAuditListener {
	listener := &TransitionAuditListener{
		fileRepo:       fileRepo,
		transitionRepo: transitionRepo,
	}
	eventBus.Subscribe(event.TransitionApplied, listener.handleTransitionApplied)
	eventBus.Subscribe(event.FileConfirmed, listener.handleFileConfirmed)
	return listener
}

// handleTransitionApplied 核对一次流转落账后的台账一致性。
func (l *TransitionAuditListener) handleTransitionApplied(payload interface{}) {
	p, ok := payload.(event.TransitionAppliedPayload)
	if !ok {
		log.Printf("[台账审计] 错误：收到的 TransitionApplied 事件负载类型不正确")
		return
	}

	l.auditFile(context.Background(), p.FileID)
}

// handleFileConfirmed 核对入库台账首条记录已经落账。
func (l *TransitionAuditListener) handleFileConfirmed(payload interface{}) {
	p, ok := payload.(event.FileConfirmedPayload)
	if !ok {
		log.Printf("[台账审计] 错误：收到的 FileConfirmed 事件负载类型不正确")
		return
	}

	ctx := context.Background()
	last, err := l.transitionRepo.LastByFile(ctx, p.FileID)
	if err != nil {
		if errors.Is(err, constant.ErrNotFound) {
			log.Printf("⚠️ [台账审计] 文件 %d 已确认入库但没有任何台账记录", p.FileID)
		} else {
			log.Printf("[台账审计] 读取文件 %d 的台账失败: %v", p.FileID, err)
		}
		return
	}
	if last.ToStage != constant.StageUploaded {
		// 确认事件可能晚于后续流转送达，末条不是 UPLOADED 不算异常
		return
	}
	if last.Action != constant.ActionAssign {
		log.Printf("⚠️ [台账审计] 文件 %d 的入库台账动作异常: %s", p.FileID, last.Action)
	}
}

// auditFile 读回文件与台账末条，阶段不吻合时告警。
func (l *TransitionAuditListener) auditFile(ctx context.Context, fileID uint) {
	file, err := l.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		log.Printf("[台账审计] 读取文件 %d 失败: %v", fileID, err)
		return
	}

	last, err := l.transitionRepo.LastByFile(ctx, fileID)
	if err != nil {
		log.Printf("[台账审计] 读取文件 %d 的台账失败: %v", fileID, err)
		return
	}

	// 事件是异步送达的，期间可能又发生了新的流转，
	// 以读回时刻的两侧状态为准做一致性判断。
	if last.ToStage != file.CurrentStage {
		log.Printf("⚠️ [台账审计] 文件 %d 台账末条指向 %s，但当前阶段为 %s", fileID, last.ToStage, file.CurrentStage)
	}
}
