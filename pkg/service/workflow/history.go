/*
 * @Description: 流转历史查询
 * @Author: 安知鱼
 * @Date: 2026-08-23 15:51:26
 * @LastEditTime: 2026-08-23 15:51:26
 * @LastEditors: 安知鱼
 */
package workflow

import (
	"context"
	"fmt"

	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
	"github.com/anzhiyu-c/anshen-app/pkg/idgen"
)

// buildTransitionItem 把台账记录换为对外表示。
func buildTransitionItem(t *model.StageTransition) (*model.TransitionItem, error) {
	publicID, err := idgen.GeneratePublicID(t.ID, idgen.EntityTypeTransition)
	if err != nil {
		return nil, fmt.Errorf("生成流转记录公共ID失败: %w", err)
	}
	item := &model.TransitionItem{
		ID:        publicID,
		FromStage: t.FromStage,
		ToStage:   t.ToStage,
		Action:    t.Action.String(),
		Comment:   t.Comment,
		CreatedAt: t.CreatedAt,
	}
	if t.ActorID.Valid {
		actorPublicID, err := idgen.GeneratePublicID(uint(t.ActorID.Uint64), idgen.EntityTypeUser)
		if err != nil {
			return nil, fmt.Errorf("生成用户公共ID失败: %w", err)
		}
		item.Actor = actorPublicID
	}
	return item, nil
}

// GetHistory 按台账总顺序返回文件的全部流转记录。
// PENDING 占位记录没有历史，按不存在处理。
func (e *Engine) GetHistory(ctx context.Context, tenantID uint, filePublicID string) (*model.HistoryResponse, error) {
	fileID, err := idgen.DecodePublicIDOfType(filePublicID, idgen.EntityTypeFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", constant.ErrInvalidPublicID, err)
	}
	file, err := e.fileRepo.FindByIDAndTenant(ctx, fileID, tenantID)
	if err != nil {
		return nil, err
	}
	if file.IsPending() {
		return nil, constant.ErrNotFound
	}

	rows, err := e.transitionRepo.ListByFile(ctx, file.ID)
	if err != nil {
		return nil, err
	}

	items := make([]*model.TransitionItem, 0, len(rows))
	for _, row := range rows {
		item, err := buildTransitionItem(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return &model.HistoryResponse{
		FileID:      filePublicID,
		Transitions: items,
	}, nil
}
