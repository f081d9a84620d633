/*
 * @Description: 审核工作流引擎：按流转表执行动作，台账与文件状态原子落库
 * @Author: 安知鱼
 * @Date: 2026-08-23 15:38:02
 * @LastEditTime: 2026-08-23 15:38:02
 * @LastEditors: 安知鱼
 */
package workflow

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anzhiyu-c/anshen-app/internal/pkg/event"
	"github.com/anzhiyu-c/anshen-app/internal/pkg/types"
	"github.com/anzhiyu-c/anshen-app/pkg/config"
	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"
	"github.com/anzhiyu-c/anshen-app/pkg/idgen"
	"github.com/anzhiyu-c/anshen-app/pkg/service/utility"
)

// Engine 是审核工作流引擎。
// 同一文件的动作串行执行：先拿文件锁，再在事务内完成
// 条件更新、台账追加与质检记录维护。锁内失败不会留下任何写入。
type Engine struct {
	txManager      repository.TransactionManager
	fileRepo       repository.FileRepository
	transitionRepo repository.TransitionRepository
	stageSvc       *StageService
	locker         *utility.FileLocker
	bus            *event.EventBus
	lockTimeout    time.Duration
}

// NewEngine 是工作流引擎的构造函数。
func NewEngine(
	txManager repository.TransactionManager,
	fileRepo repository.FileRepository,
	transitionRepo repository.TransitionRepository,
	stageSvc *StageService,
	locker *utility.FileLocker,
	bus *event.EventBus,
	cfg *config.Config,
) *Engine {
	timeoutMS := cfg.GetIntOrDefault(config.KeyWorkflowLockTimeoutMS, constant.DefaultLockTimeoutMS)
	return &Engine{
		txManager:      txManager,
		fileRepo:       fileRepo,
		transitionRepo: transitionRepo,
		stageSvc:       stageSvc,
		locker:         locker,
		bus:            bus,
		lockTimeout:    time.Duration(timeoutMS) * time.Millisecond,
	}
}

// transitionPlan 是一次动作在落库前计算出的完整效果。
type transitionPlan struct {
	toStage      string
	bumpRevision bool
	assignee     types.NullUint64
	// closeReviewStage 非空时，离开该阶段前关闭其未裁决的质检记录
	closeReviewStage string
	// openReviewStage 非空时，进入该阶段后开启新一轮 PENDING 质检记录
	openReviewStage string
}

// planTransition 按流转表把 (当前阶段, 动作) 映射为执行计划。
// 非法组合返回 ErrInvalidTransition，调用方保证不落任何写入。
func planTransition(file *model.File, action constant.WorkflowAction, stages *model.StageList, actorID types.NullUint64) (*transitionPlan, error) {
	current := file.CurrentStage
	plan := &transitionPlan{toStage: current}

	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", constant.ErrInvalidTransition, fmt.Sprintf(format, args...))
	}

	switch action {
	case constant.ActionAssign:
		if current != constant.StageUploaded {
			return nil, invalid("动作 ASSIGN 只能在 %s 阶段执行，当前为 %s", constant.StageUploaded, current)
		}
		first, ok := stages.First()
		if !ok {
			return nil, invalid("租户未配置任何启用的审核阶段")
		}
		plan.toStage = first.Name
		plan.assignee = actorID
		plan.openReviewStage = first.Name

	case constant.ActionApprove:
		if constant.IsTerminalStage(current) {
			return nil, invalid("阶段 %s 是终态，不允许动作 APPROVE", current)
		}
		if current == constant.StageUploaded {
			// 从入口阶段直接通过：进入第一个启用阶段，不设置负责人；
			// 没有配置审核阶段时视为无需审核，直接完成
			if first, ok := stages.First(); ok {
				plan.toStage = first.Name
				plan.openReviewStage = first.Name
			} else {
				plan.toStage = constant.StageCompleted
			}
			break
		}
		next, ok, err := stages.NextAfter(current)
		if err != nil {
			return nil, invalid("%v", err)
		}
		plan.closeReviewStage = current
		if ok {
			plan.toStage = next
			plan.openReviewStage = next
		} else {
			plan.toStage = constant.StageCompleted
		}

	case constant.ActionFail:
		if constant.IsTerminalStage(current) {
			return nil, invalid("阶段 %s 是终态，不允许动作 FAIL", current)
		}
		plan.bumpRevision = true
		plan.assignee = file.AssigneeID
		if current == constant.StageUploaded {
			// 入库即打回：停留在入口阶段，不涉及质检记录
			break
		}
		if !stages.Contains(current) {
			return nil, invalid("阶段 %s 不在启用的审核阶段序列中", current)
		}
		plan.closeReviewStage = current
		plan.openReviewStage = current

	case constant.ActionRevise:
		if constant.IsTerminalStage(current) {
			return nil, invalid("阶段 %s 是终态，不允许动作 REVISE", current)
		}
		if current == constant.StageUploaded {
			return nil, invalid("阶段 %s 没有上一个阶段，不允许动作 REVISE", current)
		}
		prev, ok, err := stages.PrevBefore(current)
		if err != nil {
			return nil, invalid("%v", err)
		}
		plan.bumpRevision = true
		plan.closeReviewStage = current
		if ok {
			plan.toStage = prev
			plan.openReviewStage = prev
		} else {
			plan.toStage = constant.StageUploaded
		}

	case constant.ActionReopen:
		first, ok := stages.First()
		if !ok {
			return nil, invalid("租户未配置任何启用的审核阶段")
		}
		if stages.Contains(current) {
			plan.closeReviewStage = current
		}
		plan.toStage = first.Name
		plan.openReviewStage = first.Name

	case constant.ActionArchive:
		if stages.Contains(current) {
			plan.closeReviewStage = current
		}
		plan.toStage = constant.StageArchived

	default:
		return nil, fmt.Errorf("%w: 未知的工作流动作 %q", constant.ErrBadRequest, action)
	}

	return plan, nil
}

// ApplyAction 对文件执行一个工作流动作。
// actorID 为发起人，isAdmin 决定是否允许 ARCHIVE。
// 返回新阶段与本次追加的台账记录。
func (e *Engine) ApplyAction(ctx context.Context, tenantID, actorID uint, isAdmin bool, filePublicID string, req *model.TransitionRequest) (*model.TransitionResponse, error) {
	action := constant.WorkflowAction(strings.ToUpper(strings.TrimSpace(req.Action)))
	if !action.IsValid() {
		return nil, fmt.Errorf("%w: 未知的工作流动作 %q", constant.ErrBadRequest, req.Action)
	}
	if action == constant.ActionArchive && !isAdmin {
		return nil, fmt.Errorf("%w: 动作 ARCHIVE 仅限管理员执行", constant.ErrForbidden)
	}

	fileID, err := idgen.DecodePublicIDOfType(filePublicID, idgen.EntityTypeFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", constant.ErrInvalidPublicID, err)
	}

	if !e.locker.TryLock(ctx, fileID, e.lockTimeout) {
		return nil, fmt.Errorf("%w: 文件 %s 正在被其他流转操作占用", constant.ErrBusy, filePublicID)
	}
	defer e.locker.Unlock(fileID)

	file, err := e.fileRepo.FindByIDAndTenant(ctx, fileID, tenantID)
	if err != nil {
		return nil, err
	}
	if file.IsPending() {
		return nil, constant.ErrNotFound
	}

	stages, err := e.stageSvc.ActiveStages(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	actor := types.NewNullUint64(uint64(actorID))
	plan, err := planTransition(file, action, stages, actor)
	if err != nil {
		return nil, err
	}

	observedStage := file.CurrentStage
	file.CurrentStage = plan.toStage
	if plan.bumpRevision {
		file.RevisionCount++
	}
	file.AssigneeID = plan.assignee

	transition := &model.StageTransition{
		FileID:    file.ID,
		TenantID:  file.TenantID,
		FromStage: observedStage,
		ToStage:   plan.toStage,
		Action:    action,
		ActorID:   actor,
		Comment:   strings.TrimSpace(req.Comment),
	}

	err = e.txManager.Do(ctx, func(repos repository.Repositories) error {
		if err := repos.File.UpdateWithStageCheck(ctx, file, observedStage); err != nil {
			return err
		}
		if err := repos.Transition.Append(ctx, transition); err != nil {
			return err
		}
		if plan.closeReviewStage != "" {
			if err := repos.Review.CloseOpenForStage(ctx, file.ID, plan.closeReviewStage, action, actor); err != nil {
				return err
			}
		}
		if plan.openReviewStage != "" {
			review := &model.QCReview{
				FileID:   file.ID,
				TenantID: file.TenantID,
				Stage:    plan.openReviewStage,
				Status:   model.ReviewStatusPending,
			}
			if err := repos.Review.Create(ctx, review); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.bus.Publish(event.TransitionApplied, event.TransitionAppliedPayload{
		FileID:    file.ID,
		TenantID:  file.TenantID,
		FromStage: observedStage,
		ToStage:   plan.toStage,
		Action:    action.String(),
	})

	item, err := buildTransitionItem(transition)
	if err != nil {
		return nil, err
	}
	log.Printf("[工作流] 动作执行完成: tenant=%d file=%d %s: %s -> %s", tenantID, file.ID, action, observedStage, plan.toStage)
	return &model.TransitionResponse{
		NewStage:   plan.toStage,
		Transition: item,
	}, nil
}
