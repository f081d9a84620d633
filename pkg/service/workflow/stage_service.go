/*
 * @Description: 审核阶段管理：列表、新建、更新，带建议性缓存
 * @Author: 安知鱼
 * @Date: 2026-08-23 16:02:44
 * @LastEditTime: 2026-08-23 16:02:44
 * @LastEditors: 安知鱼
 */
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"
	"github.com/anzhiyu-c/anshen-app/pkg/idgen"
	"github.com/anzhiyu-c/anshen-app/pkg/service/utility"
)

// 阶段列表缓存的有效期。缓存只是加速读路径，
// 所有写操作都会使其失效，正确性从不依赖缓存。
const stageCacheTTL = 10 * time.Minute

// StageService 管理租户的审核阶段配置。
type StageService struct {
	stageRepo repository.StageRepository
	fileRepo  repository.FileRepository
	cache     utility.CacheService
}

// NewStageService 是阶段管理服务的构造函数。
func NewStageService(stageRepo repository.StageRepository, fileRepo repository.FileRepository, cache utility.CacheService) *StageService {
	return &StageService{
		stageRepo: stageRepo,
		fileRepo:  fileRepo,
		cache:     cache,
	}
}

func stageCacheKey(tenantID uint) string {
	return fmt.Sprintf("anshen:stages:%d", tenantID)
}

// loadStages 返回租户的全部阶段（含停用），优先走缓存。
func (s *StageService) loadStages(ctx context.Context, tenantID uint) ([]*model.WorkflowStage, error) {
	key := stageCacheKey(tenantID)
	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		var stages []*model.WorkflowStage
		if err := json.Unmarshal([]byte(cached), &stages); err == nil {
			return stages, nil
		}
		// 缓存内容损坏时直接回源，不影响请求
		log.Printf("[工作流] ⚠️ 阶段缓存内容无法解析，已回源: tenant=%d", tenantID)
	}

	stages, err := s.stageRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(stages); err == nil {
		if err := s.cache.Set(ctx, key, string(payload), stageCacheTTL); err != nil {
			log.Printf("[工作流] ⚠️ 写入阶段缓存失败: %v", err)
		}
	}
	return stages, nil
}

// invalidateCache 在阶段配置变更后使缓存失效。
func (s *StageService) invalidateCache(ctx context.Context, tenantID uint) {
	if err := s.cache.Delete(ctx, stageCacheKey(tenantID)); err != nil {
		log.Printf("[工作流] ⚠️ 清除阶段缓存失败: %v", err)
	}
}

// ActiveStages 返回租户启用阶段的有序视图，供工作流引擎导航。
func (s *StageService) ActiveStages(ctx context.Context, tenantID uint) (*model.StageList, error) {
	stages, err := s.loadStages(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return model.NewStageList(stages), nil
}

// buildStageResponse 把阶段实体换为对外表示。
func buildStageResponse(stage *model.WorkflowStage) (*model.StageResponse, error) {
	publicID, err := idgen.GeneratePublicID(stage.ID, idgen.EntityTypeStage)
	if err != nil {
		return nil, fmt.Errorf("生成阶段公共ID失败: %w", err)
	}
	return &model.StageResponse{
		ID:          publicID,
		Name:        stage.Name,
		DisplayName: stage.DisplayName,
		OrderIndex:  stage.OrderIndex,
		IsActive:    stage.IsActive,
	}, nil
}

// ListStages 返回租户的全部阶段（含停用），按顺序排列。
func (s *StageService) ListStages(ctx context.Context, tenantID uint) ([]*model.StageResponse, error) {
	stages, err := s.loadStages(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]*model.StageResponse, 0, len(stages))
	for _, stage := range stages {
		resp, err := buildStageResponse(stage)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// CreateStage 新建审核阶段，名称与顺序在租户内唯一。
func (s *StageService) CreateStage(ctx context.Context, tenantID uint, req *model.CreateStageRequest) (*model.StageResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: 阶段名不能为空", constant.ErrBadRequest)
	}
	if constant.IsBuiltinStage(strings.ToUpper(name)) {
		return nil, fmt.Errorf("%w: 阶段名 %q 与内置阶段冲突", constant.ErrBadRequest, name)
	}
	if req.OrderIndex < 1 {
		return nil, fmt.Errorf("%w: 阶段顺序必须为正整数", constant.ErrBadRequest)
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = name
	}

	stage := &model.WorkflowStage{
		TenantID:    tenantID,
		Name:        name,
		DisplayName: displayName,
		OrderIndex:  req.OrderIndex,
		IsActive:    true,
	}
	if err := s.stageRepo.Create(ctx, stage); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, tenantID)

	log.Printf("[工作流] ✅ 新建审核阶段: tenant=%d name=%s order=%d", tenantID, stage.Name, stage.OrderIndex)
	return buildStageResponse(stage)
}

// UpdateStage 更新阶段的展示名、顺序或启用状态。
// 停用前检查占用：仍有文件停留在该阶段时返回 ErrStageOccupied。
func (s *StageService) UpdateStage(ctx context.Context, tenantID uint, stagePublicID string, req *model.UpdateStageRequest) (*model.StageResponse, error) {
	stageID, err := idgen.DecodePublicIDOfType(stagePublicID, idgen.EntityTypeStage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", constant.ErrInvalidPublicID, err)
	}
	stage, err := s.stageRepo.FindByIDAndTenant(ctx, stageID, tenantID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		displayName := strings.TrimSpace(*req.DisplayName)
		if displayName == "" {
			displayName = stage.Name
		}
		stage.DisplayName = displayName
	}
	if req.OrderIndex != nil {
		if *req.OrderIndex < 1 {
			return nil, fmt.Errorf("%w: 阶段顺序必须为正整数", constant.ErrBadRequest)
		}
		stage.OrderIndex = *req.OrderIndex
	}
	if req.IsActive != nil {
		if stage.IsActive && !*req.IsActive {
			occupied, err := s.fileRepo.CountActiveByStage(ctx, tenantID, stage.Name)
			if err != nil {
				return nil, err
			}
			if occupied > 0 {
				return nil, fmt.Errorf("%w: 仍有 %d 个文件处于阶段 %s", constant.ErrStageOccupied, occupied, stage.Name)
			}
		}
		stage.IsActive = *req.IsActive
	}

	if err := s.stageRepo.Update(ctx, stage); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, tenantID)

	log.Printf("[工作流] 更新审核阶段: tenant=%d name=%s order=%d active=%t", tenantID, stage.Name, stage.OrderIndex, stage.IsActive)
	return buildStageResponse(stage)
}
