/*
 * @Description: 文件查询服务：详情、列表、读取授权
 * @Author: 安知鱼
 * @Date: 2026-08-23 14:52:18
 * @LastEditTime: 2026-08-23 14:52:18
 * @LastEditors: 安知鱼
 */
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anzhiyu-c/anshen-app/internal/infra/storage"
	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"
	"github.com/anzhiyu-c/anshen-app/pkg/idgen"
)

// buildFileResponse 把领域文件实体换为对外表示，数据库 ID 全部换为公共 ID。
func (s *Service) buildFileResponse(file *model.File) (*model.FileResponse, error) {
	publicID, err := idgen.GeneratePublicID(file.ID, idgen.EntityTypeFile)
	if err != nil {
		return nil, fmt.Errorf("生成文件公共ID失败: %w", err)
	}

	resp := &model.FileResponse{
		ID:            publicID,
		OriginalName:  file.OriginalName,
		ContentType:   file.DeclaredMIME,
		Size:          file.Size,
		StorageKey:    file.StorageKey,
		Status:        file.Status.String(),
		CurrentStage:  file.CurrentStage,
		RevisionCount: file.RevisionCount,
		Metadata:      file.Metadata,
		CreatedAt:     file.CreatedAt,
		UpdatedAt:     file.UpdatedAt,
	}

	if file.ProjectID.Valid {
		projectPublicID, err := idgen.GeneratePublicID(uint(file.ProjectID.Uint64), idgen.EntityTypeProject)
		if err != nil {
			return nil, fmt.Errorf("生成项目公共ID失败: %w", err)
		}
		resp.ProjectID = projectPublicID
	}
	if file.AssigneeID.Valid {
		assigneePublicID, err := idgen.GeneratePublicID(uint(file.AssigneeID.Uint64), idgen.EntityTypeUser)
		if err != nil {
			return nil, fmt.Errorf("生成用户公共ID失败: %w", err)
		}
		resp.Assignee = assigneePublicID
	}
	return resp, nil
}

// findVisibleFile 按公共 ID 取回对调用方可见的文件。
// PENDING 占位记录对除确认以外的一切操作不可见，按不存在处理。
func (s *Service) findVisibleFile(ctx context.Context, tenantID uint, filePublicID string) (*model.File, error) {
	fileID, err := idgen.DecodePublicIDOfType(filePublicID, idgen.EntityTypeFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", constant.ErrInvalidPublicID, err)
	}
	file, err := s.fileRepo.FindByIDAndTenant(ctx, fileID, tenantID)
	if err != nil {
		return nil, err
	}
	if file.IsPending() {
		return nil, constant.ErrNotFound
	}
	return file, nil
}

// GetFile 按公共 ID 返回单个文件详情。
func (s *Service) GetFile(ctx context.Context, tenantID uint, filePublicID string) (*model.FileResponse, error) {
	file, err := s.findVisibleFile(ctx, tenantID, filePublicID)
	if err != nil {
		return nil, err
	}
	return s.buildFileResponse(file)
}

// parseStatusFilter 解析列表查询的状态过滤参数。
// 缺省只展示已确认的文件，占位记录需显式指定 status=pending 才可见。
func parseStatusFilter(raw string) (model.FileStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return model.FileStatusActive, nil
	case "pending":
		return model.FileStatusPending, nil
	case "active":
		return model.FileStatusActive, nil
	default:
		return 0, fmt.Errorf("%w: 未知的状态过滤值 %q", constant.ErrBadRequest, raw)
	}
}

// ListFiles 返回租户内的文件分页列表，可按项目、阶段、状态过滤。
func (s *Service) ListFiles(ctx context.Context, tenantID uint, req *model.FileListRequest) (*model.FileListResponse, error) {
	status, err := parseStatusFilter(req.Status)
	if err != nil {
		return nil, err
	}

	params := repository.FileListParams{
		TenantID: tenantID,
		Stage:    strings.TrimSpace(req.Stage),
		Status:   status,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.ProjectID != "" {
		projectID, err := idgen.DecodePublicIDOfType(req.ProjectID, idgen.EntityTypeProject)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", constant.ErrInvalidPublicID, err)
		}
		params.ProjectID = projectID
	}

	files, total, err := s.fileRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]*model.FileResponse, 0, len(files))
	for _, file := range files {
		item, err := s.buildFileResponse(file)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return &model.FileListResponse{
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
		Items:    items,
	}, nil
}

// GetDownloadURL 为已确认的文件签发限时读取授权。
func (s *Service) GetDownloadURL(ctx context.Context, tenantID uint, filePublicID string) (*model.DownloadURLResponse, error) {
	file, err := s.findVisibleFile(ctx, tenantID, filePublicID)
	if err != nil {
		return nil, err
	}

	grant, err := s.provider.IssueReadGrant(ctx, file.StorageKey, s.presignExpire)
	if err != nil {
		if errors.Is(err, storage.ErrFeatureNotSupported) {
			return nil, fmt.Errorf("%w: 当前存储驱动不支持签发读取授权", constant.ErrStorageUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", constant.ErrStorageUnavailable, err)
	}

	return &model.DownloadURLResponse{
		DownloadURL: grant.DownloadURL,
		ExpiresAt:   grant.ExpirationDateTime,
	}, nil
}
