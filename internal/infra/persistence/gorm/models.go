/*
 * @Description: GORM 持久化对象定义与领域模型映射
 * @Author: 安知鱼
 * @Date: 2026-08-23 10:15:02
 * @LastEditTime: 2026-08-23 10:15:02
 * @LastEditors: 安知鱼
 */
package gorm

import (
	"errors"
	"time"

	"github.com/anzhiyu-c/anshen-app/internal/pkg/types"
	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"

	"gorm.io/gorm"
)

// File 文件表持久化对象。
// storage_key 全局唯一，current_stage 为空表示文件尚未进入审核流。
type File struct {
	ID            uint `gorm:"primaryKey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	TenantID      uint    `gorm:"not null;index:idx_files_tenant_stage,priority:1;index:idx_files_tenant_status,priority:1"`
	ProjectID     *uint64 `gorm:"index"`
	OriginalName  string  `gorm:"size:512;not null"`
	DeclaredMIME  string  `gorm:"column:declared_mime;size:255"`
	Size          int64   `gorm:"not null;default:0"`
	StorageKey    string  `gorm:"size:512;not null;uniqueIndex"`
	Status        int     `gorm:"not null;index:idx_files_tenant_status,priority:2"`
	CurrentStage  string  `gorm:"size:64;index:idx_files_tenant_stage,priority:2"`
	RevisionCount int     `gorm:"not null;default:0"`
	AssigneeID    *uint64
	Metadata      model.JSONMap `gorm:"type:text"`
}

// WorkflowStage 审核阶段表持久化对象。
// 同一租户内阶段名与排序序号都不允许重复。
type WorkflowStage struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	TenantID    uint   `gorm:"not null;uniqueIndex:idx_stages_tenant_name,priority:1;uniqueIndex:idx_stages_tenant_order,priority:1"`
	Name        string `gorm:"size:64;not null;uniqueIndex:idx_stages_tenant_name,priority:2"`
	DisplayName string `gorm:"size:128"`
	OrderIndex  int    `gorm:"not null;uniqueIndex:idx_stages_tenant_order,priority:2"`
	IsActive    bool   `gorm:"not null;default:true"`
}

// StageTransition 阶段流转台账，只追加不修改，因此没有 UpdatedAt。
type StageTransition struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index:idx_transitions_file,priority:2"`
	FileID    uint      `gorm:"not null;index:idx_transitions_file,priority:1"`
	TenantID  uint      `gorm:"not null;index"`
	FromStage string    `gorm:"size:64"`
	ToStage   string    `gorm:"size:64;not null"`
	Action    string    `gorm:"size:16;not null"`
	ActorID   *uint64
	Comment   string `gorm:"size:1024"`
}

// QCReview 质检复核单持久化对象。
type QCReview struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	FileID     uint   `gorm:"not null;index:idx_reviews_file_stage,priority:1"`
	TenantID   uint   `gorm:"not null;index"`
	Stage      string `gorm:"size:64;not null;index:idx_reviews_file_stage,priority:2"`
	Action     string `gorm:"size:16"`
	ReviewerID *uint64
	Status     int `gorm:"not null;index:idx_reviews_file_stage,priority:3"`
}

// Tenant 租户表持久化对象。
type Tenant struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Name      string `gorm:"size:128;not null;uniqueIndex"`
}

// Project 项目表持久化对象。
type Project struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	TenantID  uint   `gorm:"not null;uniqueIndex:idx_projects_tenant_name,priority:1"`
	Name      string `gorm:"size:128;not null;uniqueIndex:idx_projects_tenant_name,priority:2"`
}

// Setting 站点配置表持久化对象，目前只承载 ID 混淆种子等少量键值。
type Setting struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	ConfigKey string `gorm:"size:128;not null;uniqueIndex"`
	Value     string `gorm:"type:text"`
}

// translateError 把 GORM 层错误归一化为领域错误，其余错误原样返回。
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return constant.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return constant.ErrConflict
	}
	return err
}

func ptrToNull(p *uint64) types.NullUint64 {
	if p == nil {
		return types.NullUint64{}
	}
	return types.NewNullUint64(*p)
}

func nullToPtr(n types.NullUint64) *uint64 {
	if !n.Valid {
		return nil
	}
	v := n.Uint64
	return &v
}

func toDomainFile(po *File) *model.File {
	if po == nil {
		return nil
	}
	return &model.File{
		ID:            po.ID,
		CreatedAt:     po.CreatedAt,
		UpdatedAt:     po.UpdatedAt,
		TenantID:      po.TenantID,
		ProjectID:     ptrToNull(po.ProjectID),
		OriginalName:  po.OriginalName,
		DeclaredMIME:  po.DeclaredMIME,
		Size:          po.Size,
		StorageKey:    po.StorageKey,
		Status:        model.FileStatus(po.Status),
		CurrentStage:  po.CurrentStage,
		RevisionCount: po.RevisionCount,
		AssigneeID:    ptrToNull(po.AssigneeID),
		Metadata:      po.Metadata.Clone(),
	}
}

func fromDomainFile(f *model.File) *File {
	return &File{
		ID:            f.ID,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
		TenantID:      f.TenantID,
		ProjectID:     nullToPtr(f.ProjectID),
		OriginalName:  f.OriginalName,
		DeclaredMIME:  f.DeclaredMIME,
		Size:          f.Size,
		StorageKey:    f.StorageKey,
		Status:        int(f.Status),
		CurrentStage:  f.CurrentStage,
		RevisionCount: f.RevisionCount,
		AssigneeID:    nullToPtr(f.AssigneeID),
		Metadata:      f.Metadata.Clone(),
	}
}

func toDomainStage(po *WorkflowStage) *model.WorkflowStage {
	if po == nil {
		return nil
	}
	return &model.WorkflowStage{
		ID:          po.ID,
		CreatedAt:   po.CreatedAt,
		UpdatedAt:   po.UpdatedAt,
		TenantID:    po.TenantID,
		Name:        po.Name,
		DisplayName: po.DisplayName,
		OrderIndex:  po.OrderIndex,
		IsActive:    po.IsActive,
	}
}

func fromDomainStage(s *model.WorkflowStage) *WorkflowStage {
	return &WorkflowStage{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		TenantID:    s.TenantID,
		Name:        s.Name,
		DisplayName: s.DisplayName,
		OrderIndex:  s.OrderIndex,
		IsActive:    s.IsActive,
	}
}

func toDomainTransition(po *StageTransition) *model.StageTransition {
	if po == nil {
		return nil
	}
	return &model.StageTransition{
		ID:        po.ID,
		CreatedAt: po.CreatedAt,
		FileID:    po.FileID,
		TenantID:  po.TenantID,
		FromStage: po.FromStage,
		ToStage:   po.ToStage,
		Action:    constant.WorkflowAction(po.Action),
		ActorID:   ptrToNull(po.ActorID),
		Comment:   po.Comment,
	}
}

func fromDomainTransition(t *model.StageTransition) *StageTransition {
	return &StageTransition{
		ID:        t.ID,
		CreatedAt: t.CreatedAt,
		FileID:    t.FileID,
		TenantID:  t.TenantID,
		FromStage: t.FromStage,
		ToStage:   t.ToStage,
		Action:    string(t.Action),
		ActorID:   nullToPtr(t.ActorID),
		Comment:   t.Comment,
	}
}

func toDomainReview(po *QCReview) *model.QCReview {
	if po == nil {
		return nil
	}
	return &model.QCReview{
		ID:         po.ID,
		CreatedAt:  po.CreatedAt,
		UpdatedAt:  po.UpdatedAt,
		FileID:     po.FileID,
		TenantID:   po.TenantID,
		Stage:      po.Stage,
		Action:     constant.WorkflowAction(po.Action),
		ReviewerID: ptrToNull(po.ReviewerID),
		Status:     model.ReviewStatus(po.Status),
	}
}

func fromDomainReview(r *model.QCReview) *QCReview {
	return &QCReview{
		ID:         r.ID,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		FileID:     r.FileID,
		TenantID:   r.TenantID,
		Stage:      r.Stage,
		Action:     string(r.Action),
		ReviewerID: nullToPtr(r.ReviewerID),
		Status:     int(r.Status),
	}
}

func toDomainTenant(po *Tenant) *model.Tenant {
	if po == nil {
		return nil
	}
	return &model.Tenant{ID: po.ID, CreatedAt: po.CreatedAt, UpdatedAt: po.UpdatedAt, Name: po.Name}
}

func toDomainProject(po *Project) *model.Project {
	if po == nil {
		return nil
	}
	return &model.Project{ID: po.ID, CreatedAt: po.CreatedAt, UpdatedAt: po.UpdatedAt, TenantID: po.TenantID, Name: po.Name}
}

func toDomainSetting(po *Setting) *model.Setting {
	if po == nil {
		return nil
	}
	return &model.Setting{ID: po.ID, CreatedAt: po.CreatedAt, UpdatedAt: po.UpdatedAt, ConfigKey: po.ConfigKey, Value: po.Value}
}
