/*
 * @Description: 审核工作流的领域模型：阶段、流转台账与质检记录
 * @Author: 安知鱼
 * @Date: 2026-02-11 09:30:12
 * @LastEditTime: 2026-08-03 11:52:47
 * @LastEditors: 安知鱼
 */
package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/anzhiyu-c/anshen-app/internal/pkg/types"
	"github.com/anzhiyu-c/anshen-app/pkg/constant"
)

// WorkflowStage 是租户自定义审核阶段的领域模型。
// 内置伪阶段 UPLOADED/COMPLETED/ARCHIVED 不以行的形式存在。
type WorkflowStage struct {
	ID        uint
	CreatedAt time.Time
	UpdatedAt time.Time

	TenantID    uint   // 所属租户
	Name        string // 台账中使用的阶段名，租户内唯一，如 "QC"
	DisplayName string // 展示名，如 "质检"
	OrderIndex  int    // 阶段顺序，租户内唯一
	IsActive    bool   // 停用的阶段不参与排序导航
}

// StageList 是某租户全部启用阶段的有序只读视图，
// 工作流引擎依据它计算 下一个/上一个/第一个 阶段。
type StageList struct {
	stages []*WorkflowStage
}

// NewStageList 过滤出启用阶段并按 OrderIndex 升序构建有序视图
func NewStageList(stages []*WorkflowStage) *StageList {
	active := make([]*WorkflowStage, 0, len(stages))
	for _, s := range stages {
		if s.IsActive {
			active = append(active, s)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].OrderIndex < active[j].OrderIndex
	})
	return &StageList{stages: active}
}

// Len 返回启用阶段的数量
func (l *StageList) Len() int {
	return len(l.stages)
}

// First 返回第一个启用阶段
func (l *StageList) First() (*WorkflowStage, bool) {
	if len(l.stages) == 0 {
		return nil, false
	}
	return l.stages[0], true
}

// indexOf 返回阶段名在启用序列中的下标，不存在时为 -1
func (l *StageList) indexOf(name string) int {
	for i, s := range l.stages {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// Contains 判断阶段名是否属于启用的审核阶段
func (l *StageList) Contains(name string) bool {
	return l.indexOf(name) >= 0
}

// NextAfter 返回给定阶段的下一个阶段名。
// ok 为 false 表示给定阶段已是最后一个审核阶段（调用方应视为进入 COMPLETED）。
// 给定阶段不在启用序列中时返回错误。
func (l *StageList) NextAfter(name string) (next string, ok bool, err error) {
	idx := l.indexOf(name)
	if idx < 0 {
		return "", false, fmt.Errorf("阶段 %q 不在启用的审核阶段序列中", name)
	}
	if idx+1 >= len(l.stages) {
		return "", false, nil
	}
	return l.stages[idx+1].Name, true, nil
}

// PrevBefore 返回给定阶段的上一个阶段名。
// ok 为 false 表示给定阶段是第一个审核阶段（调用方应视为退回 UPLOADED）。
func (l *StageList) PrevBefore(name string) (prev string, ok bool, err error) {
	idx := l.indexOf(name)
	if idx < 0 {
		return "", false, fmt.Errorf("阶段 %q 不在启用的审核阶段序列中", name)
	}
	if idx == 0 {
		return "", false, nil
	}
	return l.stages[idx-1].Name, true, nil
}

// Names 返回启用阶段名的有序副本
func (l *StageList) Names() []string {
	names := make([]string, len(l.stages))
	for i, s := range l.stages {
		names[i] = s.Name
	}
	return names
}

// StageTransition 是流转台账中的一条不可变记录。
// 台账只追加、不更新、不删除，总顺序由 (CreatedAt, ID) 决定。
type StageTransition struct {
	ID        uint
	CreatedAt time.Time

	FileID   uint
	TenantID uint

	// FromStage 仅入库记录（确认上传产生的 ∅ -> UPLOADED）为空
	FromStage string
	ToStage   string

	Action constant.WorkflowAction

	// ActorID 触发动作的用户ID，系统动作（入库）为空
	ActorID types.NullUint64

	Comment string
}

// ReviewStatus 定义质检记录的状态。
type ReviewStatus int

const (
	// ReviewStatusPending 待裁决
	ReviewStatusPending ReviewStatus = 1
	// ReviewStatusCompleted 已裁决
	ReviewStatusCompleted ReviewStatus = 2
)

// String 方法用于返回 ReviewStatus 的字符串表示。
func (s ReviewStatus) String() string {
	switch s {
	case ReviewStatusPending:
		return "pending"
	case ReviewStatusCompleted:
		return "completed"
	default:
		return fmt.Sprintf("unknown_status_%d", int(s))
	}
}

// QCReview 是一次质检裁决的领域模型。
// 同一 (文件, 阶段) 最多只有一条 PENDING 记录。
type QCReview struct {
	ID        uint
	CreatedAt time.Time
	UpdatedAt time.Time

	FileID   uint
	TenantID uint
	Stage    string

	// Action 裁决动作，待裁决期间为空
	Action constant.WorkflowAction

	// ReviewerID 裁决人，待裁决期间为空
	ReviewerID types.NullUint64

	Status ReviewStatus
}
