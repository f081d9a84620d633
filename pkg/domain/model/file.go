package model

import (
	"fmt"
	"time"

	"github.com/anzhiyu-c/anshen-app/internal/pkg/types"
)

// FileStatus 定义文件记录的生命周期状态。
type FileStatus int

const (
	// FileStatusPending 占位记录：已签发上传授权，对象尚未确认写入。
	// 此状态的文件对审核工作流不可见。
	FileStatusPending FileStatus = 1
	// FileStatusActive 已确认入库，进入工作流
	FileStatusActive FileStatus = 2
)

// String 方法用于返回 FileStatus 的字符串表示。
func (s FileStatus) String() string {
	switch s {
	case FileStatusPending:
		return "pending"
	case FileStatusActive:
		return "active"
	default:
		return fmt.Sprintf("unknown_status_%d", int(s))
	}
}

// File 是核心文件的领域模型。
// 它代表一份待审内容在业务逻辑中的概念，独立于其持久化实现。
type File struct {
	ID        uint      // 数据库主键 ID，仅以公共 ID 形式对外暴露
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间

	TenantID  uint             // 所属租户ID，所有读写都在租户内
	ProjectID types.NullUint64 // 所属项目ID，未归属项目时为NULL

	OriginalName string // 清洗后的原始文件名
	DeclaredMIME string // 客户端声明的媒体类型
	Size         int64  // 文件大小 (字节)，确认时以对象元数据为准

	// StorageKey 是对象存储中的键，唯一且创建后不可变。
	// 由租户/项目/随机段/清洗文件名推导，绝不使用客户端原始路径。
	StorageKey string

	Status FileStatus // pending / active

	// CurrentStage 当前所处阶段。PENDING 期间为空，
	// 确认后始终等于台账最后一条记录的 ToStage。
	CurrentStage string

	// RevisionCount 修订次数，只增不减
	RevisionCount int

	// AssigneeID 当前负责的审核员ID，可为空
	AssigneeID types.NullUint64

	// Metadata 附加元数据（如直传图片探测出的宽高），JSON 存储
	Metadata JSONMap
}

// IsPending 判断文件是否仍处于待确认占位状态
func (f *File) IsPending() bool {
	return f.Status == FileStatusPending
}
