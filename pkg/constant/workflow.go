/*
 * @Description: 审核工作流的动作与内置阶段定义
 * @Author: 安知鱼
 * @Date: 2026-02-09 11:40:52
 * @LastEditTime: 2026-06-30 09:21:17
 * @LastEditors: 安知鱼
 */
package constant

// WorkflowAction 定义了审核工作流中允许的动作，提供了更强的类型安全。
// 动作集合是封闭的，台账中只会出现这里列出的值。
type WorkflowAction string

const (
	// ActionAssign 领取：UPLOADED -> 第一个启用的审核阶段
	ActionAssign WorkflowAction = "ASSIGN"
	// ActionApprove 通过：进入下一个阶段，最后一个审核阶段通过后进入 COMPLETED
	ActionApprove WorkflowAction = "APPROVE"
	// ActionFail 打回：停留在当前阶段，修订次数加一，并开启新一轮质检
	ActionFail WorkflowAction = "FAIL"
	// ActionRevise 回退：退回上一个阶段，修订次数加一
	ActionRevise WorkflowAction = "REVISE"
	// ActionReopen 重开：从任意阶段回到第一个启用的审核阶段，修订次数不变
	ActionReopen WorkflowAction = "REOPEN"
	// ActionArchive 归档：管理员专属，从任意阶段进入终态 ARCHIVED
	ActionArchive WorkflowAction = "ARCHIVE"
)

// IsValid 检查给定的动作是否属于封闭动作集合
func (a WorkflowAction) IsValid() bool {
	switch a {
	case ActionAssign, ActionApprove, ActionFail, ActionRevise, ActionReopen, ActionArchive:
		return true
	default:
		return false
	}
}

func (a WorkflowAction) String() string {
	return string(a)
}

// 内置伪阶段。它们不作为 WorkflowStage 行存在，
// 而是与租户配置的审核阶段共同构成完整的阶段序列。
const (
	// StageUploaded 上传完成后的入口阶段
	StageUploaded = "UPLOADED"
	// StageCompleted 全部审核通过后的终态
	StageCompleted = "COMPLETED"
	// StageArchived 管理员归档后的终态，仅能通过 REOPEN 离开
	StageArchived = "ARCHIVED"
)

// DefaultLockTimeoutMS 流转锁的默认等待上限（毫秒），超时放弃并返回忙碌
const DefaultLockTimeoutMS = 3000

// IsTerminalStage 判断阶段是否为终态（APPROVE/FAIL/REVISE 不再适用）
func IsTerminalStage(stage string) bool {
	return stage == StageCompleted || stage == StageArchived
}

// IsBuiltinStage 判断阶段名是否为内置伪阶段，租户自定义阶段不得占用这些名字
func IsBuiltinStage(stage string) bool {
	return stage == StageUploaded || IsTerminalStage(stage)
}
