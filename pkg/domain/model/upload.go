/*
 * @Description: 上传与工作流 API 的请求/响应模型
 * @Author: 安知鱼
 * @Date: 2026-02-11 10:05:33
 * @LastEditTime: 2026-08-05 14:23:59
 * @LastEditors: 安知鱼
 */
package model

import "time"

// --- API 请求模型 ---

// UploadURLRequest 对应"申请上传授权"API的请求体。
type UploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
	Size        int64  `json:"size" binding:"required,min=1"`
	ProjectID   string `json:"projectId,omitempty"`
}

// UploadConfirmRequest 定义了客户端直传完成后，通知服务器确认时携带的数据。
// 以对象键定位占位记录，重复确认是幂等的。
type UploadConfirmRequest struct {
	Key          string `json:"key" binding:"required"`
	OriginalName string `json:"originalName,omitempty"`
	ContentType  string `json:"contentType,omitempty"`
	Size         int64  `json:"size,omitempty" binding:"omitempty,min=0"`
	ProjectID    string `json:"projectId,omitempty"`
}

// TransitionRequest 对应"执行工作流动作"API的请求体。
type TransitionRequest struct {
	Action  string `json:"action" binding:"required"`
	Comment string `json:"comment,omitempty"`
}

// ValidateCandidate 是批量预校验中单个候选文件的元数据。
type ValidateCandidate struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
	Size        int64  `json:"size" binding:"required,min=0"`
}

// ValidateBatchRequest 对应"批量预校验"API的请求体。
type ValidateBatchRequest struct {
	Files []ValidateCandidate `json:"files" binding:"required,dive"`
}

// ValidateReason 是校验结论中一条机器可读的原因。
type ValidateReason struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidateResultItem 是批量预校验中单个候选文件的校验结论。
type ValidateResultItem struct {
	Filename      string           `json:"filename"`
	SanitizedName string           `json:"sanitizedName"`
	Verdict       string           `json:"verdict"`
	Errors        []ValidateReason `json:"errors,omitempty"`
	Warnings      []ValidateReason `json:"warnings,omitempty"`
}

// ValidateBatchResponse 定义了批量预校验接口的成功响应体。
type ValidateBatchResponse struct {
	Results []*ValidateResultItem `json:"results"`
}

// FileListRequest 对应文件列表查询参数。
type FileListRequest struct {
	ProjectID string `form:"projectId"`
	Stage     string `form:"stage"`
	Status    string `form:"status"`
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"pageSize,default=20"`
}

// --- API 响应模型 ---

// FileResponse 是文件记录的统一对外表示，所有 ID 均为公共 ID。
type FileResponse struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"projectId,omitempty"`
	OriginalName  string    `json:"originalName"`
	ContentType   string    `json:"contentType"`
	Size          int64     `json:"size"`
	StorageKey    string    `json:"storageKey"`
	Status        string    `json:"status"`
	CurrentStage  string    `json:"currentStage,omitempty"`
	RevisionCount int       `json:"revisionCount"`
	Assignee      string    `json:"assignee,omitempty"`
	Metadata      JSONMap   `json:"metadata,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UploadURLResponse 定义了申请上传授权接口的成功响应体。
type UploadURLResponse struct {
	UploadURL  string        `json:"uploadUrl"`
	ExpiresAt  time.Time     `json:"expiresAt"`
	FileRecord *FileResponse `json:"fileRecord"`
}

// UploadConfirmResponse 定义了上传确认接口的成功响应体。
type UploadConfirmResponse struct {
	FileRecord *FileResponse `json:"fileRecord"`
}

// TransitionItem 是单条流转台账记录的对外表示。
type TransitionItem struct {
	ID        string    `json:"id"`
	FromStage string    `json:"fromStage,omitempty"`
	ToStage   string    `json:"toStage"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TransitionResponse 定义了执行工作流动作接口的成功响应体。
type TransitionResponse struct {
	NewStage   string          `json:"newStage"`
	Transition *TransitionItem `json:"transition"`
}

// HistoryResponse 定义了查询流转历史接口的成功响应体，按台账总顺序排列。
type HistoryResponse struct {
	FileID      string            `json:"fileId"`
	Transitions []*TransitionItem `json:"transitions"`
}

// DownloadURLResponse 定义了获取读取授权接口的成功响应体。
type DownloadURLResponse struct {
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// FileListResponse 定义了文件列表接口的成功响应体。
type FileListResponse struct {
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
	Items    []*FileResponse `json:"items"`
}

// StageResponse 是审核阶段的对外表示。
type StageResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	OrderIndex  int    `json:"orderIndex"`
	IsActive    bool   `json:"isActive"`
}

// CreateStageRequest 对应"新建审核阶段"API的请求体。
type CreateStageRequest struct {
	Name        string `json:"name" binding:"required"`
	DisplayName string `json:"displayName,omitempty"`
	OrderIndex  int    `json:"orderIndex" binding:"required,min=1"`
}

// UpdateStageRequest 对应"更新审核阶段"API的请求体。
// 指针字段区分"未提交"与"提交零值"。
type UpdateStageRequest struct {
	DisplayName *string `json:"displayName,omitempty"`
	OrderIndex  *int    `json:"orderIndex,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}
