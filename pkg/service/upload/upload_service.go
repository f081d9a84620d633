/*
 * @Description: 上传代理服务：签发上传授权、确认上传、服务端代传
 * @Author: 安知鱼
 * @Date: 2026-08-23 14:20:33
 * @LastEditTime: 2026-08-23 14:20:33
 * @LastEditors: 安知鱼
 */
package upload

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	// 注册图片解码器，供尺寸探测使用
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/anzhiyu-c/anshen-app/internal/infra/storage"
	"github.com/anzhiyu-c/anshen-app/internal/pkg/event"
	"github.com/anzhiyu-c/anshen-app/internal/pkg/types"
	"github.com/anzhiyu-c/anshen-app/pkg/config"
	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/repository"
	"github.com/anzhiyu-c/anshen-app/pkg/idgen"
	"github.com/anzhiyu-c/anshen-app/pkg/service/validator"

	"github.com/google/uuid"
)

// Service 是上传代理服务。
// 它负责上传链路的全部业务规则：校验、对象键派生、占位记录、
// 授权签发、确认提升。文件一旦确认，后续状态变化归工作流引擎管。
type Service struct {
	txManager     repository.TransactionManager
	fileRepo      repository.FileRepository
	projectRepo   repository.ProjectRepository
	provider      storage.IStorageProvider
	validator     *validator.Service
	bus           *event.EventBus
	presignExpire time.Duration
}

// NewService 是上传代理服务的构造函数。
func NewService(
	txManager repository.TransactionManager,
	fileRepo repository.FileRepository,
	projectRepo repository.ProjectRepository,
	provider storage.IStorageProvider,
	validatorSvc *validator.Service,
	bus *event.EventBus,
	cfg *config.Config,
) *Service {
	expireMinutes := cfg.GetIntOrDefault(config.KeyStoragePresignExpire, constant.DefaultPresignExpireMinutes)
	return &Service{
		txManager:     txManager,
		fileRepo:      fileRepo,
		projectRepo:   projectRepo,
		provider:      provider,
		validator:     validatorSvc,
		bus:           bus,
		presignExpire: time.Duration(expireMinutes) * time.Minute,
	}
}

// resolveProject 解析并校验项目公共 ID。
// 空字符串表示未归属项目；跨租户的项目与不存在的项目不可区分。
func (s *Service) resolveProject(ctx context.Context, tenantID uint, projectPublicID string) (types.NullUint64, error) {
	if projectPublicID == "" {
		return types.NullUint64{}, nil
	}
	projectID, err := idgen.DecodePublicIDOfType(projectPublicID, idgen.EntityTypeProject)
	if err != nil {
		return types.NullUint64{}, fmt.Errorf("%w: %v", constant.ErrInvalidPublicID, err)
	}
	if _, err := s.projectRepo.FindByIDAndTenant(ctx, projectID, tenantID); err != nil {
		return types.NullUint64{}, err
	}
	return types.NewNullUint64(uint64(projectID)), nil
}

// buildStorageKey 派生对象存储键。
// 键从不直接采用客户端路径：uuid 段保证唯一，文件名段已经过清洗。
func buildStorageKey(tenantID uint, projectID types.NullUint64, sanitizedName string) string {
	segment := constant.StorageKeySharedSegment
	if projectID.Valid {
		segment = strconv.FormatUint(projectID.Uint64, 10)
	}
	return fmt.Sprintf("%s/%d/%s/%s/%s", constant.StorageKeyPrefix, tenantID, segment, uuid.NewString(), sanitizedName)
}

// reasonsText 把校验错误拼为人读消息。
func reasonsText(reasons []model.ValidateReason) string {
	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		parts = append(parts, r.Message)
	}
	return strings.Join(parts, "；")
}

// RequestUpload 处理"申请上传授权"：
// 校验元数据 → 派生对象键 → 落 PENDING 占位记录 → 签发预签名上传授权。
func (s *Service) RequestUpload(ctx context.Context, tenantID uint, req *model.UploadURLRequest) (*model.UploadURLResponse, error) {
	projectID, err := s.resolveProject(ctx, tenantID, req.ProjectID)
	if err != nil {
		return nil, err
	}

	checked := s.validator.CheckMeta(req.Filename, req.ContentType, req.Size)
	if !checked.OK() {
		return nil, fmt.Errorf("%w: %s", constant.ErrInvalidUpload, reasonsText(checked.Errors))
	}

	file := &model.File{
		TenantID:     tenantID,
		ProjectID:    projectID,
		OriginalName: checked.SanitizedName,
		DeclaredMIME: strings.ToLower(strings.TrimSpace(req.ContentType)),
		Size:         req.Size,
		StorageKey:   buildStorageKey(tenantID, projectID, checked.SanitizedName),
		Status:       model.FileStatusPending,
	}
	if err := s.fileRepo.Create(ctx, file); err != nil {
		return nil, err
	}

	grant, err := s.provider.IssueWriteGrant(ctx, file.StorageKey, file.DeclaredMIME, s.presignExpire)
	if err != nil {
		// 授权签发失败时回收占位记录，避免留下无法完成的 PENDING
		if derr := s.fileRepo.Delete(ctx, file.ID); derr != nil {
			log.Printf("[上传代理] 警告: 回收占位记录 %d 失败: %v", file.ID, derr)
		}
		if errors.Is(err, storage.ErrFeatureNotSupported) {
			return nil, fmt.Errorf("%w: 当前存储驱动不支持预签名直传，请使用服务端代传接口", constant.ErrStorageUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", constant.ErrStorageUnavailable, err)
	}

	record, err := s.buildFileResponse(file)
	if err != nil {
		return nil, err
	}

	log.Printf("[上传代理] 已签发上传授权: tenant=%d key=%s expires=%s", tenantID, file.StorageKey, grant.ExpirationDateTime.Format(time.RFC3339))
	return &model.UploadURLResponse{
		UploadURL:  grant.UploadURL,
		ExpiresAt:  grant.ExpirationDateTime,
		FileRecord: record,
	}, nil
}

// promoteUploaded 把 PENDING 占位记录提升为 ACTIVE/UPLOADED。
// 文件行更新与首条台账记录在同一事务内完成；
// 条件更新以"阶段仍为空"为前提，并发确认只有一个能成功。
func (s *Service) promoteUploaded(ctx context.Context, file *model.File, size int64, contentType string, actorID types.NullUint64) error {
	file.Status = model.FileStatusActive
	file.CurrentStage = constant.StageUploaded
	file.Size = size
	if contentType != "" {
		file.DeclaredMIME = contentType
	}

	return s.txManager.Do(ctx, func(repos repository.Repositories) error {
		if err := repos.File.UpdateWithStageCheck(ctx, file, ""); err != nil {
			return err
		}
		transition := &model.StageTransition{
			FileID:   file.ID,
			TenantID: file.TenantID,
			ToStage:  constant.StageUploaded,
			Action:   constant.ActionAssign,
			ActorID:  actorID,
		}
		return repos.Transition.Append(ctx, transition)
	})
}

// ConfirmUpload 处理"确认上传"：
// 核对存储中的对象 → 以头信息矫正大小与媒体类型 → 原子提升并追加台账。
// 重复确认是幂等的：已激活的记录原样返回，不追加台账。
func (s *Service) ConfirmUpload(ctx context.Context, tenantID uint, actorID types.NullUint64, req *model.UploadConfirmRequest) (*model.UploadConfirmResponse, error) {
	file, err := s.fileRepo.FindByStorageKey(ctx, tenantID, req.Key)
	if err != nil {
		return nil, err
	}

	if file.Status == model.FileStatusActive {
		log.Printf("[上传代理] 幂等确认: key=%s 已激活，直接返回", req.Key)
		record, berr := s.buildFileResponse(file)
		if berr != nil {
			return nil, berr
		}
		return &model.UploadConfirmResponse{FileRecord: record}, nil
	}

	stat, err := s.provider.StatObject(ctx, file.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", constant.ErrStorageUnavailable, err)
	}
	if !stat.Exists {
		return nil, fmt.Errorf("%w: 对象 %s 尚未写入存储", constant.ErrUploadIncomplete, file.StorageKey)
	}
	if stat.Size <= 0 || stat.Size > s.validator.MaxSizeBytes() {
		return nil, fmt.Errorf("%w: 存储中对象大小 %d 字节不在允许范围内", constant.ErrInvalidUpload, stat.Size)
	}

	// 以存储侧头信息为准矫正媒体类型，宽泛类型不覆盖申请时的声明
	contentType := strings.ToLower(strings.TrimSpace(stat.ContentType))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = file.DeclaredMIME
	}

	if err := s.promoteUploaded(ctx, file, stat.Size, contentType, actorID); err != nil {
		if errors.Is(err, constant.ErrBusy) {
			// 并发确认竞争失败：重读记录，若对方已完成提升则按幂等处理
			current, rerr := s.fileRepo.FindByIDAndTenant(ctx, file.ID, tenantID)
			if rerr == nil && current.Status == model.FileStatusActive {
				record, berr := s.buildFileResponse(current)
				if berr != nil {
					return nil, berr
				}
				return &model.UploadConfirmResponse{FileRecord: record}, nil
			}
		}
		return nil, err
	}

	s.bus.Publish(event.FileConfirmed, event.FileConfirmedPayload{
		FileID:     file.ID,
		TenantID:   file.TenantID,
		StorageKey: file.StorageKey,
	})

	record, err := s.buildFileResponse(file)
	if err != nil {
		return nil, err
	}
	log.Printf("[上传代理] ✅ 上传确认完成: tenant=%d file=%d key=%s size=%d", tenantID, file.ID, file.StorageKey, file.Size)
	return &model.UploadConfirmResponse{FileRecord: record}, nil
}

// probeImageMetadata 探测图片尺寸，非图片或解码失败时返回 nil。
func probeImageMetadata(src io.ReadSeeker) model.JSONMap {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil
	}
	cfg, _, err := image.DecodeConfig(src)
	if _, serr := src.Seek(0, io.SeekStart); serr != nil {
		return nil
	}
	if err != nil {
		return nil
	}
	return model.JSONMap{
		"width":  strconv.Itoa(cfg.Width),
		"height": strconv.Itoa(cfg.Height),
	}
}

// DirectUpload 处理服务端代传：字节经过服务器，执行包括内容特征在内的全部校验，
// 代传成功后直接走与确认上传相同的提升链路。
func (s *Service) DirectUpload(ctx context.Context, tenantID uint, actorID types.NullUint64, projectPublicID string, fileHeader *multipart.FileHeader) (*model.UploadConfirmResponse, error) {
	projectID, err := s.resolveProject(ctx, tenantID, projectPublicID)
	if err != nil {
		return nil, err
	}

	declared := fileHeader.Header.Get("Content-Type")
	checked := s.validator.CheckMeta(fileHeader.Filename, declared, fileHeader.Size)

	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: 无法读取上传内容: %v", constant.ErrBadRequest, err)
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("%w: 读取内容首部失败: %v", constant.ErrBadRequest, err)
	}
	s.validator.CheckContent(checked, declared, head[:n])
	if !checked.OK() {
		return nil, fmt.Errorf("%w: %s", constant.ErrInvalidUpload, reasonsText(checked.Errors))
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(head[:n])
	}

	file := &model.File{
		TenantID:     tenantID,
		ProjectID:    projectID,
		OriginalName: checked.SanitizedName,
		DeclaredMIME: contentType,
		Size:         fileHeader.Size,
		StorageKey:   buildStorageKey(tenantID, projectID, checked.SanitizedName),
		Status:       model.FileStatusPending,
		Metadata:     probeImageMetadata(src),
	}
	if err := s.fileRepo.Create(ctx, file); err != nil {
		return nil, err
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: 无法重置上传内容: %v", constant.ErrBadRequest, err)
	}
	if err := s.provider.PutObject(ctx, file.StorageKey, src, fileHeader.Size, contentType); err != nil {
		if derr := s.fileRepo.Delete(ctx, file.ID); derr != nil {
			log.Printf("[上传代理] 警告: 回收占位记录 %d 失败: %v", file.ID, derr)
		}
		return nil, fmt.Errorf("%w: %v", constant.ErrStorageUnavailable, err)
	}

	if err := s.promoteUploaded(ctx, file, fileHeader.Size, contentType, actorID); err != nil {
		return nil, err
	}

	s.bus.Publish(event.FileConfirmed, event.FileConfirmedPayload{
		FileID:     file.ID,
		TenantID:   file.TenantID,
		StorageKey: file.StorageKey,
	})

	record, err := s.buildFileResponse(file)
	if err != nil {
		return nil, err
	}
	log.Printf("[上传代理] ✅ 服务端代传完成: tenant=%d file=%d key=%s size=%d", tenantID, file.ID, file.StorageKey, file.Size)
	return &model.UploadConfirmResponse{FileRecord: record}, nil
}
