/*
 * @Description: 上传内容校验服务：大小、扩展名、媒体类型、文件名清洗与批量预校验
 * @Author: 安知鱼
 * @Date: 2026-08-23 13:40:19
 * @LastEditTime: 2026-08-23 13:40:19
 * @LastEditors: 安知鱼
 */
package validator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/anzhiyu-c/anshen-app/pkg/config"
	"github.com/anzhiyu-c/anshen-app/pkg/constant"
	"github.com/anzhiyu-c/anshen-app/pkg/domain/model"
)

// 校验结论的三种判定值。
const (
	VerdictAccept             = "ACCEPT"
	VerdictAcceptWithWarnings = "ACCEPT_WITH_WARNINGS"
	VerdictReject             = "REJECT"
)

// 机器可读的原因码。Errors 中的原因码导致 REJECT，Warnings 中的不影响接受。
const (
	ReasonSizeInvalid         = "SIZE_INVALID"
	ReasonSizeExceeded        = "SIZE_EXCEEDED"
	ReasonExtensionNotAllowed = "EXTENSION_NOT_ALLOWED"
	ReasonMIMENotAllowed      = "MIME_NOT_ALLOWED"
	ReasonExecutableContent   = "EXECUTABLE_CONTENT"
	ReasonContentMismatch     = "CONTENT_TYPE_MISMATCH"
	ReasonFilenameSanitized   = "FILENAME_SANITIZED"
	ReasonGenericMIME         = "MIME_GENERIC"
)

// Result 是一次校验的完整结论。
type Result struct {
	OriginalName  string
	SanitizedName string
	Verdict       string
	Errors        []model.ValidateReason
	Warnings      []model.ValidateReason
}

func (r *Result) reject(code, message string) {
	r.Errors = append(r.Errors, model.ValidateReason{Code: code, Message: message})
}

func (r *Result) warn(code, message string) {
	r.Warnings = append(r.Warnings, model.ValidateReason{Code: code, Message: message})
}

// finalize 根据已累积的错误与警告计算判定值。
func (r *Result) finalize() {
	switch {
	case len(r.Errors) > 0:
		r.Verdict = VerdictReject
	case len(r.Warnings) > 0:
		r.Verdict = VerdictAcceptWithWarnings
	default:
		r.Verdict = VerdictAccept
	}
}

// OK 表示候选文件可以被接受（含带警告接受）。
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// Service 承载校验规则。规则来自配置文件，进程生命周期内不变。
type Service struct {
	maxSizeBytes  int64
	allowedExts   map[string]struct{}
	allowedMIMEs  []string
	maxBatchFiles int
}

// NewService 是校验服务的构造函数，从配置中读取规则。
func NewService(cfg *config.Config) *Service {
	return NewServiceWithRules(
		cfg.GetIntOrDefault(config.KeyUploadMaxSizeMB, constant.DefaultMaxUploadSizeMB),
		cfg.GetStringOrDefault(config.KeyUploadAllowedExts, constant.DefaultAllowedExtensions),
		cfg.GetStringOrDefault(config.KeyUploadAllowedMIMEs, constant.DefaultAllowedMIMEPrefixes),
		cfg.GetIntOrDefault(config.KeyUploadMaxBatchFiles, constant.DefaultMaxBatchFiles),
	)
}

// NewServiceWithRules 用显式规则构建校验服务，规则用逗号分隔的列表表示。
// 扩展名与媒体类型列表为空表示不做白名单限制。
func NewServiceWithRules(maxSizeMB int, allowedExts, allowedMIMEs string, maxBatchFiles int) *Service {
	s := &Service{
		maxSizeBytes:  int64(maxSizeMB) * 1024 * 1024,
		allowedExts:   make(map[string]struct{}),
		maxBatchFiles: maxBatchFiles,
	}
	for _, ext := range strings.Split(allowedExts, ",") {
		ext = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(ext, ".")))
		if ext != "" {
			s.allowedExts[ext] = struct{}{}
		}
	}
	for _, prefix := range strings.Split(allowedMIMEs, ",") {
		prefix = strings.ToLower(strings.TrimSpace(prefix))
		if prefix != "" {
			s.allowedMIMEs = append(s.allowedMIMEs, prefix)
		}
	}
	return s
}

// MaxSizeBytes 返回单个文件的大小上限（字节）。
func (s *Service) MaxSizeBytes() int64 {
	return s.maxSizeBytes
}

// SanitizeFilename 把客户端提交的文件名清洗为可以安全进入存储键的形式：
// 丢弃路径部分，去掉控制字符和保留字符，限制长度。
// 第二个返回值表示清洗是否改变了原始输入。
func SanitizeFilename(name string) (string, bool) {
	original := name

	// 同时处理两种路径分隔符，只保留最后一段
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}

	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			continue
		}
		switch r {
		case '<', '>', ':', '"', '|', '?', '*':
			continue
		}
		b.WriteRune(r)
	}
	name = b.String()

	// 去掉首尾的点和空白，拦截 "." 与 ".." 这类纯目录名
	name = strings.Trim(name, ". \t")

	if name == "" {
		return "unnamed", true
	}

	// 过长的文件名截断主干、保留扩展名
	const maxLen = 200
	if runes := []rune(name); len(runes) > maxLen {
		ext := filepath.Ext(name)
		stemLen := maxLen - len([]rune(ext))
		if stemLen < 1 {
			stemLen = 1
		}
		stem := []rune(strings.TrimSuffix(name, ext))
		if len(stem) > stemLen {
			stem = stem[:stemLen]
		}
		name = string(stem) + ext
	}

	return name, name != original
}

// normalizeMIME 去掉参数部分并统一小写，如 "Image/PNG; charset=x" -> "image/png"。
func normalizeMIME(declared string) string {
	mimeType := strings.TrimSpace(strings.SplitN(declared, ";", 2)[0])
	return strings.ToLower(mimeType)
}

// extensionAllowed 检查扩展名是否命中允许列表。列表为空表示不限制。
func (s *Service) extensionAllowed(ext string) bool {
	if len(s.allowedExts) == 0 {
		return true
	}
	_, ok := s.allowedExts[ext]
	return ok
}

// mimeAllowed 检查声明的媒体类型是否命中允许列表。列表为空表示不限制，
// 以 "/" 结尾的表项按前缀匹配，其余按完整类型精确匹配。
func (s *Service) mimeAllowed(mimeType string) bool {
	if len(s.allowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range s.allowedMIMEs {
		if strings.HasSuffix(allowed, "/") {
			if strings.HasPrefix(mimeType, allowed) {
				return true
			}
		} else if mimeType == allowed {
			return true
		}
	}
	return false
}

// extensionFamilies 把常见扩展名映射到媒体类型大类，用于元数据阶段的一致性检查。
// 不在表内的扩展名不做推断。
var extensionFamilies = map[string]string{
	"jpg": "image", "jpeg": "image", "png": "image", "gif": "image",
	"webp": "image", "tif": "image", "tiff": "image", "psd": "image",
	"mp4": "video", "mov": "video",
	"pdf": "application", "zip": "application", "ai": "application",
}

// declaredMatchesExtension 判断声明的媒体类型与扩展名推断的大类是否矛盾。
// 只在两边都有明确归属时才下否定结论。
func declaredMatchesExtension(ext, mimeType string) bool {
	family, known := extensionFamilies[ext]
	if !known {
		return true
	}
	declaredFamily, _, found := strings.Cut(mimeType, "/")
	if !found {
		return true
	}
	return declaredFamily == family
}

// CheckMeta 对候选文件的元数据做全部纯检查：
// 大小边界、扩展名与声明媒体类型的允许列表、文件名清洗。
// 预签名直传链路上服务器看不到内容字节，这是它能做的全部校验。
func (s *Service) CheckMeta(filename, declaredMIME string, size int64) *Result {
	result := &Result{OriginalName: filename}

	sanitized, changed := SanitizeFilename(filename)
	result.SanitizedName = sanitized
	if changed {
		result.warn(ReasonFilenameSanitized, fmt.Sprintf("文件名已被清洗为 %q", sanitized))
	}

	if size <= 0 {
		result.reject(ReasonSizeInvalid, "文件大小必须大于 0")
	} else if size > s.maxSizeBytes {
		result.reject(ReasonSizeExceeded, fmt.Sprintf("文件大小 %d 字节超过上限 %d 字节", size, s.maxSizeBytes))
	}

	// 扩展名与声明类型有一方命中允许列表即可放行；
	// 两方都不命中才拒绝，单方不命中降级为警告。内容字节的最终裁决在 CheckContent。
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(sanitized), "."))
	extOK := s.extensionAllowed(ext)
	mimeType := normalizeMIME(declaredMIME)
	mimeOK := s.mimeAllowed(mimeType)
	switch {
	case !extOK && !mimeOK:
		result.reject(ReasonExtensionNotAllowed, fmt.Sprintf("扩展名 %q 不在允许列表内", ext))
		result.reject(ReasonMIMENotAllowed, fmt.Sprintf("媒体类型 %q 不在允许列表内", mimeType))
	case !extOK:
		result.warn(ReasonExtensionNotAllowed, fmt.Sprintf("扩展名 %q 不在允许列表内，依声明的媒体类型 %q 放行", ext, mimeType))
	case !mimeOK:
		result.warn(ReasonMIMENotAllowed, fmt.Sprintf("媒体类型 %q 不在允许列表内，依扩展名 %q 放行", mimeType, ext))
	}

	if mimeType == "application/octet-stream" {
		result.warn(ReasonGenericMIME, "声明的媒体类型过于宽泛，无法进行内容一致性校验")
	} else if extOK && mimeOK && !declaredMatchesExtension(ext, mimeType) {
		result.warn(ReasonContentMismatch, fmt.Sprintf("声明的媒体类型 %q 与扩展名 %q 推断的大类不一致", mimeType, ext))
	}

	result.finalize()
	return result
}

// CheckContent 在 CheckMeta 的基础上检查内容首部字节与声明类型的矛盾。
// 只有字节经过服务器的链路（服务端代传）才会调用。
func (s *Service) CheckContent(result *Result, declaredMIME string, head []byte) {
	if name, ok := detectExecutable(head); ok {
		result.reject(ReasonExecutableContent, fmt.Sprintf("内容为 %s 可执行格式，拒绝以 %q 接收", name, normalizeMIME(declaredMIME)))
		result.finalize()
		return
	}

	detected := detectFamily(head)
	declared := normalizeMIME(declaredMIME)
	if detected != "" && declared != "application/octet-stream" && !familyCompatible(declared, detected) {
		result.warn(ReasonContentMismatch, fmt.Sprintf("内容特征为 %s，与声明的 %q 不一致", detected, declared))
	}

	result.finalize()
}

// ValidateBatch 执行批量预校验。
// 批级错误（空批次、数量超限）让整批失败；其余情况逐个给出结论。
func (s *Service) ValidateBatch(req *model.ValidateBatchRequest) (*model.ValidateBatchResponse, error) {
	if req == nil || len(req.Files) == 0 {
		return nil, fmt.Errorf("%w: 批次为空", constant.ErrBadRequest)
	}
	if len(req.Files) > s.maxBatchFiles {
		return nil, fmt.Errorf("%w: 单批最多 %d 个文件，收到 %d 个", constant.ErrBadRequest, s.maxBatchFiles, len(req.Files))
	}

	results := make([]*model.ValidateResultItem, 0, len(req.Files))
	for _, candidate := range req.Files {
		checked := s.CheckMeta(candidate.Filename, candidate.ContentType, candidate.Size)
		results = append(results, &model.ValidateResultItem{
			Filename:      candidate.Filename,
			SanitizedName: checked.SanitizedName,
			Verdict:       checked.Verdict,
			Errors:        checked.Errors,
			Warnings:      checked.Warnings,
		})
	}
	return &model.ValidateBatchResponse{Results: results}, nil
}
