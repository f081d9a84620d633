/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-02-09 14:02:33
 * @LastEditTime: 2026-05-11 20:15:46
 * @LastEditors: 安知鱼
 */
package constant

// StorageDriverType 定义了对象存储驱动的类型，提供了更强的类型安全
type StorageDriverType string

// 定义支持的对象存储驱动常量
const (
	DriverLocal      StorageDriverType = "local"
	DriverS3         StorageDriverType = "aws_s3"
	DriverTencentCOS StorageDriverType = "tencent_cos"
	DriverAliOSS     StorageDriverType = "aliyun_oss"
)

// IsValid 检查给定的类型是否是受支持的存储驱动类型
func (t StorageDriverType) IsValid() bool {
	switch t {
	case DriverLocal, DriverS3, DriverTencentCOS, DriverAliOSS:
		return true
	default:
		return false
	}
}

// 上传相关的默认配置
const (
	// DefaultMaxUploadSizeMB 单个文件大小上限（MB）
	DefaultMaxUploadSizeMB = 512
	// DefaultMaxBatchFiles 单批校验的文件数量上限
	DefaultMaxBatchFiles = 64
	// DefaultPresignExpireMinutes 预签名上传地址的有效期（分钟），
	// 按规程控制在分钟级而不是小时级
	DefaultPresignExpireMinutes = 15
	// DefaultPendingExpireHours PENDING 文件记录的回收期限（小时）
	DefaultPendingExpireHours = 24
	// StorageKeyPrefix 对象键统一前缀
	StorageKeyPrefix = "uploads"
	// StorageKeySharedSegment 未归属项目的文件在对象键中使用的段
	StorageKeySharedSegment = "shared"
)

// DefaultAllowedExtensions 默认允许上传的扩展名（逗号分隔，可在配置中覆盖）
const DefaultAllowedExtensions = "jpg,jpeg,png,gif,webp,pdf,mp4,mov,zip,psd,ai,tif,tiff"

// DefaultAllowedMIMEPrefixes 默认允许的声明媒体类型前缀（逗号分隔，可在配置中覆盖）
const DefaultAllowedMIMEPrefixes = "image/,video/,application/pdf,application/zip,application/postscript,application/octet-stream"
