/*
 * @Description: 定义了所有存储驱动需要遵守的接口和公共结构
 * @Author: 安知鱼
 * @Date: 2026-08-23 11:05:12
 * @LastEditTime: 2026-08-23 11:05:12
 * @LastEditors: 安知鱼
 */
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/anzhiyu-c/anshen-app/pkg/constant"
)

// 定义一个错误，用于表示某个功能不被当前 Provider 支持
var ErrFeatureNotSupported = errors.New("feature not supported by this provider")

// Settings 是存储驱动的静态配置，来自配置文件，进程生命周期内不变。
type Settings struct {
	Type      constant.StorageDriverType
	Bucket    string
	Region    string
	Endpoint  string // 为空时使用各云厂商的默认端点
	AccessKey string
	SecretKey string
	BasePath  string // local 驱动的物理根目录
}

// WriteGrant 封装了客户端直传所需的预签名信息。
type WriteGrant struct {
	UploadURL          string    `json:"uploadUrl"`          // 预签名上传URL
	ExpirationDateTime time.Time `json:"expirationDateTime"` // URL过期时间
	ContentType        string    `json:"contentType"`        // 期望的 Content-Type，客户端上传时必须使用此值
}

// ReadGrant 封装了临时下载链接。
type ReadGrant struct {
	DownloadURL        string    `json:"downloadUrl"`
	ExpirationDateTime time.Time `json:"expirationDateTime"`
}

// ObjectStat 封装了 Stat 操作返回的对象元信息。
// Exists 为 false 表示对象不存在，这是正常返回而非错误。
type ObjectStat struct {
	Exists       bool
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// ObjectInfo 封装了 List 操作返回的单个对象的信息。
// 这是为了统一本地和云端存储的列表返回结构，让上层服务可以透明处理。
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// IStorageProvider 定义了所有存储提供者必须实现的接口。
// key 一律为以 "uploads/" 开头的正斜杠相对路径，不以斜杠开头。
type IStorageProvider interface {
	// IssueWriteGrant 为指定对象键签发一个限时的直传凭证。
	// 不支持预签名上传的驱动返回 ErrFeatureNotSupported。
	IssueWriteGrant(ctx context.Context, key, contentType string, expiresIn time.Duration) (*WriteGrant, error)
	// IssueReadGrant 为存储中的对象生成一个临时的、可公开访问的下载链接。
	IssueReadGrant(ctx context.Context, key string, expiresIn time.Duration) (*ReadGrant, error)
	// StatObject 查询对象是否存在及其元信息。
	StatObject(ctx context.Context, key string) (*ObjectStat, error)
	// ListObjects 列出指定前缀下最多 limit 个对象。limit <= 0 表示使用驱动默认上限。
	ListObjects(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error)
	// PutObject 由服务端代传对象内容，用于不走预签名的回退上传链路。
	PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// DeleteObject 删除一个物理对象，对象不存在时静默成功。
	DeleteObject(ctx context.Context, key string) error
}

// NewProvider 根据配置实例化对应的存储驱动。
func NewProvider(settings *Settings, signingSecret string) (IStorageProvider, error) {
	switch settings.Type {
	case constant.DriverLocal:
		return NewLocalProvider(settings, signingSecret)
	case constant.DriverS3:
		return NewAwsS3Provider(settings)
	case constant.DriverTencentCOS:
		return NewTencentCOSProvider(settings)
	case constant.DriverAliOSS:
		return NewAliyunOSSProvider(settings)
	default:
		return nil, fmt.Errorf("不支持的存储驱动类型: %s", settings.Type)
	}
}
