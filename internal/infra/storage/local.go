// internal/infra/storage/local.go
package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// LocalProvider 实现了 IStorageProvider 接口，用于处理与本机磁盘文件系统的所有交互。
// 本地磁盘无法签发直传凭证，IssueWriteGrant 返回 ErrFeatureNotSupported，
// 调用方应引导客户端走服务端代传链路。
type LocalProvider struct {
	basePath      string
	signingSecret string
}

// NewLocalProvider 是 LocalProvider 的构造函数，接收一个用于URL签名的密钥。
func NewLocalProvider(settings *Settings, secret string) (IStorageProvider, error) {
	basePath := settings.BasePath
	if basePath == "" {
		basePath = "data/storage"
	}
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, fmt.Errorf("无法创建本地存储根目录 '%s': %w", basePath, err)
	}
	return &LocalProvider{
		basePath:      basePath,
		signingSecret: secret,
	}, nil
}

// resolve 把对象键映射到物理路径，并拦截越出根目录的键。
func (p *LocalProvider) resolve(key string) (string, error) {
	cleaned := path.Clean("/" + key)
	if cleaned == "/" || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("非法的对象键: '%s'", key)
	}
	return filepath.Join(p.basePath, filepath.FromSlash(cleaned)), nil
}

// copyFile 复制文件从 src 到 dst，用于跨文件系统的文件移动
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("无法打开源文件: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("无法创建目标文件: %w", err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return fmt.Errorf("复制文件内容失败: %w", err)
	}

	// 确保数据写入磁盘
	if err := destFile.Sync(); err != nil {
		return fmt.Errorf("同步文件到磁盘失败: %w", err)
	}

	return nil
}

// SignObjectURL 为对象键生成限时签名，签名覆盖键与过期时间戳。
// 下载路由用同一密钥调用 VerifyObjectSignature 校验。
func SignObjectURL(secret, key string, expires int64) string {
	stringToSign := fmt.Sprintf("%s:%d", key, expires)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(stringToSign))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyObjectSignature 校验下载链接签名及其有效期。
func VerifyObjectSignature(secret, key, signature string, expires int64) bool {
	if time.Now().Unix() > expires {
		return false
	}
	expected := SignObjectURL(secret, key, expires)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// IssueWriteGrant 本地磁盘不提供预签名直传，总是返回 ErrFeatureNotSupported。
func (p *LocalProvider) IssueWriteGrant(ctx context.Context, key, contentType string, expiresIn time.Duration) (*WriteGrant, error) {
	return nil, ErrFeatureNotSupported
}

// IssueReadGrant 为本地文件生成一个带签名的、有时间限制的临时下载链接。
func (p *LocalProvider) IssueReadGrant(ctx context.Context, key string, expiresIn time.Duration) (*ReadGrant, error) {
	if p.signingSecret == "" {
		return nil, errors.New("签名密钥未提供给LocalProvider")
	}
	if _, err := p.resolve(key); err != nil {
		return nil, err
	}
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	expiresAt := time.Now().Add(expiresIn)
	signature := SignObjectURL(p.signingSecret, key, expiresAt.Unix())
	downloadURL := fmt.Sprintf(
		"/api/objects/local/%s?expires=%d&sign=%s",
		url.PathEscape(key),
		expiresAt.Unix(),
		url.QueryEscape(signature),
	)
	return &ReadGrant{DownloadURL: downloadURL, ExpirationDateTime: expiresAt}, nil
}

// StatObject 查询本地文件的元信息，文件不存在时返回 Exists=false。
func (p *LocalProvider) StatObject(ctx context.Context, key string) (*ObjectStat, error) {
	physicalPath, err := p.resolve(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(physicalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &ObjectStat{Exists: false}, nil
		}
		return nil, fmt.Errorf("无法获取本地文件 '%s' 的信息: %w", physicalPath, err)
	}
	if info.IsDir() {
		return &ObjectStat{Exists: false}, nil
	}

	contentType := mime.TypeByExtension(filepath.Ext(physicalPath))
	if contentType == "" {
		if f, err := os.Open(physicalPath); err == nil {
			buffer := make([]byte, 512)
			n, rerr := f.Read(buffer)
			f.Close()
			if rerr == nil || rerr == io.EOF {
				contentType = http.DetectContentType(buffer[:n])
			}
		}
	}

	return &ObjectStat{
		Exists:       true,
		Size:         info.Size(),
		ContentType:  contentType,
		LastModified: info.ModTime(),
	}, nil
}

// ListObjects 递归列出指定前缀下的本地文件。
func (p *LocalProvider) ListObjects(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error) {
	if limit <= 0 {
		limit = 1000
	}
	physicalPrefix, err := p.resolve(prefix)
	if err != nil {
		return nil, err
	}

	result := make([]ObjectInfo, 0)
	walkErr := filepath.WalkDir(physicalPrefix, func(fullPath string, d os.DirEntry, err error) error {
		if err != nil {
			// 前缀目录不存在时返回空列表，这符合 List 的语义
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if len(result) >= limit {
			return filepath.SkipAll
		}
		info, err := d.Info()
		if err != nil {
			log.Printf("警告: 无法获取文件 '%s' 的信息: %v", fullPath, err)
			return nil
		}
		rel, err := filepath.Rel(p.basePath, fullPath)
		if err != nil {
			return nil
		}
		result = append(result, ObjectInfo{
			Key:          filepath.ToSlash(rel),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("无法遍历本地目录 '%s': %w", physicalPrefix, walkErr)
	}
	return result, nil
}

// PutObject 实现了将文件流保存到本机磁盘的逻辑。
// 先落到临时文件再移动到最终位置，避免出现半写状态的对象。
func (p *LocalProvider) PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	finalPath, err := p.resolve(key)
	if err != nil {
		return err
	}

	processingTempDir := "data/temp"
	if err := os.MkdirAll(processingTempDir, os.ModePerm); err != nil {
		return fmt.Errorf("无法创建用于处理的临时目录 '%s': %w", processingTempDir, err)
	}

	tempFile, err := os.CreateTemp(processingTempDir, "anshen-app-upload-*.tmp")
	if err != nil {
		return fmt.Errorf("无法在 '%s' 目录创建临时文件: %w", processingTempDir, err)
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	written, err := io.Copy(tempFile, reader)
	if err != nil {
		return fmt.Errorf("写入处理临时文件失败: %w", err)
	}
	if size > 0 && written != size {
		return fmt.Errorf("写入字节数 %d 与声明大小 %d 不一致", written, size)
	}

	finalDir := filepath.Dir(finalPath)
	if err := os.MkdirAll(finalDir, os.ModePerm); err != nil {
		return fmt.Errorf("无法创建存储子目录 '%s': %w", finalDir, err)
	}

	// 关闭文件句柄，准备移动
	tempFileName := tempFile.Name()
	tempFile.Close()

	// 尝试使用 os.Rename (高效)，如果失败则使用 copy + delete (兼容跨文件系统)
	if err := os.Rename(tempFileName, finalPath); err != nil {
		if err := copyFile(tempFileName, finalPath); err != nil {
			os.Remove(tempFileName)
			return fmt.Errorf("复制文件到最终存储位置 '%s' 失败: %w", finalPath, err)
		}
		os.Remove(tempFileName)
	}
	return nil
}

// DeleteObject 删除本机上的一个物理文件，文件已不存在时静默成功。
func (p *LocalProvider) DeleteObject(ctx context.Context, key string) error {
	physicalPath, err := p.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(physicalPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("删除本地文件 '%s' 失败: %w", physicalPath, err)
	}
	// 顺手清理空掉的父目录，失败只记录不报错
	dir := filepath.Dir(physicalPath)
	for dir != p.basePath && strings.HasPrefix(dir, p.basePath) {
		if err := os.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

// Open 返回一个可读的文件流，供签名下载路由使用。
func (p *LocalProvider) Open(key string) (io.ReadCloser, string, error) {
	physicalPath, err := p.resolve(key)
	if err != nil {
		return nil, "", err
	}
	file, err := os.Open(physicalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("物理文件不存在: %s", physicalPath)
		}
		return nil, "", fmt.Errorf("无法打开物理文件 '%s': %w", physicalPath, err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(physicalPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return file, contentType, nil
}
