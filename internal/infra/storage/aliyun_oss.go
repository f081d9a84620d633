/*
 * @Description: 阿里云OSS存储提供者实现
 * @Author: 安知鱼
 * @Date: 2026-08-23 11:40:55
 * @LastEditTime: 2026-08-23 11:40:55
 * @LastEditors: 安知鱼
 */
package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// AliyunOSSProvider 实现了 IStorageProvider 接口，用于处理与阿里云OSS的所有交互。
type AliyunOSSProvider struct {
	bucket *oss.Bucket
}

// NewAliyunOSSProvider 是 AliyunOSSProvider 的构造函数。
// Endpoint 形如 https://oss-cn-hangzhou.aliyuncs.com
func NewAliyunOSSProvider(settings *Settings) (IStorageProvider, error) {
	if settings.Endpoint == "" {
		return nil, fmt.Errorf("阿里云OSS配置缺少Endpoint")
	}
	if settings.Bucket == "" {
		return nil, fmt.Errorf("阿里云OSS配置缺少存储桶名称")
	}
	if settings.AccessKey == "" || settings.SecretKey == "" {
		return nil, fmt.Errorf("阿里云OSS配置缺少AccessKey或SecretKey")
	}

	// 创建OSS客户端
	client, err := oss.New(settings.Endpoint, settings.AccessKey, settings.SecretKey)
	if err != nil {
		log.Printf("[阿里云OSS] 创建客户端失败: %v", err)
		return nil, fmt.Errorf("创建阿里云OSS客户端失败: %w", err)
	}

	// 获取存储桶
	bucket, err := client.Bucket(settings.Bucket)
	if err != nil {
		log.Printf("[阿里云OSS] 获取存储桶失败: %v", err)
		return nil, fmt.Errorf("获取阿里云OSS存储桶失败: %w", err)
	}

	log.Printf("[阿里云OSS] 成功创建客户端 - 存储桶: %s", settings.Bucket)
	return &AliyunOSSProvider{bucket: bucket}, nil
}

// IssueWriteGrant 为指定对象键签发预签名上传URL。
// Content-Type 参与签名，客户端上传时必须原样携带。
func (p *AliyunOSSProvider) IssueWriteGrant(ctx context.Context, key, contentType string, expiresIn time.Duration) (*WriteGrant, error) {
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	expirationDateTime := time.Now().Add(expiresIn)

	var signOptions []oss.Option
	if contentType != "" {
		signOptions = append(signOptions, oss.ContentType(contentType))
	}

	signedURL, err := p.bucket.SignURL(key, oss.HTTPPut, int64(expiresIn.Seconds()), signOptions...)
	if err != nil {
		log.Printf("[阿里云OSS] 生成预签名上传URL失败: %v", err)
		return nil, fmt.Errorf("生成阿里云OSS预签名上传URL失败: %w", err)
	}

	log.Printf("[阿里云OSS] 成功生成预签名上传URL: objectKey=%s", key)
	return &WriteGrant{
		UploadURL:          signedURL,
		ExpirationDateTime: expirationDateTime,
		ContentType:        contentType,
	}, nil
}

// IssueReadGrant 为存储中的对象生成预签名下载URL。
func (p *AliyunOSSProvider) IssueReadGrant(ctx context.Context, key string, expiresIn time.Duration) (*ReadGrant, error) {
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	expirationDateTime := time.Now().Add(expiresIn)

	signedURL, err := p.bucket.SignURL(key, oss.HTTPGet, int64(expiresIn.Seconds()))
	if err != nil {
		log.Printf("[阿里云OSS] 生成预签名URL失败: %v", err)
		return nil, fmt.Errorf("生成阿里云OSS预签名URL失败: %w", err)
	}

	return &ReadGrant{
		DownloadURL:        signedURL,
		ExpirationDateTime: expirationDateTime,
	}, nil
}

// StatObject 查询对象元信息，对象不存在时返回 Exists=false。
func (p *AliyunOSSProvider) StatObject(ctx context.Context, key string) (*ObjectStat, error) {
	exist, err := p.bucket.IsObjectExist(key)
	if err != nil {
		return nil, fmt.Errorf("检查阿里云OSS对象是否存在失败: %w", err)
	}
	if !exist {
		return &ObjectStat{Exists: false}, nil
	}

	meta, err := p.bucket.GetObjectDetailedMeta(key)
	if err != nil {
		return nil, fmt.Errorf("查询阿里云OSS对象信息失败: %w", err)
	}

	stat := &ObjectStat{Exists: true}
	if contentLengthStr := meta.Get("Content-Length"); contentLengthStr != "" {
		if size, parseErr := strconv.ParseInt(contentLengthStr, 10, 64); parseErr == nil {
			stat.Size = size
		}
	}
	stat.ContentType = meta.Get("Content-Type")
	stat.ETag = strings.Trim(meta.Get("Etag"), `"`)
	if lastModified := meta.Get("Last-Modified"); lastModified != "" {
		if t, parseErr := time.Parse(http.TimeFormat, lastModified); parseErr == nil {
			stat.LastModified = t
		}
	}
	return stat, nil
}

// ListObjects 列出指定前缀下的对象。
func (p *AliyunOSSProvider) ListObjects(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error) {
	if limit <= 0 {
		limit = 1000
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	result := make([]ObjectInfo, 0)
	marker := ""
	for {
		res, err := p.bucket.ListObjects(oss.Prefix(prefix), oss.Marker(marker), oss.MaxKeys(limit-len(result)))
		if err != nil {
			return nil, fmt.Errorf("列出阿里云OSS对象失败: %w", err)
		}
		for _, obj := range res.Objects {
			result = append(result, ObjectInfo{
				Key:          obj.Key,
				Size:         obj.Size,
				LastModified: obj.LastModified,
			})
		}
		if !res.IsTruncated || len(result) >= limit {
			break
		}
		marker = res.NextMarker
	}
	return result, nil
}

// PutObject 由服务端上传对象内容到阿里云OSS。
func (p *AliyunOSSProvider) PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	var putOptions []oss.Option
	if contentType != "" {
		putOptions = append(putOptions, oss.ContentType(contentType))
	}
	if size > 0 {
		putOptions = append(putOptions, oss.ContentLength(size))
	}
	if err := p.bucket.PutObject(key, reader, putOptions...); err != nil {
		log.Printf("[阿里云OSS] 上传失败: %v", err)
		return fmt.Errorf("上传文件到阿里云OSS失败: %w", err)
	}
	log.Printf("[阿里云OSS] 上传成功: objectKey=%s", key)
	return nil
}

// DeleteObject 删除一个对象，OSS对不存在的对象删除本身就静默成功。
func (p *AliyunOSSProvider) DeleteObject(ctx context.Context, key string) error {
	if err := p.bucket.DeleteObject(key); err != nil {
		return fmt.Errorf("删除阿里云OSS对象 %s 失败: %w", key, err)
	}
	return nil
}
