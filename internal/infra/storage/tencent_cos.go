/*
 * @Description: 腾讯云COS存储提供者实现
 * @Author: 安知鱼
 * @Date: 2026-08-23 11:32:18
 * @LastEditTime: 2026-08-23 11:32:18
 * @LastEditors: 安知鱼
 */
package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"
)

// TencentCOSProvider 实现了 IStorageProvider 接口，用于处理与腾讯云COS的所有交互。
type TencentCOSProvider struct {
	client    *cos.Client
	secretID  string
	secretKey string
}

// NewTencentCOSProvider 是 TencentCOSProvider 的构造函数。
// Endpoint 必须是完整的存储桶URL，如 https://bucket-appid.cos.ap-guangzhou.myqcloud.com
func NewTencentCOSProvider(settings *Settings) (IStorageProvider, error) {
	if settings.AccessKey == "" || settings.SecretKey == "" {
		return nil, fmt.Errorf("腾讯云COS配置缺少SecretID或SecretKey")
	}

	server := settings.Endpoint
	if server == "" {
		if settings.Bucket == "" || settings.Region == "" {
			return nil, fmt.Errorf("腾讯云COS配置缺少存储桶URL")
		}
		server = fmt.Sprintf("https://%s.cos.%s.myqcloud.com", settings.Bucket, settings.Region)
	}

	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("解析存储桶URL失败: %w", err)
	}

	// 创建COS客户端
	b := &cos.BaseURL{BucketURL: u}
	client := cos.NewClient(b, &http.Client{
		Timeout: 100 * time.Second,
		Transport: &cos.AuthorizationTransport{
			SecretID:  settings.AccessKey,
			SecretKey: settings.SecretKey,
		},
	})

	log.Printf("[腾讯云COS] 成功创建客户端 - 存储桶URL: %s", server)
	return &TencentCOSProvider{
		client:    client,
		secretID:  settings.AccessKey,
		secretKey: settings.SecretKey,
	}, nil
}

// isNotFound 判断COS错误是否表示对象不存在。
func isNotFound(err error) bool {
	if cosErr, ok := err.(*cos.ErrorResponse); ok {
		if cosErr.Code == "NoSuchKey" {
			return true
		}
		if cosErr.Response != nil && cosErr.Response.StatusCode == http.StatusNotFound {
			return true
		}
	}
	return false
}

// IssueWriteGrant 为指定对象键签发预签名上传URL。
func (p *TencentCOSProvider) IssueWriteGrant(ctx context.Context, key, contentType string, expiresIn time.Duration) (*WriteGrant, error) {
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	expirationDateTime := time.Now().Add(expiresIn)

	presignedURL, err := p.client.Object.GetPresignedURL(ctx, http.MethodPut, key,
		p.secretID, p.secretKey, expiresIn, nil)
	if err != nil {
		log.Printf("[腾讯云COS] 生成预签名上传URL失败: %v", err)
		return nil, fmt.Errorf("生成腾讯云COS预签名上传URL失败: %w", err)
	}

	log.Printf("[腾讯云COS] 成功生成预签名上传URL: objectKey=%s", key)
	return &WriteGrant{
		UploadURL:          presignedURL.String(),
		ExpirationDateTime: expirationDateTime,
		ContentType:        contentType,
	}, nil
}

// IssueReadGrant 为存储中的对象生成预签名下载URL。
func (p *TencentCOSProvider) IssueReadGrant(ctx context.Context, key string, expiresIn time.Duration) (*ReadGrant, error) {
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	expirationDateTime := time.Now().Add(expiresIn)

	presignedURL, err := p.client.Object.GetPresignedURL(ctx, http.MethodGet, key,
		p.secretID, p.secretKey, expiresIn, nil)
	if err != nil {
		log.Printf("[腾讯云COS] 生成预签名URL失败: %v", err)
		return nil, fmt.Errorf("生成腾讯云COS预签名URL失败: %w", err)
	}

	return &ReadGrant{
		DownloadURL:        presignedURL.String(),
		ExpirationDateTime: expirationDateTime,
	}, nil
}

// StatObject 通过 Head 请求查询对象元信息，对象不存在时返回 Exists=false。
func (p *TencentCOSProvider) StatObject(ctx context.Context, key string) (*ObjectStat, error) {
	resp, err := p.client.Object.Head(ctx, key, nil)
	if err != nil {
		if isNotFound(err) {
			return &ObjectStat{Exists: false}, nil
		}
		return nil, fmt.Errorf("查询腾讯云COS对象信息失败: %w", err)
	}

	stat := &ObjectStat{Exists: true}
	if contentLengthStr := resp.Header.Get("Content-Length"); contentLengthStr != "" {
		if size, parseErr := strconv.ParseInt(contentLengthStr, 10, 64); parseErr == nil {
			stat.Size = size
		}
	}
	stat.ContentType = resp.Header.Get("Content-Type")
	stat.ETag = strings.Trim(resp.Header.Get("Etag"), `"`)
	if lastModified := resp.Header.Get("Last-Modified"); lastModified != "" {
		if t, parseErr := time.Parse(http.TimeFormat, lastModified); parseErr == nil {
			stat.LastModified = t
		}
	}
	return stat, nil
}

// ListObjects 列出指定前缀下的对象。
func (p *TencentCOSProvider) ListObjects(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error) {
	if limit <= 0 {
		limit = 1000
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	result := make([]ObjectInfo, 0)
	marker := ""
	for {
		opt := &cos.BucketGetOptions{
			Prefix:  prefix,
			Marker:  marker,
			MaxKeys: limit - len(result),
		}
		res, _, err := p.client.Bucket.Get(ctx, opt)
		if err != nil {
			return nil, fmt.Errorf("列出腾讯云COS对象失败: %w", err)
		}
		for _, obj := range res.Contents {
			info := ObjectInfo{Key: obj.Key, Size: obj.Size}
			if t, parseErr := time.Parse(time.RFC3339, obj.LastModified); parseErr == nil {
				info.LastModified = t
			}
			result = append(result, info)
		}
		if !res.IsTruncated || len(result) >= limit {
			break
		}
		marker = res.NextMarker
	}
	return result, nil
}

// PutObject 由服务端上传对象内容到腾讯云COS。
func (p *TencentCOSProvider) PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType:   contentType,
			ContentLength: size,
		},
	}
	_, err := p.client.Object.Put(ctx, key, reader, opt)
	if err != nil {
		log.Printf("[腾讯云COS] 上传失败: %v", err)
		return fmt.Errorf("上传文件到腾讯云COS失败: %w", err)
	}
	log.Printf("[腾讯云COS] 上传成功: objectKey=%s", key)
	return nil
}

// DeleteObject 删除一个对象。
func (p *TencentCOSProvider) DeleteObject(ctx context.Context, key string) error {
	_, err := p.client.Object.Delete(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("删除腾讯云COS对象 %s 失败: %w", key, err)
	}
	return nil
}
