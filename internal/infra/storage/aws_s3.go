/*
 * @Description: AWS S3存储提供者实现（使用aws-sdk-go-v2）
 * @Author: 安知鱼
 * @Date: 2026-08-23 11:20:36
 * @LastEditTime: 2026-08-23 11:20:36
 * @LastEditors: 安知鱼
 */
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// AwsS3Provider 实现了 IStorageProvider 接口，用于处理与AWS S3及兼容服务的所有交互。
type AwsS3Provider struct {
	client *s3.Client
	bucket string
}

// NewAwsS3Provider 是 AwsS3Provider 的构造函数。
// 配置是静态的，客户端在此一次性创建，后续调用直接复用。
func NewAwsS3Provider(settings *Settings) (IStorageProvider, error) {
	if settings.Bucket == "" {
		return nil, fmt.Errorf("AWS S3配置缺少存储桶名称")
	}
	if settings.AccessKey == "" {
		return nil, fmt.Errorf("AWS S3配置缺少AccessKey")
	}
	if settings.SecretKey == "" {
		return nil, fmt.Errorf("AWS S3配置缺少SecretKey")
	}

	region := settings.Region
	if region == "" {
		region = "us-east-1"
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))
	opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
		settings.AccessKey,
		settings.SecretKey,
		"",
	)))

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		log.Printf("[AWS S3] 创建配置失败: %v", err)
		return nil, fmt.Errorf("创建AWS S3配置失败: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if settings.Endpoint != "" {
			endpoint := settings.Endpoint
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true // 对于自定义endpoint（MinIO、Ceph RGW等）通常需要path-style
		}
	})

	log.Printf("[AWS S3] 成功创建客户端 - 区域: %s, 存储桶: %s", region, settings.Bucket)
	return &AwsS3Provider{client: client, bucket: settings.Bucket}, nil
}

// IssueWriteGrant 为指定对象键签发预签名上传URL。
// Content-Type 参与签名，客户端上传时必须原样携带。
func (p *AwsS3Provider) IssueWriteGrant(ctx context.Context, key, contentType string, expiresIn time.Duration) (*WriteGrant, error) {
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	expirationDateTime := time.Now().Add(expiresIn)

	presignClient := s3.NewPresignClient(p.client)

	presignResult, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiresIn
	})
	if err != nil {
		return nil, fmt.Errorf("生成AWS S3预签名上传URL失败: %w", err)
	}

	log.Printf("[AWS S3] 成功生成预签名上传URL: objectKey=%s", key)
	return &WriteGrant{
		UploadURL:          presignResult.URL,
		ExpirationDateTime: expirationDateTime,
		ContentType:        contentType,
	}, nil
}

// IssueReadGrant 为存储中的对象生成预签名下载URL。
func (p *AwsS3Provider) IssueReadGrant(ctx context.Context, key string, expiresIn time.Duration) (*ReadGrant, error) {
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	expirationDateTime := time.Now().Add(expiresIn)

	presignClient := s3.NewPresignClient(p.client)

	presignResult, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiresIn
	})
	if err != nil {
		return nil, fmt.Errorf("生成AWS S3预签名下载URL失败: %w", err)
	}

	return &ReadGrant{
		DownloadURL:        presignResult.URL,
		ExpirationDateTime: expirationDateTime,
	}, nil
}

// StatObject 通过 HeadObject 查询对象元信息，对象不存在时返回 Exists=false。
func (p *AwsS3Provider) StatObject(ctx context.Context, key string) (*ObjectStat, error) {
	headOutput, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		// 检查是否是NoSuchKey错误
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return &ObjectStat{Exists: false}, nil
		}
		return nil, fmt.Errorf("查询AWS S3对象信息失败: %w", err)
	}

	stat := &ObjectStat{Exists: true}
	if headOutput.ContentLength != nil {
		stat.Size = *headOutput.ContentLength
	}
	if headOutput.ContentType != nil {
		stat.ContentType = *headOutput.ContentType
	}
	if headOutput.ETag != nil {
		stat.ETag = strings.Trim(*headOutput.ETag, `"`)
	}
	if headOutput.LastModified != nil {
		stat.LastModified = *headOutput.LastModified
	}
	return stat, nil
}

// ListObjects 列出指定前缀下的对象。
func (p *AwsS3Provider) ListObjects(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error) {
	if limit <= 0 {
		limit = 1000
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	result := make([]ObjectInfo, 0)
	var continuationToken *string
	for {
		output, err := p.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(p.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("列出AWS S3对象失败: %w", err)
		}
		for _, obj := range output.Contents {
			if len(result) >= limit {
				return result, nil
			}
			info := ObjectInfo{}
			if obj.Key != nil {
				info.Key = *obj.Key
			}
			if obj.Size != nil {
				info.Size = *obj.Size
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			result = append(result, info)
		}
		if output.IsTruncated == nil || !*output.IsTruncated {
			break
		}
		continuationToken = output.NextContinuationToken
	}
	return result, nil
}

// PutObject 由服务端上传对象内容到AWS S3。
func (p *AwsS3Provider) PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	// 将文件内容读入内存，以便获取准确的 ContentLength
	// 这对于第三方 S3 兼容服务（如 Ceph RGW、MinIO）尤为重要
	fileContent, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("读取文件内容失败: %w", err)
	}
	if size > 0 && int64(len(fileContent)) != size {
		return fmt.Errorf("读取字节数 %d 与声明大小 %d 不一致", len(fileContent), size)
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(fileContent),
		ContentLength: aws.Int64(int64(len(fileContent))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("上传文件到AWS S3失败: %w", err)
	}

	log.Printf("[AWS S3] 上传成功: objectKey=%s", key)
	return nil
}

// DeleteObject 删除一个对象，对象不存在时S3本身就静默成功。
func (p *AwsS3Provider) DeleteObject(ctx context.Context, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("删除AWS S3对象失败: %w", err)
	}
	return nil
}
