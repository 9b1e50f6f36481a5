package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"HobbyChat/config"
	"HobbyChat/pkg/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrFileTooLarge 附件超过大小上限
var ErrFileTooLarge = errors.New("minio: file exceeds size limit")

var global *Client

// Client 聊天附件存储客户端
type Client struct {
	client *minio.Client
	config config.MinIOConfig
}

// Global 返回全局客户端（未初始化时为 nil）
func Global() *Client {
	return global
}

// ReplaceGlobal 设置全局客户端
func ReplaceGlobal(c *Client) {
	global = c
}

// Build 基于配置创建客户端，并确保 Bucket 存在且公开可读
func Build(cfg config.MinIOConfig) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("minio endpoint is empty")
	}
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errors.New("minio bucketName is empty")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	c := &Client{client: mc, config: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// EnsureBucket 检查 Bucket，不存在则创建并设置公开读策略
func (c *Client) EnsureBucket(ctx context.Context) error {
	bucket := c.config.BucketName
	exists, err := c.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket exists: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.config.Location}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	logger.Info(ctx, "MinIO Bucket 创建成功", logger.String("bucket", bucket))

	// 附件链接直接下发给客户端，需要匿名可读
	policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
	if err := c.client.SetBucketPolicy(ctx, bucket, policy); err != nil {
		logger.Warn(ctx, "设置 Bucket 公开策略失败",
			logger.String("bucket", bucket),
			logger.ErrorField("error", err),
		)
	}
	return nil
}

// UploadResult 上传结果
type UploadResult struct {
	ObjectName  string // 对象名称，删除时使用
	URL         string // 对外访问地址
	Size        int64
	ContentType string
}

// Store 上传一个附件。contentType 为空时根据内容嗅探。
func (c *Client) Store(ctx context.Context, reader io.Reader, size int64, contentType, fileName string) (*UploadResult, error) {
	if c.config.MaxFileSize > 0 && size > c.config.MaxFileSize {
		return nil, ErrFileTooLarge
	}

	if contentType == "" || contentType == "application/octet-stream" {
		head := make([]byte, 512)
		n, err := io.ReadFull(reader, head)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("read file head: %w", err)
		}
		head = head[:n]
		contentType = http.DetectContentType(head)
		reader = io.MultiReader(strings.NewReader(string(head)), reader)
	}

	objectName := c.objectName(fileName, time.Now())

	uploadCtx := ctx
	if c.config.UploadTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, c.config.UploadTimeout)
		defer cancel()
	}

	info, err := c.client.PutObject(uploadCtx, c.config.BucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"original-name": fileName,
		},
	})
	if err != nil {
		logger.Error(ctx, "MinIO 上传失败",
			logger.String("object", objectName),
			logger.String("content_type", contentType),
			logger.Int64("size", size),
			logger.ErrorField("error", err),
		)
		return nil, fmt.Errorf("minio put %s: %w", objectName, err)
	}

	logger.Info(ctx, "MinIO 上传成功",
		logger.String("object", objectName),
		logger.String("content_type", contentType),
		logger.Int64("size", info.Size),
	)

	return &UploadResult{
		ObjectName:  objectName,
		URL:         c.URL(objectName),
		Size:        info.Size,
		ContentType: contentType,
	}, nil
}

// Delete 删除对象；对象不存在不算错误
func (c *Client) Delete(ctx context.Context, objectName string) error {
	if objectName == "" {
		return nil
	}
	if err := c.client.RemoveObject(ctx, c.config.BucketName, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio remove %s: %w", objectName, err)
	}
	return nil
}

// URL 拼接对象的外部访问地址
func (c *Client) URL(objectName string) string {
	return BuildURL(c.config.BaseURL, c.config.BucketName, objectName)
}

// objectName 生成 prefix/yyyy/mm/dd/uuid.ext
func (c *Client) objectName(fileName string, now time.Time) string {
	return BuildObjectName(c.config.PathPrefix, fileName, now)
}

// BuildObjectName 生成对象名，保留原始扩展名
func BuildObjectName(prefix, fileName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	name := uuid.NewString() + ext
	parts := []string{now.Format("2006"), now.Format("01"), now.Format("02"), name}
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append([]string{p}, parts...)
	}
	return path.Join(parts...)
}

// BuildURL 拼接 baseURL/bucket/object
func BuildURL(baseURL, bucket, objectName string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(baseURL, "/"), bucket, strings.TrimPrefix(objectName, "/"))
}
