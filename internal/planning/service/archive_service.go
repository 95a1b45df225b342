package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const archiveContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ArchiveService MRP运行结果工作簿归档到对象存储
type ArchiveService struct {
	client *minio.Client
	bucket string
	mrp    *MRPService
	logger *zap.Logger
}

func NewArchiveService(client *minio.Client, bucket string, mrp *MRPService, logger *zap.Logger) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveService{client: client, bucket: bucket, mrp: mrp, logger: logger}
}

// ArchiveRun 导出运行结果并上传，返回对象路径
func (s *ArchiveService) ArchiveRun(ctx context.Context, runID string) (string, error) {
	run, err := s.mrp.GetRun(ctx, runID)
	if err != nil {
		return "", fmt.Errorf("mrp run not found: %w", err)
	}
	workbook, err := s.mrp.ExportRun(ctx, runID)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := workbook.Write(&buf); err != nil {
		return "", fmt.Errorf("write workbook: %w", err)
	}

	objectName := fmt.Sprintf("mrp-runs/%s/%s.xlsx", run.StartedAt.Format("2006-01"), run.RunCode)
	_, err = s.client.PutObject(ctx, s.bucket, objectName, &buf, int64(buf.Len()), minio.PutObjectOptions{
		ContentType: archiveContentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload workbook: %w", err)
	}

	s.logger.Info("MRP运行结果已归档",
		zap.String("run_id", runID),
		zap.String("object", objectName))
	return objectName, nil
}

// PresignedURL 生成归档文件的临时下载链接
func (s *ArchiveService) PresignedURL(ctx context.Context, objectName string, expirySeconds int) (string, error) {
	if expirySeconds <= 0 {
		expirySeconds = 3600
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, time.Duration(expirySeconds)*time.Second, nil)
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}
