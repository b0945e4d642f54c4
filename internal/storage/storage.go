// Package storage is the re-upload channel: finished downloads are pushed to
// object storage and delivered to the user by durable object reference.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vidgrab/vidgrab/internal/config"
	"github.com/vidgrab/vidgrab/pkg/models"
)

// ErrFileTooLarge rejects uploads over the configured ceiling.
var ErrFileTooLarge = errors.New("file exceeds maximum upload size")

// UploadResult is the durable handle to a re-uploaded file.
type UploadResult struct {
	Ref  string
	Size int64
}

// Storage provides the object storage upload channel
type Storage struct {
	client      *minio.Client
	bucketName  string
	maxFileSize int64
}

// New creates a new storage client and ensures the bucket exists
func New(cfg config.StorageConfig) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:      client,
		bucketName:  cfg.BucketName,
		maxFileSize: cfg.MaxFileSize,
	}, nil
}

// UploadVideo uploads a downloaded video file and returns its object ref.
func (s *Storage) UploadVideo(ctx context.Context, filePath, title, quality string) (*UploadResult, error) {
	return s.upload(ctx, models.TrackVideo, filePath)
}

// UploadAudio uploads a downloaded audio file and returns its object ref.
func (s *Storage) UploadAudio(ctx context.Context, filePath, title, quality string) (*UploadResult, error) {
	return s.upload(ctx, models.TrackAudio, filePath)
}

func (s *Storage) upload(ctx context.Context, track models.TrackType, filePath string) (*UploadResult, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if s.maxFileSize > 0 && stat.Size() > s.maxFileSize {
		return nil, ErrFileTooLarge
	}

	objectName := fmt.Sprintf("%s/%s", track, filepath.Base(filePath))

	_, err = s.client.FPutObject(ctx, s.bucketName, objectName, filePath, minio.PutObjectOptions{
		ContentType: getContentType(filePath),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	return &UploadResult{Ref: objectName, Size: stat.Size()}, nil
}

// GetURL returns a presigned URL for a stored object
func (s *Storage) GetURL(ctx context.Context, objectName string) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucketName, objectName, time.Hour, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate URL: %w", err)
	}

	return url.String(), nil
}

// Delete deletes an object from storage
func (s *Storage) Delete(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucketName, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// getContentType returns the content type based on file extension
func getContentType(filePath string) string {
	switch filepath.Ext(filePath) {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".m4a":
		return "audio/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".opus", ".ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
