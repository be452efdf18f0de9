package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const ContentTypeJSON = "application/json"

// Sink stores a rendered report under key and returns where it went.
type Sink interface {
	Write(ctx context.Context, key string, content []byte, contentType string) (string, error)
}

// ArchiveKey builds <prefix>/YYYY/MM/DD/compliance-report-<timestamp>.json.
func ArchiveKey(prefix string, t time.Time) string {
	t = t.UTC()
	name := fmt.Sprintf("%s/compliance-report-%s.json", t.Format("2006/01/02"), t.Format("20060102T150405Z"))
	if prefix == "" {
		return name
	}
	return fmt.Sprintf("%s/%s", strings.Trim(prefix, "/"), name)
}

type FileSink struct {
	Dir string
}

func (s FileSink) Write(_ context.Context, key string, content []byte, _ string) (string, error) {
	path := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// WriterSink writes the content to an io.Writer and ignores the key.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Write(_ context.Context, _ string, content []byte, _ string) (string, error) {
	w := s.W
	if w == nil {
		w = os.Stdout
	}
	if _, err := w.Write(content); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return "stdout", nil
}

type S3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Sink struct {
	client S3PutAPI
	bucket string
}

func NewS3Sink(client S3PutAPI, bucket string) (*S3Sink, error) {
	if bucket == "" {
		return nil, fmt.Errorf("report bucket is required")
	}
	return &S3Sink{client: client, bucket: bucket}, nil
}

func (s *S3Sink) Write(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      awssdk.String(s.bucket),
		Key:         awssdk.String(key),
		Body:        bytes.NewReader(content),
		ContentType: awssdk.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
