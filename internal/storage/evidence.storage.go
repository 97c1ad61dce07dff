package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	appConfig "drivemate/config"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const uploadTimeout = 30 * time.Second

// EvidenceStore persists handover evidence (inspection photos, signatures)
// and returns a publicly addressable URL for each object.
type EvidenceStore interface {
	Upload(ctx context.Context, sessionID uuid.UUID, filename, contentType string, data []byte) (string, error)
	PresignUpload(ctx context.Context, sessionID uuid.UUID, filename string) (string, string, error)
}

type s3EvidenceStore struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	publicURL string
	log       logger.Logger
}

// NewS3EvidenceStore builds a store against an S3-compatible backend. A
// custom endpoint (minio and friends) is honored when configured.
func NewS3EvidenceStore(cfg appConfig.Config) (EvidenceStore, error) {
	log := logger.New("s3EvidenceStore")

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.EvidenceRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.EvidenceAccessKey,
			cfg.EvidenceSecretKey,
			"",
		)))
	if err != nil {
		return nil, log.Err("failed to load aws config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EvidenceEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.EvidenceEndpoint)
			o.UsePathStyle = true
		}
	})

	return &s3EvidenceStore{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.EvidenceBucket,
		publicURL: strings.TrimSuffix(cfg.EvidencePublicURL, "/"),
		log:       log,
	}, nil
}

func (s *s3EvidenceStore) objectKey(sessionID uuid.UUID, filename string) string {
	d := time.Now()
	return fmt.Sprintf(
		"handovers/%s/%d/%02d/%s-%s",
		sessionID, d.Year(), d.Month(), uuid.New(), filename,
	)
}

func (s *s3EvidenceStore) Upload(
	ctx context.Context,
	sessionID uuid.UUID,
	filename, contentType string,
	data []byte,
) (string, error) {
	log := s.log.Function("Upload")

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	key := s.objectKey(sessionID, filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return "", log.Err(
			"failed to upload evidence object",
			err,
			"sessionID", sessionID,
			"key", key,
		)
	}

	return s.publicObjectURL(key), nil
}

// PresignUpload hands the client a short-lived PUT URL so large photos skip
// the API hop. Returns the final public URL alongside.
func (s *s3EvidenceStore) PresignUpload(
	ctx context.Context,
	sessionID uuid.UUID,
	filename string,
) (string, string, error) {
	log := s.log.Function("PresignUpload")

	key := s.objectKey(sessionID, filename)

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", "", log.Err(
			"failed to presign evidence upload",
			err,
			"sessionID", sessionID,
			"key", key,
		)
	}

	return req.URL, s.publicObjectURL(key), nil
}

func (s *s3EvidenceStore) publicObjectURL(key string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + key
	}
	return "https://" + s.bucket + ".s3.amazonaws.com/" + key
}
