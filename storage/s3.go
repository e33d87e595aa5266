package storage

import (
	"bytes"
	"context"
	"fmt"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"ptehtimetable_go/config"
)

// PayloadArchive keeps copies of raw fetched payloads in S3 so a broken
// ingestion pass can be replayed and upstream schema drift diagnosed
// against the exact bytes that triggered it.
type PayloadArchive struct {
	s3Client *s3.Client
	bucket   string
}

// NewPayloadArchive creates a new archive backed by the configured bucket.
func NewPayloadArchive() (*PayloadArchive, error) {
	cfg, err := awscfg.LoadDefaultConfig(context.Background(), awscfg.WithRegion(config.AppConfig.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}

	return &PayloadArchive{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   config.AppConfig.S3BucketName,
	}, nil
}

// Store uploads one raw payload under the given key.
func (a *PayloadArchive) Store(ctx context.Context, key string, payload []byte) error {
	contentType := "application/json"
	_, err := a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &key,
		Body:        bytes.NewReader(payload),
		ContentType: &contentType,
		Metadata: map[string]string{
			"source": "edupage",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload payload %s: %v", key, err)
	}

	logrus.WithFields(logrus.Fields{
		"bucket": a.bucket,
		"key":    key,
		"bytes":  len(payload),
	}).Debug("Archived raw payload")
	return nil
}
