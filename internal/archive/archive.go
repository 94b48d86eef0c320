package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/bilgisen/illustrate/internal/config"
	"github.com/bilgisen/illustrate/internal/logger"
	"github.com/bilgisen/illustrate/internal/utils"
)

// putter is the slice of the S3 client the archiver needs.
type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver stores raw feed bodies in an S3-compatible bucket (Cloudflare R2).
type S3Archiver struct {
	client putter
	bucket string
	log    zerolog.Logger
}

// NewFromConfig returns nil, nil when archiving is not configured.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*S3Archiver, error) {
	if !cfg.ArchiveEnabled() {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.R2Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKey, cfg.R2SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load archive config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.R2Endpoint)
		o.UsePathStyle = true
	})
	return newArchiver(client, cfg.ArchiveBucket), nil
}

func newArchiver(client putter, bucket string) *S3Archiver {
	return &S3Archiver{
		client: client,
		bucket: bucket,
		log:    logger.Component("archive"),
	}
}

// Archive uploads one fetched body under ObjectKey.
func (a *S3Archiver) Archive(ctx context.Context, sourceID uint, url string, body []byte, at time.Time) error {
	key := ObjectKey(sourceID, url, at)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/xml"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	a.log.Debug().
		Uint("source_id", sourceID).
		Str("key", key).
		Int("bytes", len(body)).
		Msg("Archived feed")
	return nil
}

// ObjectKey is feeds/<source>/<YYYY/MM/DD>/<unix>-<url hash>.xml, dated in UTC.
func ObjectKey(sourceID uint, url string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("feeds/%d/%s/%d-%s.xml",
		sourceID, at.Format("2006/01/02"), at.Unix(), utils.ShortHash(url, 12))
}
