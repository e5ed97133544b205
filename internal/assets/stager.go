// Package assets stages local files in object storage and hands back locators
// the job service can fetch.
package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"face-pipeline/internal/apperrors"
	"face-pipeline/internal/models"

	"github.com/gabriel-vasile/mimetype"
)

const DefaultURLTTL = 15 * time.Minute

// FileStore is the object storage the stager writes to.
type FileStore interface {
	Upload(ctx context.Context, file io.Reader, bucket, key, contentType string) (string, error)
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

type Stager struct {
	store  FileStore
	bucket string
	ttl    time.Duration
	logger *slog.Logger
}

func NewStager(store FileStore, bucket string, ttl time.Duration, logger *slog.Logger) *Stager {
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stager{store: store, bucket: bucket, ttl: ttl, logger: logger}
}

// Stage uploads the asset and returns a locator carrying a signed GET URL.
// The local file is closed before Stage returns.
func (s *Stager) Stage(ctx context.Context, asset models.Asset) (models.Locator, error) {
	if err := s.upload(ctx, asset); err != nil {
		return models.Locator{}, apperrors.Upload(asset.Key, err)
	}
	s.logger.Info("asset uploaded", "bucket", s.bucket, "key", asset.Key)

	signed, err := s.store.PresignGet(ctx, s.bucket, asset.Key, s.ttl)
	if err != nil {
		return models.Locator{}, apperrors.Upload(asset.Key, err)
	}
	s.logger.Debug("signed url minted", "key", asset.Key, "ttl", s.ttl)

	loc, err := models.NewLocator(s.bucket, asset.Key, signed)
	if err != nil {
		return models.Locator{}, apperrors.Upload(asset.Key, err)
	}
	return loc, nil
}

func (s *Stager) upload(ctx context.Context, asset models.Asset) error {
	if asset.Key == "" {
		return fmt.Errorf("asset key is required")
	}

	file, err := os.Open(asset.Path)
	if err != nil {
		return fmt.Errorf("failed to open asset: %w", err)
	}
	defer file.Close()

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return fmt.Errorf("failed to detect content type: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind asset: %w", err)
	}

	if _, err := s.store.Upload(ctx, file, s.bucket, asset.Key, mtype.String()); err != nil {
		return err
	}
	return nil
}
