package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/satangel2222/tg-mtproto-uploader/internal/domain"
)

// Fetcher pulls a remote resource into local scratch storage and returns the
// path. The caller owns the file and must remove it after use.
type Fetcher interface {
	Fetch(ctx context.Context, url, suffix string) (string, error)
}

// RelayService drives one relay end to end: fetch the remote file, hand it
// to the messenger, and always remove the scratch file afterwards.
type RelayService struct {
	fetcher   Fetcher
	messenger domain.Messenger
	repo      domain.UploadRepository
	logger    *zap.Logger
}

// NewRelayService creates a new relay service
func NewRelayService(
	fetcher Fetcher,
	messenger domain.Messenger,
	repo domain.UploadRepository,
	logger *zap.Logger,
) *RelayService {
	return &RelayService{
		fetcher:   fetcher,
		messenger: messenger,
		repo:      repo,
		logger:    logger,
	}
}

// Relay processes one normalized request synchronously and returns the
// recorded upload, carrying the resulting message id on success.
func (s *RelayService) Relay(ctx context.Context, req *domain.UploadRequest) (*domain.Upload, error) {
	upload := domain.NewUpload(req)
	if err := s.repo.Create(upload); err != nil {
		return nil, fmt.Errorf("record upload: %w", err)
	}

	s.logger.Info("relaying media",
		zap.String("id", upload.ID),
		zap.String("chat", req.ChatID),
		zap.String("kind", string(req.Kind)),
		zap.String("format_mode", string(req.Mode)),
		zap.String("url", req.SourceURL))

	start := time.Now()
	messageID, err := s.relay(ctx, req)
	if err != nil {
		upload.MarkFailed(err)
		if uerr := s.repo.Update(upload); uerr != nil {
			s.logger.Error("failed to update upload record", zap.String("id", upload.ID), zap.Error(uerr))
		}
		return upload, err
	}

	upload.MarkCompleted(messageID)
	if uerr := s.repo.Update(upload); uerr != nil {
		s.logger.Error("failed to update upload record", zap.String("id", upload.ID), zap.Error(uerr))
	}

	s.logger.Info("relay completed",
		zap.String("id", upload.ID),
		zap.Int("message_id", messageID),
		zap.Duration("took", time.Since(start)))
	return upload, nil
}

func (s *RelayService) relay(ctx context.Context, req *domain.UploadRequest) (int, error) {
	path, err := s.fetcher.Fetch(ctx, req.SourceURL, req.Kind.Suffix())
	if err != nil {
		return 0, err
	}

	// The scratch file goes away whether or not the upload succeeds.
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove scratch file", zap.String("path", path), zap.Error(err))
		}
	}()

	if req.Kind == domain.KindPhoto {
		return s.messenger.SendPhoto(ctx, req.ChatID, path, req.Caption, req.Mode)
	}
	return s.messenger.SendVideo(ctx, req.ChatID, path, req.Caption, req.Mode)
}

// GetUpload retrieves an upload record by ID
func (s *RelayService) GetUpload(id string) (*domain.Upload, error) {
	return s.repo.FindByID(id)
}

// ListUploads lists upload records with optional filters
func (s *RelayService) ListUploads(filters map[string]interface{}) ([]*domain.Upload, error) {
	return s.repo.FindAll(filters)
}

// GetStats returns relay statistics
func (s *RelayService) GetStats() (*domain.UploadStats, error) {
	return s.repo.GetStats()
}
