package infrastructure

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/satangel2222/tg-mtproto-uploader/internal/domain"
)

// SQLiteUploadRepository implements UploadRepository using SQLite.
type SQLiteUploadRepository struct {
	db *gorm.DB
}

// NewSQLiteUploadRepository creates a new SQLite repository.
func NewSQLiteUploadRepository(dbPath string) (*SQLiteUploadRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Upload{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteUploadRepository{db: db}, nil
}

// Create creates a new upload record
func (r *SQLiteUploadRepository) Create(upload *domain.Upload) error {
	return r.db.Create(upload).Error
}

// Update updates an existing upload record
func (r *SQLiteUploadRepository) Update(upload *domain.Upload) error {
	return r.db.Save(upload).Error
}

// FindByID finds an upload by ID
func (r *SQLiteUploadRepository) FindByID(id string) (*domain.Upload, error) {
	var upload domain.Upload
	if err := r.db.First(&upload, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &upload, nil
}

// FindAll finds all uploads with optional filters, newest first
func (r *SQLiteUploadRepository) FindAll(filters map[string]interface{}) ([]*domain.Upload, error) {
	var uploads []*domain.Upload
	query := r.db

	for key, value := range filters {
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&uploads).Error
	return uploads, err
}

// DeleteOlderThan removes terminal records created before the cutoff
func (r *SQLiteUploadRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.
		Where("created_at < ?", cutoff).
		Where("status IN ?", []domain.UploadStatus{domain.StatusCompleted, domain.StatusFailed}).
		Delete(&domain.Upload{})
	return result.RowsAffected, result.Error
}

// Count returns the total number of upload records
func (r *SQLiteUploadRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&domain.Upload{}).Count(&count).Error
	return count, err
}

// GetStats returns relay statistics
func (r *SQLiteUploadRepository) GetStats() (*domain.UploadStats, error) {
	stats := &domain.UploadStats{}

	if err := r.db.Model(&domain.Upload{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	counts := []struct {
		status domain.UploadStatus
		target *int64
	}{
		{domain.StatusProcessing, &stats.Processing},
		{domain.StatusCompleted, &stats.Completed},
		{domain.StatusFailed, &stats.Failed},
	}

	for _, c := range counts {
		if err := r.db.Model(&domain.Upload{}).Where("status = ?", c.status).Count(c.target).Error; err != nil {
			return nil, err
		}
	}

	return stats, nil
}

// Close closes the underlying database connection
func (r *SQLiteUploadRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
