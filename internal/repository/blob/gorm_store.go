package blob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paperchat/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps one row per scope in session_index_blobs. It works with
// any dialect; the container opens postgres or sqlite.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&model.SessionIndexBlob{}); err != nil {
		return nil, fmt.Errorf("auto migrate session index: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Load(ctx context.Context, scope string) ([]byte, error) {
	var row model.SessionIndexBlob
	err := s.db.WithContext(ctx).Where("scope = ?", scope).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return []byte(row.Blob), nil
}

func (s *GormStore) Save(ctx context.Context, scope string, blob []byte) error {
	row := model.SessionIndexBlob{
		Scope:     scope,
		Blob:      blob,
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{"blob", "updated_at"}),
	}).Create(&row).Error
}

func (s *GormStore) Delete(ctx context.Context, scope string) error {
	return s.db.WithContext(ctx).Where("scope = ?", scope).Delete(&model.SessionIndexBlob{}).Error
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
