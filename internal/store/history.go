package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type HistoryStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Record appends a search of city by userID.
func (s *HistoryStore) Record(ctx context.Context, userID uint, city string) error {
	entry := SearchHistory{UserID: userID, CityName: strings.TrimSpace(city), SearchedAt: s.now()}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	return nil
}

// Recent returns up to limit of userID's searches, most recent first.
func (s *HistoryStore) Recent(ctx context.Context, userID uint, limit int) ([]SearchHistory, error) {
	if limit <= 0 {
		limit = 10
	}
	out := []SearchHistory{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("searched_at DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("recent searches: %w", err)
	}
	return out, nil
}
