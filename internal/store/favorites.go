package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kjstillabower/cityweather/internal/observability"
)

// Outcome reports what a favorites mutation did. None of them is an error.
type Outcome string

const (
	OutcomeSaved        Outcome = "saved"
	OutcomeAlreadySaved Outcome = "already_saved"
	OutcomeRemoved      Outcome = "removed"
	OutcomeNotFound     Outcome = "not_found"
)

// Page is one page of a user's saved cities.
type Page struct {
	Items   []SavedCity `json:"items"`
	Page    int         `json:"page"`
	PerPage int         `json:"perPage"`
	Total   int64       `json:"total"`
}

func (p Page) Pages() int {
	if p.PerPage <= 0 {
		return 0
	}
	return int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
}

func (p Page) HasPrev() bool { return p.Page > 1 }

func (p Page) HasNext() bool { return p.Page < p.Pages() }

type FavoritesStore struct {
	db *gorm.DB
}

func NewFavoritesStore(db *gorm.DB) *FavoritesStore {
	return &FavoritesStore{db: db}
}

// Save adds city for userID if absent.
func (s *FavoritesStore) Save(ctx context.Context, userID uint, city string) (Outcome, error) {
	city = strings.TrimSpace(city)
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "city_name"}},
			DoNothing: true,
		}).
		Create(&SavedCity{UserID: userID, CityName: city})
	if res.Error != nil {
		observability.FavoritesOperationsTotal.WithLabelValues("save", "error").Inc()
		return "", fmt.Errorf("save city: %w", res.Error)
	}
	outcome := OutcomeSaved
	if res.RowsAffected == 0 {
		outcome = OutcomeAlreadySaved
	}
	observability.FavoritesOperationsTotal.WithLabelValues("save", string(outcome)).Inc()
	return outcome, nil
}

// Remove deletes city for userID if present.
func (s *FavoritesStore) Remove(ctx context.Context, userID uint, city string) (Outcome, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND city_name = ?", userID, strings.TrimSpace(city)).
		Delete(&SavedCity{})
	if res.Error != nil {
		observability.FavoritesOperationsTotal.WithLabelValues("remove", "error").Inc()
		return "", fmt.Errorf("remove city: %w", res.Error)
	}
	outcome := OutcomeRemoved
	if res.RowsAffected == 0 {
		outcome = OutcomeNotFound
	}
	observability.FavoritesOperationsTotal.WithLabelValues("remove", string(outcome)).Inc()
	return outcome, nil
}

// IsSaved reports whether userID saved city. userID 0 (anonymous) is never
// looked up.
func (s *FavoritesStore) IsSaved(ctx context.Context, userID uint, city string) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&SavedCity{}).
		Where("user_id = ? AND city_name = ?", userID, strings.TrimSpace(city)).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("lookup saved city: %w", err)
	}
	return n > 0, nil
}

// List returns page (1-based) of userID's saved cities, newest first.
func (s *FavoritesStore) List(ctx context.Context, userID uint, page, perPage int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 6
	}
	out := Page{Page: page, PerPage: perPage, Items: []SavedCity{}}

	q := s.db.WithContext(ctx).Model(&SavedCity{}).Where("user_id = ?", userID)
	if err := q.Count(&out.Total).Error; err != nil {
		return Page{}, fmt.Errorf("count saved cities: %w", err)
	}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&out.Items).Error
	if err != nil {
		return Page{}, fmt.Errorf("list saved cities: %w", err)
	}
	return out, nil
}

func (s *FavoritesStore) Count(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&SavedCity{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}
