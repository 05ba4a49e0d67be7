package repository

import (
	"context"

	"backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EventStats aggregates the event table for the statistics endpoint
type EventStats struct {
	Total         int64
	Pending       int64
	Completed     int64
	Rejected      int64
	NeedsFollowUp int64
	TotalBudget   decimal.Decimal
}

// EventRepository defines the interface for data access of Event entities
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id uint) (*model.Event, error)
	List(ctx context.Context, page, limit int, status string) ([]model.Event, int64, error)
	Update(ctx context.Context, event *model.Event) error
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context) (*EventStats, error)
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	return GetDB(ctx, r.db).Create(event).Error
}

func (r *eventRepository) GetByID(ctx context.Context, id uint) (*model.Event, error) {
	var event model.Event
	if err := GetDB(ctx, r.db).Preload("CreatedBy").First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) List(ctx context.Context, page, limit int, status string) ([]model.Event, int64, error) {
	var events []model.Event
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Event{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("CreatedBy")
	if status != "" {
		fetch = fetch.Where("status = ?", status)
	}
	if err := fetch.Order("start_time asc").Offset(offset).Limit(limit).Find(&events).Error; err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

func (r *eventRepository) Update(ctx context.Context, event *model.Event) error {
	return GetDB(ctx, r.db).Save(event).Error
}

func (r *eventRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Event{}).Error
}

func (r *eventRepository) Stats(ctx context.Context) (*EventStats, error) {
	db := GetDB(ctx, r.db)
	stats := &EventStats{}

	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := db.Model(&model.Event{}).Select("status, count(1) as count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, rw := range rows {
		stats.Total += rw.Count
		switch rw.Status {
		case model.EventStatusPending:
			stats.Pending = rw.Count
		case model.EventStatusCompleted:
			stats.Completed = rw.Count
		case model.EventStatusRejected:
			stats.Rejected = rw.Count
		}
	}

	if err := db.Model(&model.Event{}).Where("needs_follow_up = ?", true).Count(&stats.NeedsFollowUp).Error; err != nil {
		return nil, err
	}

	var budget decimal.NullDecimal
	if err := db.Model(&model.Event{}).Select("COALESCE(SUM(budget), 0)").Scan(&budget).Error; err != nil {
		return nil, err
	}
	if budget.Valid {
		stats.TotalBudget = budget.Decimal
	}

	return stats, nil
}
