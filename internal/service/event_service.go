package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"
	"backend/pkg/bulk"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateEventRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	StartTime   time.Time       `json:"start_time" binding:"required"`
	Budget      decimal.Decimal `json:"budget"`
}

type BulkEventRequest struct {
	EventIDs []uint `json:"event_ids" binding:"required"`
}

type EventResponse struct {
	ID            uint            `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Location      string          `json:"location"`
	StartTime     string          `json:"start_time"`
	Budget        decimal.Decimal `json:"budget"`
	Status        string          `json:"status"`
	NeedsFollowUp bool            `json:"needs_follow_up"`
	PostponeCount int             `json:"postpone_count"`
	CreatedByID   uint            `json:"created_by_id"`
	CreatorName   string          `json:"creator_name,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

type EventStatsResponse struct {
	Total         int64           `json:"total"`
	Pending       int64           `json:"pending"`
	Completed     int64           `json:"completed"`
	Rejected      int64           `json:"rejected"`
	NeedsFollowUp int64           `json:"needs_follow_up"`
	TotalBudget   decimal.Decimal `json:"total_budget"`
}

// --- Interface ---

// EventService implements the event lifecycle operations. The four bulk
// methods share one partial-failure executor: each target is attempted
// independently and ownership checks run inside the per-item attempt, so a
// batch mixing owned and unowned ids gets per-item outcomes instead of an
// all-or-nothing rejection.
type EventService interface {
	CreateEvent(ctx context.Context, actorID uint, req CreateEventRequest) (*EventResponse, error)
	ListEvents(ctx context.Context, page, limit int, status string) ([]EventResponse, int64, error)
	GetEvent(ctx context.Context, id uint) (*EventResponse, error)
	Stats(ctx context.Context) (*EventStatsResponse, error)

	CompleteEvent(ctx context.Context, actorID, id uint) (*EventResponse, error)
	PostponeEvent(ctx context.Context, actorID, id uint) (*EventResponse, error)
	FollowUpEvent(ctx context.Context, actorID, id uint) (*EventResponse, error)
	RejectEvent(ctx context.Context, actorID, id uint) (*EventResponse, error)

	BulkComplete(ctx context.Context, actorID uint, ids []uint) (bulk.Result[EventResponse], error)
	BulkPostpone(ctx context.Context, actorID uint, ids []uint) (bulk.Result[EventResponse], error)
	BulkFollowUp(ctx context.Context, actorID uint, ids []uint) (bulk.Result[EventResponse], error)
	BulkReject(ctx context.Context, actorID uint, ids []uint) (bulk.Result[EventResponse], error)
}

type eventService struct {
	events repository.EventRepository
	audits repository.AuditRepository
	txm    repository.TransactionManager
	hub    interface{ GetBroadcast() chan []byte } // optional websocket hub
}

func NewEventService(events repository.EventRepository, audits repository.AuditRepository, txm repository.TransactionManager) EventService {
	return &eventService{events: events, audits: audits, txm: txm}
}

// NewEventServiceWithHub wires an optional websocket hub for change broadcasts
func NewEventServiceWithHub(events repository.EventRepository, audits repository.AuditRepository, txm repository.TransactionManager, hub interface{ GetBroadcast() chan []byte }) EventService {
	return &eventService{events: events, audits: audits, txm: txm, hub: hub}
}

// --- Implementation ---

func (s *eventService) CreateEvent(ctx context.Context, actorID uint, req CreateEventRequest) (*EventResponse, error) {
	if req.Budget.IsNegative() {
		return nil, apperror.New(apperror.Validation, "budget cannot be negative")
	}

	event := &model.Event{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
		Budget:      req.Budget,
		Status:      model.EventStatusPending,
		CreatedByID: actorID,
	}

	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.events.Create(txCtx, event); err != nil {
			return apperror.Wrap(apperror.Internal, "failed to create event", err)
		}
		return s.writeAudit(txCtx, actorID, model.ActionCreateEvent, event)
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("event_created", event.ID)
	resp := toEventResponse(event)
	return &resp, nil
}

func (s *eventService) ListEvents(ctx context.Context, page, limit int, status string) ([]EventResponse, int64, error) {
	events, total, err := s.events.List(ctx, page, limit, status)
	if err != nil {
		return nil, 0, apperror.Wrap(apperror.Internal, "failed to fetch events", err)
	}

	res := make([]EventResponse, 0, len(events))
	for i := range events {
		res = append(res, toEventResponse(&events[i]))
	}
	return res, total, nil
}

func (s *eventService) GetEvent(ctx context.Context, id uint) (*EventResponse, error) {
	event, err := s.loadEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toEventResponse(event)
	return &resp, nil
}

func (s *eventService) Stats(ctx context.Context) (*EventStatsResponse, error) {
	stats, err := s.events.Stats(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to compute event statistics", err)
	}
	return &EventStatsResponse{
		Total:         stats.Total,
		Pending:       stats.Pending,
		Completed:     stats.Completed,
		Rejected:      stats.Rejected,
		NeedsFollowUp: stats.NeedsFollowUp,
		TotalBudget:   stats.TotalBudget,
	}, nil
}

// CompleteEvent marks a pending event completed. Any caller with the
// events.complete permission may complete an event, owned or not.
func (s *eventService) CompleteEvent(ctx context.Context, actorID, id uint) (*EventResponse, error) {
	return s.mutate(ctx, actorID, id, model.ActionCompleteEvent, func(event *model.Event) error {
		if event.Status != model.EventStatusPending {
			return apperror.Newf(apperror.Validation, "event is already %s", event.Status)
		}
		event.Status = model.EventStatusCompleted
		return nil
	})
}

// PostponeEvent pushes the event's start time forward by the fixed offset.
// Only the event's creator may postpone it.
func (s *eventService) PostponeEvent(ctx context.Context, actorID, id uint) (*EventResponse, error) {
	return s.mutate(ctx, actorID, id, model.ActionPostponeEvent, func(event *model.Event) error {
		if event.CreatedByID != actorID {
			return apperror.New(apperror.Forbidden, "access denied")
		}
		if event.Status != model.EventStatusPending {
			return apperror.Newf(apperror.Validation, "cannot postpone a %s event", event.Status)
		}
		event.StartTime = event.StartTime.Add(model.PostponeOffset)
		event.PostponeCount++
		return nil
	})
}

// FollowUpEvent flags the event for follow-up. Only the event's creator may
// flag it.
func (s *eventService) FollowUpEvent(ctx context.Context, actorID, id uint) (*EventResponse, error) {
	return s.mutate(ctx, actorID, id, model.ActionFollowUpEvent, func(event *model.Event) error {
		if event.CreatedByID != actorID {
			return apperror.New(apperror.Forbidden, "access denied")
		}
		event.NeedsFollowUp = true
		return nil
	})
}

// RejectEvent marks a pending event rejected. Like complete, rejection is not
// restricted to the creator.
func (s *eventService) RejectEvent(ctx context.Context, actorID, id uint) (*EventResponse, error) {
	return s.mutate(ctx, actorID, id, model.ActionRejectEvent, func(event *model.Event) error {
		if event.Status != model.EventStatusPending {
			return apperror.Newf(apperror.Validation, "event is already %s", event.Status)
		}
		event.Status = model.EventStatusRejected
		return nil
	})
}

func (s *eventService) BulkComplete(ctx context.Context, actorID uint, ids []uint) (bulk.Result[EventResponse], error) {
	return s.applyBulk(ctx, ids, func(id uint) (*EventResponse, error) {
		return s.CompleteEvent(ctx, actorID, id)
	})
}

func (s *eventService) BulkPostpone(ctx context.Context, actorID uint, ids []uint) (bulk.Result[EventResponse], error) {
	return s.applyBulk(ctx, ids, func(id uint) (*EventResponse, error) {
		return s.PostponeEvent(ctx, actorID, id)
	})
}

func (s *eventService) BulkFollowUp(ctx context.Context, actorID uint, ids []uint) (bulk.Result[EventResponse], error) {
	return s.applyBulk(ctx, ids, func(id uint) (*EventResponse, error) {
		return s.FollowUpEvent(ctx, actorID, id)
	})
}

func (s *eventService) BulkReject(ctx context.Context, actorID uint, ids []uint) (bulk.Result[EventResponse], error) {
	return s.applyBulk(ctx, ids, func(id uint) (*EventResponse, error) {
		return s.RejectEvent(ctx, actorID, id)
	})
}

// --- Helpers ---

func (s *eventService) applyBulk(_ context.Context, ids []uint, op func(id uint) (*EventResponse, error)) (bulk.Result[EventResponse], error) {
	return bulk.Apply(ids, func(id uint) (EventResponse, error) {
		resp, err := op(id)
		if err != nil {
			return EventResponse{}, err
		}
		return *resp, nil
	})
}

// mutate loads the event, applies the per-item change (including its ACL
// check), and persists it together with an audit row in one transaction.
func (s *eventService) mutate(ctx context.Context, actorID, id uint, action string, change func(event *model.Event) error) (*EventResponse, error) {
	var event *model.Event

	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		var loadErr error
		event, loadErr = s.loadEvent(txCtx, id)
		if loadErr != nil {
			return loadErr
		}

		if err := change(event); err != nil {
			return err
		}

		if err := s.events.Update(txCtx, event); err != nil {
			return apperror.Wrap(apperror.Internal, "failed to update event", err)
		}

		return s.writeAudit(txCtx, actorID, action, event)
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("event_updated", event.ID)
	resp := toEventResponse(event)
	return &resp, nil
}

func (s *eventService) loadEvent(ctx context.Context, id uint) (*model.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.NotFound, "event not found")
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to load event", err)
	}
	return event, nil
}

func (s *eventService) writeAudit(ctx context.Context, actorID uint, action string, event *model.Event) error {
	details, _ := json.Marshal(map[string]interface{}{
		"status":         event.Status,
		"start_time":     event.StartTime,
		"postpone_count": event.PostponeCount,
	})
	entry := &model.AuditLog{
		UserID:     &actorID,
		Action:     action,
		EntityID:   strconv.FormatUint(uint64(event.ID), 10),
		EntityName: event.Title,
		Details:    string(details),
	}
	if err := s.audits.Log(ctx, entry); err != nil {
		return apperror.Wrap(apperror.Internal, "failed to write audit log", err)
	}
	return nil
}

func (s *eventService) broadcast(kind string, eventID uint) {
	if s.hub == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{"type": kind, "event_id": eventID})
	select {
	case s.hub.GetBroadcast() <- payload:
	default:
	}
}

func toEventResponse(e *model.Event) EventResponse {
	resp := EventResponse{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		Location:      e.Location,
		StartTime:     e.StartTime.Format(time.RFC3339),
		Budget:        e.Budget,
		Status:        e.Status,
		NeedsFollowUp: e.NeedsFollowUp,
		PostponeCount: e.PostponeCount,
		CreatedByID:   e.CreatedByID,
		CreatedAt:     e.CreatedAt.Format(time.RFC3339),
	}
	if e.CreatedBy != nil {
		resp.CreatorName = e.CreatedBy.Name
	}
	return resp
}
