package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/model"
	"backend/pkg/apperror"
	"backend/pkg/bulk"
)

func newEventService(repo *fakeEventRepo, audits *fakeAuditRepo) EventService {
	return NewEventService(repo, audits, nopTxManager{})
}

func pendingEvent(id, creatorID uint, title string) *model.Event {
	return &model.Event{
		ID:          id,
		Title:       title,
		StartTime:   time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC),
		Status:      model.EventStatusPending,
		CreatedByID: creatorID,
	}
}

func TestCreateEvent(t *testing.T) {
	repo := newFakeEventRepo()
	audits := &fakeAuditRepo{}
	svc := newEventService(repo, audits)

	resp, err := svc.CreateEvent(context.Background(), 1, CreateEventRequest{
		Title:     "Quarterly review",
		StartTime: time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC),
		Budget:    decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	assert.Equal(t, model.EventStatusPending, resp.Status)
	assert.Equal(t, uint(1), resp.CreatedByID)
	assert.Equal(t, []string{model.ActionCreateEvent}, audits.actions())
}

func TestCreateEventNegativeBudget(t *testing.T) {
	svc := newEventService(newFakeEventRepo(), &fakeAuditRepo{})

	_, err := svc.CreateEvent(context.Background(), 1, CreateEventRequest{
		Title:     "Bad budget",
		StartTime: time.Now(),
		Budget:    decimal.NewFromInt(-1),
	})
	require.Error(t, err)
	assert.Equal(t, apperror.Validation, apperror.KindOf(err))
}

func TestCompleteEvent(t *testing.T) {
	repo := newFakeEventRepo(pendingEvent(1, 2, "Owned by someone else"))
	audits := &fakeAuditRepo{}
	svc := newEventService(repo, audits)

	// Completion is not creator-restricted
	resp, err := svc.CompleteEvent(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusCompleted, resp.Status)
	assert.Equal(t, []string{model.ActionCompleteEvent}, audits.actions())

	_, err = svc.CompleteEvent(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Equal(t, apperror.Validation, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "already COMPLETED")
}

func TestCompleteEventNotFound(t *testing.T) {
	svc := newEventService(newFakeEventRepo(), &fakeAuditRepo{})

	_, err := svc.CompleteEvent(context.Background(), 1, 99)
	require.Error(t, err)
	assert.Equal(t, apperror.NotFound, apperror.KindOf(err))
}

func TestPostponeEvent(t *testing.T) {
	start := time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC)
	event := pendingEvent(1, 7, "Owned")
	event.StartTime = start
	repo := newFakeEventRepo(event)
	svc := newEventService(repo, &fakeAuditRepo{})

	resp, err := svc.PostponeEvent(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.Equal(t, start.Add(model.PostponeOffset).Format(time.RFC3339), resp.StartTime)
	assert.Equal(t, 1, resp.PostponeCount)

	// Postponing again keeps accumulating
	resp, err = svc.PostponeEvent(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.Equal(t, start.Add(2*model.PostponeOffset).Format(time.RFC3339), resp.StartTime)
	assert.Equal(t, 2, resp.PostponeCount)
}

func TestPostponeEventCreatorOnly(t *testing.T) {
	repo := newFakeEventRepo(pendingEvent(1, 7, "Owned"))
	audits := &fakeAuditRepo{}
	svc := newEventService(repo, audits)

	_, err := svc.PostponeEvent(context.Background(), 8, 1)
	require.Error(t, err)
	assert.Equal(t, apperror.Forbidden, apperror.KindOf(err))

	// The denied attempt must leave no trace
	stored, getErr := repo.GetByID(context.Background(), 1)
	require.NoError(t, getErr)
	assert.Zero(t, stored.PostponeCount)
	assert.Empty(t, audits.actions())
}

func TestFollowUpEventCreatorOnly(t *testing.T) {
	repo := newFakeEventRepo(pendingEvent(1, 7, "Owned"))
	svc := newEventService(repo, &fakeAuditRepo{})

	_, err := svc.FollowUpEvent(context.Background(), 8, 1)
	require.Error(t, err)
	assert.Equal(t, apperror.Forbidden, apperror.KindOf(err))

	resp, err := svc.FollowUpEvent(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.True(t, resp.NeedsFollowUp)
}

func TestFollowUpEventAnyStatus(t *testing.T) {
	event := pendingEvent(1, 7, "Done")
	event.Status = model.EventStatusCompleted
	svc := newEventService(newFakeEventRepo(event), &fakeAuditRepo{})

	// Follow-up is a flag, not a status transition, so completed events qualify
	resp, err := svc.FollowUpEvent(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.True(t, resp.NeedsFollowUp)
	assert.Equal(t, model.EventStatusCompleted, resp.Status)
}

func TestRejectEvent(t *testing.T) {
	repo := newFakeEventRepo(pendingEvent(1, 2, "Owned by someone else"))
	svc := newEventService(repo, &fakeAuditRepo{})

	resp, err := svc.RejectEvent(context.Background(), 9, 1)
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusRejected, resp.Status)

	_, err = svc.RejectEvent(context.Background(), 9, 1)
	require.Error(t, err)
	assert.Equal(t, apperror.Validation, apperror.KindOf(err))
}

func TestBulkCompletePartialFailure(t *testing.T) {
	completed := pendingEvent(2, 1, "Already done")
	completed.Status = model.EventStatusCompleted
	repo := newFakeEventRepo(
		pendingEvent(1, 1, "First"),
		completed,
		pendingEvent(3, 1, "Third"),
	)
	audits := &fakeAuditRepo{}
	svc := newEventService(repo, audits)

	result, err := svc.BulkComplete(context.Background(), 1, []uint{1, 2, 3, 99})
	require.NoError(t, err)

	require.Len(t, result.Successes, 2)
	assert.Equal(t, uint(1), result.Successes[0].ID)
	assert.Equal(t, uint(3), result.Successes[1].ID)

	require.Len(t, result.Failures, 2)
	assert.Equal(t, bulk.Failure{ID: 2, Reason: "event is already COMPLETED"}, result.Failures[0])
	assert.Equal(t, bulk.Failure{ID: 99, Reason: "event not found"}, result.Failures[1])

	// One audit row per successful item, none for failures
	assert.Equal(t, []string{model.ActionCompleteEvent, model.ActionCompleteEvent}, audits.actions())
}

func TestBulkPostponeOwnershipPerItem(t *testing.T) {
	repo := newFakeEventRepo(
		pendingEvent(1, 7, "Mine"),
		pendingEvent(2, 8, "Not mine"),
		pendingEvent(3, 7, "Also mine"),
	)
	svc := newEventService(repo, &fakeAuditRepo{})

	result, err := svc.BulkPostpone(context.Background(), 7, []uint{1, 2, 3})
	require.NoError(t, err)

	// A mixed batch produces per-item outcomes, not an all-or-nothing denial
	require.Len(t, result.Successes, 2)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, bulk.Failure{ID: 2, Reason: "access denied"}, result.Failures[0])

	unowned, getErr := repo.GetByID(context.Background(), 2)
	require.NoError(t, getErr)
	assert.Zero(t, unowned.PostponeCount, "the denied item must be untouched")
}

func TestBulkRejectEmptyList(t *testing.T) {
	svc := newEventService(newFakeEventRepo(), &fakeAuditRepo{})

	_, err := svc.BulkReject(context.Background(), 1, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.Validation, apperror.KindOf(err))
}

func TestBulkFollowUp(t *testing.T) {
	repo := newFakeEventRepo(
		pendingEvent(1, 5, "A"),
		pendingEvent(2, 5, "B"),
	)
	svc := newEventService(repo, &fakeAuditRepo{})

	result, err := svc.BulkFollowUp(context.Background(), 5, []uint{1, 2})
	require.NoError(t, err)
	require.Len(t, result.Successes, 2)
	assert.Empty(t, result.Failures)
	for _, item := range result.Successes {
		assert.True(t, item.NeedsFollowUp)
	}
}

func TestStats(t *testing.T) {
	done := pendingEvent(2, 1, "Done")
	done.Status = model.EventStatusCompleted
	done.Budget = decimal.NewFromInt(300)
	flagged := pendingEvent(3, 1, "Flagged")
	flagged.NeedsFollowUp = true
	first := pendingEvent(1, 1, "Pending")
	first.Budget = decimal.NewFromInt(200)

	svc := newEventService(newFakeEventRepo(first, done, flagged), &fakeAuditRepo{})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.NeedsFollowUp)
	assert.True(t, stats.TotalBudget.Equal(decimal.NewFromInt(500)))
}
