package bulk

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/pkg/apperror"
)

func TestApplyEmptyIDList(t *testing.T) {
	called := false
	result, err := Apply([]uint{}, func(id uint) (string, error) {
		called = true
		return "", nil
	})

	require.Error(t, err)
	assert.Equal(t, apperror.Validation, apperror.KindOf(err))
	assert.False(t, called, "op must not run for an empty batch")
	assert.Empty(t, result.Successes)
	assert.Empty(t, result.Failures)
}

func TestApplyAllSucceed(t *testing.T) {
	result, err := Apply([]uint{1, 2, 3}, func(id uint) (uint, error) {
		return id * 10, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []uint{10, 20, 30}, result.Successes)
	assert.Empty(t, result.Failures)
}

func TestApplyPartialFailure(t *testing.T) {
	op := func(id uint) (uint, error) {
		if id%2 == 0 {
			return 0, apperror.Newf(apperror.Validation, "event is already COMPLETED")
		}
		return id, nil
	}

	result, err := Apply([]uint{1, 2, 3, 4, 5}, op)

	require.NoError(t, err, "per-item failures must not abort the batch")
	assert.Equal(t, []uint{1, 3, 5}, result.Successes)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, Failure{ID: 2, Reason: "event is already COMPLETED"}, result.Failures[0])
	assert.Equal(t, Failure{ID: 4, Reason: "event is already COMPLETED"}, result.Failures[1])
}

func TestApplyEveryIDAccountedForOnce(t *testing.T) {
	ids := []uint{7, 8, 9, 10}
	result, err := Apply(ids, func(id uint) (uint, error) {
		if id == 9 {
			return 0, fmt.Errorf("boom")
		}
		return id, nil
	})
	require.NoError(t, err)

	seen := make(map[uint]int)
	for _, s := range result.Successes {
		seen[s]++
	}
	for _, f := range result.Failures {
		seen[f.ID]++
	}
	for _, id := range ids {
		assert.Equal(t, 1, seen[id], "id %d must appear in exactly one outcome list", id)
	}
}

func TestApplyUntypedErrorReasonIsSanitized(t *testing.T) {
	result, err := Apply([]uint{1}, func(id uint) (uint, error) {
		return 0, fmt.Errorf("pq: connection reset")
	})
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	// Untyped errors are classified as internal; the raw cause stays out of
	// the per-item reason.
	assert.NotContains(t, result.Failures[0].Reason, "pq:")
}
