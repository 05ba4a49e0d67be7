// Package bulk implements the partial-failure batch execution pattern shared by
// every bulk mutation endpoint: each target is attempted independently, and a
// single failing item never aborts the rest of the batch.
package bulk

import (
	"backend/pkg/apperror"
)

// Failure reports one target that could not be processed
type Failure struct {
	ID     uint   `json:"id"`
	Reason string `json:"reason"`
}

// Result separates per-item outcomes. An id appears in exactly one of the two
// lists, never both.
type Result[T any] struct {
	Successes []T       `json:"successes"`
	Failures  []Failure `json:"failures"`
}

// Apply runs op against every id independently and collects outcomes. An empty
// id list is a caller error and short-circuits before any item is processed;
// per-item failures are recovered locally and reported in-band.
func Apply[T any](ids []uint, op func(id uint) (T, error)) (Result[T], error) {
	result := Result[T]{
		Successes: make([]T, 0, len(ids)),
		Failures:  make([]Failure, 0),
	}

	if len(ids) == 0 {
		return result, apperror.New(apperror.Validation, "no target ids provided")
	}

	for _, id := range ids {
		item, err := op(id)
		if err != nil {
			result.Failures = append(result.Failures, Failure{ID: id, Reason: apperror.Classify(err).Message})
			continue
		}
		result.Successes = append(result.Successes, item)
	}

	return result, nil
}
