package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTypedError(t *testing.T) {
	original := New(Forbidden, "access denied")

	classified := Classify(original)
	assert.Same(t, original, classified)
	assert.Empty(t, classified.CorrelationID)
}

func TestClassifyWrappedTypedError(t *testing.T) {
	inner := New(NotFound, "event not found")
	wrapped := fmt.Errorf("loading: %w", inner)

	classified := Classify(wrapped)
	assert.Equal(t, NotFound, classified.Kind)
	assert.Equal(t, "event not found", classified.Message)
}

func TestClassifyUntypedError(t *testing.T) {
	classified := Classify(errors.New("pq: connection refused"))

	assert.Equal(t, Internal, classified.Kind)
	assert.Equal(t, "internal server error", classified.Message)
	require.NotEmpty(t, classified.CorrelationID, "internal errors must carry a correlation id")

	// Two classifications never share a correlation id
	other := Classify(errors.New("pq: connection refused"))
	assert.NotEqual(t, classified.CorrelationID, other.CorrelationID)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Wrap(Internal, "operation failed", cause)

	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "operation failed: root cause", wrapped.Error())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Validation, KindOf(New(Validation, "bad input")))
	assert.Equal(t, Internal, KindOf(errors.New("anything")))
	assert.True(t, IsKind(New(Conflict, "dup"), Conflict))
	assert.False(t, IsKind(New(Conflict, "dup"), NotFound))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		Unauthenticated: http.StatusUnauthorized,
		Forbidden:       http.StatusForbidden,
		Validation:      http.StatusBadRequest,
		NotFound:        http.StatusNotFound,
		Conflict:        http.StatusConflict,
		Internal:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus())
	}
}
