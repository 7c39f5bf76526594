package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := Clone(ErrNotFound, "pitch not found")
	assert.True(t, stderrors.Is(err, ErrNotFound))
	assert.False(t, stderrors.Is(err, ErrConstraint))
	assert.Equal(t, "pitch not found", err.Error())
}

func TestWrapAsKeepsCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := fmt.Errorf("insert pitch: %w", WrapAs(ErrConstraint, cause, ""))

	assert.True(t, stderrors.Is(err, ErrConstraint))
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, http.StatusConflict, FromError(err).Status)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(fmt.Errorf("unexpected"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Nil(t, FromError(nil))
}
