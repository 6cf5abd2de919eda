package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureClassification(t *testing.T) {
	t.Run("unclassified errors are transient", func(t *testing.T) {
		err := errors.New("connection reset")
		assert.Equal(t, FailureTransient, KindOf(err))
		assert.False(t, IsFatal(err))
		assert.False(t, IsMalformed(err))
	})

	t.Run("classification survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("apply catalog.published: %w", MissingReference("article", "A9"))
		assert.True(t, IsFatal(err))
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "A9")
	})

	t.Run("malformed", func(t *testing.T) {
		err := Malformed(errors.New("bad json"))
		assert.True(t, IsMalformed(err))
		assert.Equal(t, "malformed", KindOf(err).String())
		assert.Nil(t, Malformed(nil))
	})

	t.Run("nil is neither fatal nor malformed", func(t *testing.T) {
		assert.False(t, IsFatal(nil))
		assert.False(t, IsMalformed(nil))
	})
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"event":"unit.upsert","data":{"code":"M2"}}`))
	assert.NoError(t, err)
	assert.Equal(t, "unit.upsert", env.Event)
	assert.JSONEq(t, `{"code":"M2"}`, string(env.Data))

	_, err = DecodeEnvelope([]byte(`not json`))
	assert.True(t, IsMalformed(err))

	_, err = DecodeEnvelope([]byte(`{"data":{}}`))
	assert.True(t, IsMalformed(err))
}
