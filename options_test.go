package sevenzip

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyOptionsDefaults(t *testing.T) {
	t.Parallel()

	o := applyOptions()

	assert.Empty(t, o.password)
	assert.Equal(t, int64(defaultMemoryThreshold), o.memoryThreshold)
	assert.Equal(t, context.Background(), o.ctx)
}

func TestApplyOptionsOverride(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}

	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")

	o := applyOptions(
		WithPassword("hunter2"),
		WithMemoryThreshold(1024),
		WithContext(ctx),
	)

	assert.Equal(t, "hunter2", o.password)
	assert.Equal(t, int64(1024), o.memoryThreshold)
	assert.Equal(t, ctx, o.ctx)
}

func TestWithContextNilIgnored(t *testing.T) {
	t.Parallel()

	o := applyOptions(WithContext(nil)) //nolint:staticcheck

	assert.Equal(t, context.Background(), o.ctx)
}
