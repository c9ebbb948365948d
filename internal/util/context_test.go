package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContextWithStartTime(t *testing.T) {
	t.Parallel()

	now := time.Now()
	ctx := ContextWithStartTime(context.Background(), now)

	assert.Equal(t, now, StartTimeFromContext(ctx))
	assert.True(t, StartTimeFromContext(context.Background()).IsZero())
}

func TestRouteHolder(t *testing.T) {
	t.Parallel()

	ctx, holder := ContextWithRouteHolder(context.Background())
	assert.Empty(t, RouteFromContext(ctx))

	SetRoute(ctx, "user-service")

	assert.Equal(t, "user-service", holder.Name)
	assert.Equal(t, "user-service", RouteFromContext(ctx))
}

func TestSetRoute_WithoutHolder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	SetRoute(ctx, "ignored")

	assert.Empty(t, RouteFromContext(ctx))
}

func TestClientIPContext(t *testing.T) {
	t.Parallel()

	ctx := ContextWithClientIP(context.Background(), "192.168.1.1")

	assert.Equal(t, "192.168.1.1", ClientIPFromContext(ctx))
	assert.Empty(t, ClientIPFromContext(context.Background()))
}

func TestElapsedTime(t *testing.T) {
	t.Parallel()

	assert.Zero(t, ElapsedTime(context.Background()))

	ctx := ContextWithStartTime(context.Background(), time.Now().Add(-50*time.Millisecond))
	assert.GreaterOrEqual(t, ElapsedTime(ctx), 50*time.Millisecond)
}
