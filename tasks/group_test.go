package tasks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGoRunsEveryTask(t *testing.T) {
	g := New(context.Background(), 0, nil)
	var n atomic.Int32
	for i := 0; i < 50; i++ {
		require.True(t, g.Go("count", func(context.Context) { n.Add(1) }))
	}
	g.Wait()
	assert.Equal(t, int32(50), n.Load())
}

func TestLimitRejectsInsteadOfBlocking(t *testing.T) {
	g := New(context.Background(), 1, nil)
	release := make(chan struct{})
	require.True(t, g.Go("blocker", func(context.Context) { <-release }))

	started := time.Now()
	assert.False(t, g.Go("second", func(context.Context) {}))
	assert.Less(t, time.Since(started), 100*time.Millisecond)

	close(release)
	g.Wait()
	assert.True(t, g.Go("after", func(context.Context) {}))
	g.Wait()
}

func TestCloseCancelsAndJoins(t *testing.T) {
	g := New(context.Background(), 0, nil)
	var cancelled atomic.Bool
	g.Go("waiter", func(ctx context.Context) {
		<-ctx.Done()
		cancelled.Store(true)
	})
	g.Close()
	assert.True(t, cancelled.Load())
	assert.False(t, g.Go("late", func(context.Context) {}), "closed group must refuse work")
}

func TestPanicIsContained(t *testing.T) {
	g := New(context.Background(), 0, nil)
	var after atomic.Bool
	g.Go("boom", func(context.Context) { panic("boom") })
	g.Go("fine", func(context.Context) { after.Store(true) })
	g.Wait()
	assert.True(t, after.Load())
}

func TestNestedSpawnWhileWaiting(t *testing.T) {
	g := New(context.Background(), 0, nil)
	var n atomic.Int32
	g.Go("parent", func(context.Context) {
		time.Sleep(10 * time.Millisecond)
		for i := 0; i < 3; i++ {
			g.Go("child", func(context.Context) { n.Add(1) })
		}
	})
	g.Wait()
	assert.Equal(t, int32(3), n.Load())
}
