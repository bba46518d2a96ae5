// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package fanout_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/petenewcomb/crtpower-go/internal/fanout"
)

func TestPoolDeliversInIndexOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		ctx := context.Background()

		n := rapid.IntRange(1, 50).Draw(t, "n")
		workers := rapid.IntRange(1, 8).Draw(t, "workers")
		delays := rapid.SliceOfN(rapid.IntRange(0, 3), n, n).Draw(t, "delays")

		pool := fanout.New[int](ctx, workers)
		defer pool.Close()

		go func() {
			for i := range n {
				_ = pool.Launch(ctx, i, func(context.Context) (int, error) {
					time.Sleep(time.Duration(delays[i]) * time.Millisecond)
					return i * i, nil
				})
			}
		}()

		for want := range n {
			index, value, err := pool.Next(ctx)
			chk.NoError(err)
			chk.Equal(want, index)
			chk.Equal(want*want, value)
		}
	})
}

func TestPoolLimitsConcurrency(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()

	const workers = 3
	var running, peak atomic.Int64

	pool := fanout.New[struct{}](ctx, workers)
	defer pool.Close()

	go func() {
		for i := range 20 {
			_ = pool.Launch(ctx, i, func(context.Context) (struct{}, error) {
				now := running.Add(1)
				for {
					old := peak.Load()
					if now <= old || peak.CompareAndSwap(old, now) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				running.Add(-1)
				return struct{}{}, nil
			})
		}
	}()

	for range 20 {
		_, _, err := pool.Next(ctx)
		chk.NoError(err)
	}
	chk.LessOrEqual(peak.Load(), int64(workers))
}

func TestPoolPassesTaskErrorThrough(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()

	pool := fanout.New[int](ctx, 2)
	defer pool.Close()

	boom := context.DeadlineExceeded // any sentinel will do
	chk.NoError(pool.Launch(ctx, 0, func(context.Context) (int, error) {
		return 0, boom
	}))
	_, _, err := pool.Next(ctx)
	chk.ErrorIs(err, boom)
}

func TestPoolCloseOnEarlyExit(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()

	pool := fanout.New[int](ctx, 2)

	started := make(chan struct{}, 16)
	launcherDone := make(chan struct{})
	go func() {
		defer close(launcherDone)
		for i := range 100 {
			if err := pool.Launch(ctx, i, func(taskCtx context.Context) (int, error) {
				started <- struct{}{}
				<-taskCtx.Done()
				return 0, taskCtx.Err()
			}); err != nil {
				return
			}
		}
	}()

	<-started
	// Abandon the remaining work, as the orchestrator does on a policy
	// abort. Close must cancel in-flight tasks and unblock the launcher.
	pool.Close()
	select {
	case <-launcherDone:
	case <-time.After(5 * time.Second):
		chk.Fail("launcher did not exit after Close")
	}
	pool.Close() // second Close is a no-op
}

func TestPoolNextHonorsContext(t *testing.T) {
	chk := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())

	pool := fanout.New[int](ctx, 1)
	defer pool.Close()

	cancel()
	_, _, err := pool.Next(ctx)
	chk.ErrorIs(err, context.Canceled)
}
