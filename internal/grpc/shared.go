package grpc

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const defaultFetchTimeout = 15 * time.Second

// shareResult runs fn once per key for all concurrent callers. The fetch is
// detached from the first caller's cancellation so a caller that gives up
// does not fail the others; each caller still stops waiting on its own ctx.
func shareResult[T any](
	ctx context.Context,
	sf *singleflight.Group,
	key string,
	logger *zap.Logger,
	fn FetchFunc[T],
) (T, error) {
	var zero T

	ch := sf.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultFetchTimeout)
		defer cancel()
		return fn(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		value, ok := res.Val.(T)
		if !ok {
			logger.Error("singleflight type mismatch", zap.String("key", key))
			return zero, fmt.Errorf("type mismatch for key %q", key)
		}
		if res.Shared {
			logger.Debug("singleflight shared result", zap.String("key", key))
		}
		return value, nil
	}
}
