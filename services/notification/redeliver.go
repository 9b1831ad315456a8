package notification

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const redeliverInterval = 30 * time.Second

// runRedelivery drains undispatched events at start-up and then
// periodically until the application stops. A NopSink never fails, so
// it only drains once at start-up.
func runRedelivery(lc fx.Lifecycle, svc *Service) {
	if _, ok := svc.sink.(NopSink); ok {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				for {
					n, err := svc.Redeliver(ctx)
					if err != nil {
						zap.L().Warn("event redelivery failed", zap.Error(err))
						return nil
					}
					if n == 0 {
						return nil
					}
				}
			},
		})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(redeliverInterval)
				defer ticker.Stop()

				for {
					if _, err := svc.Redeliver(ctx); err != nil && ctx.Err() == nil {
						zap.L().Warn("event redelivery failed", zap.Error(err))
					}
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
