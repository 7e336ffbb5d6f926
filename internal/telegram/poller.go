// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package telegram

import (
	"context"
	"errors"
	"time"
)

// Handler processes a single incoming update.
type Handler func(ctx context.Context, u Update)

// Poller fetches updates with the getUpdates method and dispatches them to a
// handler.
type Poller struct {
	// Client is the API client used for polling. Required.
	Client *Client
	// Handle is called for each received update. Required.
	Handle Handler
	// Timeout is the long polling timeout. If zero, 30 seconds.
	Timeout time.Duration
	// ErrorCooldown is how long to wait after a failed getUpdates before
	// retrying. If zero, 5 seconds.
	ErrorCooldown time.Duration
}

func (p *Poller) timeout() time.Duration {
	if p.Timeout != 0 {
		return p.Timeout
	}
	return 30 * time.Second
}

func (p *Poller) errorCooldown() time.Duration {
	if p.ErrorCooldown != 0 {
		return p.ErrorCooldown
	}
	return 5 * time.Second
}

// Run polls for updates until ctx is canceled. It removes any webhook first
// because getUpdates doesn't work while one is set.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Client.DeleteWebhook(ctx); err != nil {
		return err
	}

	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := Call[[]Update](ctx, p.Client, "getUpdates", map[string]any{
			"offset":          offset,
			"timeout":         int(p.timeout().Seconds()),
			"allowed_updates": []string{"message", "callback_query"},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			p.Client.logf("telegram: getUpdates failed: %v", err)
			if !p.Client.doSleep(ctx, p.errorCooldown()) {
				return ctx.Err()
			}
			continue
		}

		for _, u := range updates {
			if u.ID >= offset {
				offset = u.ID + 1
			}
			p.Handle(ctx, u)
		}
	}
}
