package services

import (
	"context"

	"github.com/shashiranjanraj/storefront/app/events"
)

// fire dispatches when a dispatcher is wired.
func fire(ctx context.Context, d events.Dispatcher, name string, payload any) {
	if d != nil {
		d.Fire(ctx, name, payload)
	}
}
