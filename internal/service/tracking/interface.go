package tracking

import (
	"context"

	"github.com/Temutjin2k/tracking-relay/internal/domain/models"
	"github.com/Temutjin2k/tracking-relay/internal/domain/types"
)

type (
	// Sender delivers one named event to one connection. Implementations must not
	// block: a send that cannot be queued is dropped and reported as an error.
	Sender interface {
		Send(event string, data any) error
	}

	// ConnLookup resolves a connection id to its live Sender.
	ConnLookup interface {
		Conn(connID string) (Sender, bool)
	}

	// Mirror receives a copy of every broadcast. Publish must not block.
	Mirror interface {
		Publish(ctx context.Context, event types.EventName, bookingID models.ID, payload any)
	}
)
