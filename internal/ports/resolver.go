package ports

import (
	"context"

	"github.com/architeacher/svc-health-messenger/internal/domain"
)

type (
	// AddressResolver answers which broker queue serves a party for a given
	// queue type. Implemented by the external address registry client.
	AddressResolver interface {
		ResolveQueue(ctx context.Context, herID domain.HerID, queueType domain.QueueType) (string, error)
	}

	// ProfileResolver fetches the collaboration protocol agreement negotiated
	// between two parties for a message function.
	ProfileResolver interface {
		ResolveProfile(ctx context.Context, fromHerID, toHerID domain.HerID, messageFunction string) (domain.CollaborationProfile, error)
	}
)
