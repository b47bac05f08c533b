package pending

import (
	"context"

	"github.com/Abraxas-365/relay/pkg/kernel"
)

// Store keeps one pending intent and one redirect hint per device. Put
// overwrites. Get of an empty slot returns nil, nil and deleting an empty
// slot succeeds.
type Store interface {
	Put(ctx context.Context, device kernel.DeviceID, intent Intent) error
	Get(ctx context.Context, device kernel.DeviceID) (*Intent, error)
	Delete(ctx context.Context, device kernel.DeviceID) error

	PutRedirect(ctx context.Context, device kernel.DeviceID, target string) error
	// GetRedirect returns "" when no hint is stored.
	GetRedirect(ctx context.Context, device kernel.DeviceID) (string, error)
	DeleteRedirect(ctx context.Context, device kernel.DeviceID) error
}
