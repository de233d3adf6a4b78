// Package provider defines where project status snapshots are published so
// other build servers can depend on them.
package provider

import (
	"context"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// StatusStore publishes and lists project status snapshots. A StatusStore is
// also a remote.Manager, so project triggers can poll it directly.
type StatusStore interface {
	PublishStatus(ctx context.Context, status types.ProjectStatus) error
	GetProjectStatus(ctx context.Context) ([]types.ProjectStatus, error)

	// Lifecycle
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Ping(ctx context.Context) error
}
