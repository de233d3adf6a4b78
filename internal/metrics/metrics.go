// Package metrics exposes runtime counters via expvar.
package metrics

import "expvar"

var (
	TicksTotal          = expvar.NewInt("ticks_total")
	FiresTotal          = expvar.NewInt("fires_total")
	FireErrors          = expvar.NewInt("fire_errors")
	ForcedBuilds        = expvar.NewInt("forced_builds")
	IntegrationsTotal   = expvar.NewInt("integrations_total")
	IntegrationsFailed  = expvar.NewInt("integrations_failed")
	RemotePollFailures  = expvar.NewInt("remote_poll_failures")
	BreakerTrips        = expvar.NewInt("breaker_trips")
	StatusPublishErrors = expvar.NewInt("status_publish_errors")
)
