package server

import (
	"context"

	"github.com/nairav/amlscan/internal/graphdb"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// SinkHealthService verifies graph-sink connectivity as part of health
// checks. A nil client means no sink is configured and the probe passes.
type SinkHealthService struct {
	Client graphdb.Client
}

// Probe implements the HealthService interface.
func (s SinkHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.VerifyConnectivity(ctx)
}
