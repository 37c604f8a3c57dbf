package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nairav/amlscan/internal/domain"
	"github.com/nairav/amlscan/internal/graphdb"
)

// GraphSink pushes detection results into the graph database the dashboard
// reads from. Accounts are MERGEd so repeated runs stay idempotent on nodes;
// hop and membership relationships are keyed by run so separate runs remain
// distinguishable in the front end.
type GraphSink struct {
	client graphdb.Client
	logger *slog.Logger
}

// NewGraphSink constructs a GraphSink backed by the supplied client.
func NewGraphSink(client graphdb.Client, logger *slog.Logger) *GraphSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphSink{client: client, logger: logger}
}

const upsertCycleHopCypher = `
MERGE (s:Account {id: $sender})
MERGE (r:Account {id: $receiver})
CREATE (s)-[:CYCLE_HOP {
	runId: $runId,
	cycleId: $cycleId,
	hopIndex: $hopIndex,
	amount: $amount,
	timestamp: datetime($timestamp),
	paymentType: $paymentType
}]->(r)`

const upsertStructuringMemberCypher = `
MERGE (s:Account {id: $sender})
MERGE (r:Account {id: $receiver})
CREATE (s)-[:STRUCTURED_INTO {
	runId: $runId,
	groupId: $groupId,
	amount: $amount,
	windowStart: datetime($windowStart),
	windowEnd: datetime($windowEnd)
}]->(r)`

// Export writes every flagged hop and structuring membership of the report.
func (s *GraphSink) Export(ctx context.Context, report domain.Report) error {
	for _, hop := range report.CycleHops {
		params := map[string]any{
			"runId":       report.RunID,
			"cycleId":     hop.CycleID,
			"hopIndex":    hop.HopIndex,
			"sender":      string(hop.Sender),
			"receiver":    string(hop.Receiver),
			"amount":      hop.Amount.String(),
			"timestamp":   hop.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
			"paymentType": hop.PaymentType,
		}
		if err := s.client.ExecuteWrite(ctx, upsertCycleHopCypher, params); err != nil {
			return fmt.Errorf("export cycle hop %s/%d: %w", hop.CycleID, hop.HopIndex, err)
		}
	}

	for _, group := range report.Structuring {
		for _, tx := range group.Transactions {
			params := map[string]any{
				"runId":       report.RunID,
				"groupId":     group.GroupID,
				"sender":      string(tx.Sender),
				"receiver":    string(group.Receiver),
				"amount":      tx.Amount.String(),
				"windowStart": group.WindowStart.UTC().Format("2006-01-02T15:04:05Z"),
				"windowEnd":   group.WindowEnd.UTC().Format("2006-01-02T15:04:05Z"),
			}
			if err := s.client.ExecuteWrite(ctx, upsertStructuringMemberCypher, params); err != nil {
				return fmt.Errorf("export structuring member %s/%s: %w", group.GroupID, tx.ID, err)
			}
		}
	}

	s.logger.Info("exported detection results to graph sink",
		"run_id", report.RunID,
		"cycle_hops", len(report.CycleHops),
		"structuring_groups", len(report.Structuring))
	return nil
}
