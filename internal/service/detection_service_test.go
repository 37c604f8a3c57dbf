package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nairav/amlscan/internal/config"
	"github.com/nairav/amlscan/internal/domain"
	"github.com/nairav/amlscan/internal/graph"
)

var base = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

func tx(id string, sender, receiver domain.Account, amount int64, ts time.Time) domain.Transaction {
	return domain.Transaction{
		ID:          id,
		Sender:      sender,
		Receiver:    receiver,
		Amount:      decimal.NewFromInt(amount),
		Timestamp:   ts,
		PaymentType: "transfer",
	}
}

func testDetectionConfig() config.DetectionConfig {
	return config.DetectionConfig{
		MaxHops:            6,
		AmountTolerancePct: 0.20,
		ExplorationCap:     10000,
		Workers:            2,
	}
}

func testStructuringConfig() config.StructuringConfig {
	return config.StructuringConfig{
		MinSenders:     3,
		WindowDuration: 24 * time.Hour,
		MaxPerTxn:      decimal.NewFromInt(1000),
		MinAggregate:   decimal.NewFromInt(2000),
	}
}

// testLedger contains one laundering cycle and one fan-in ring alongside a
// handful of ordinary transfers.
func testLedger() []domain.Transaction {
	txs := []domain.Transaction{
		// Cycle A -> B -> C -> A with small per-hop shaving.
		tx("C1", "A", "B", 1000, base),
		tx("C2", "B", "C", 950, base.Add(time.Hour)),
		tx("C3", "C", "A", 920, base.Add(2*time.Hour)),
		// Background noise.
		tx("N1", "D", "E", 5000, base),
		tx("N2", "E", "F", 42, base.Add(30*time.Minute)),
	}
	// Fan-in ring: three senders deposit below the per-transaction cap into X
	// within one window.
	for i, sender := range []domain.Account{"S1", "S2", "S3"} {
		txs = append(txs, tx("R"+string(sender), sender, "X", 900, base.Add(time.Duration(i)*time.Hour)))
	}
	return txs
}

func buildService(t *testing.T, txs []domain.Transaction) *DetectionService {
	t.Helper()
	g, err := graph.Build(txs, graph.BuildOptions{})
	if err != nil {
		t.Fatalf("building graph: %v", err)
	}
	return NewDetectionService(g, 0, testDetectionConfig(), testStructuringConfig(), nil)
}

func TestRunFindsCyclesAndStructuring(t *testing.T) {
	svc := buildService(t, testLedger())

	report, err := svc.Run(context.Background(), RunParams{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if report.RunID == "" {
		t.Error("expected a run id")
	}
	if len(report.Cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(report.Cycles))
	}
	cycle := report.Cycles[0]
	if cycle.CycleID != "CYC-000001" || cycle.HopCount != 3 {
		t.Errorf("unexpected cycle summary: %+v", cycle)
	}
	if len(report.CycleHops) != 3 {
		t.Errorf("expected 3 flattened hops, got %d", len(report.CycleHops))
	}

	if len(report.Structuring) != 1 {
		t.Fatalf("expected 1 structuring group, got %d", len(report.Structuring))
	}
	group := report.Structuring[0]
	if group.Receiver != "X" || group.DistinctSenders() != 3 {
		t.Errorf("unexpected group: %+v", group)
	}
	if !group.TotalAmount.Equal(decimal.NewFromInt(2700)) {
		t.Errorf("expected aggregate 2700, got %s", group.TotalAmount)
	}
	if len(report.StructuringStats) != 1 {
		t.Errorf("expected 1 summary row, got %d", len(report.StructuringStats))
	}

	if report.Accounts != 10 {
		t.Errorf("expected 10 accounts, got %d", report.Accounts)
	}
	if report.Transactions != 8 {
		t.Errorf("expected 8 transactions, got %d", report.Transactions)
	}
}

func TestRunRejectsInvalidOverrides(t *testing.T) {
	svc := buildService(t, testLedger())

	badHops := 1
	_, err := svc.Run(context.Background(), RunParams{MaxHops: &badHops})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}

	badTol := 1.5
	_, err = svc.Run(context.Background(), RunParams{TolerancePct: &badTol})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}

	badSenders := 1
	_, err = svc.Run(context.Background(), RunParams{MinSenders: &badSenders})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}

	_, err = svc.Run(context.Background(), RunParams{Ranking: "bogus"})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions for unknown rank policy, got %v", err)
	}
}

func TestRunOverridesTightenThresholds(t *testing.T) {
	svc := buildService(t, testLedger())

	// A 2% tolerance rejects the 8% round-trip drift of the planted cycle.
	tightTol := 0.02
	report, err := svc.Run(context.Background(), RunParams{TolerancePct: &tightTol})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(report.Cycles) != 0 {
		t.Errorf("expected tightened tolerance to reject the cycle, got %d", len(report.Cycles))
	}

	// Raising the sender floor above the ring size suppresses the group.
	manySenders := 5
	report, err = svc.Run(context.Background(), RunParams{MinSenders: &manySenders})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(report.Structuring) != 0 {
		t.Errorf("expected raised sender floor to suppress the group, got %d", len(report.Structuring))
	}
}

func TestRunHonorsClock(t *testing.T) {
	svc := buildService(t, testLedger())

	calls := 0
	svc.WithClock(func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	})

	report, err := svc.Run(context.Background(), RunParams{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !report.GeneratedAt.Equal(base.Add(time.Second)) {
		t.Errorf("expected GeneratedAt from injected clock, got %v", report.GeneratedAt)
	}
	if report.Duration != time.Second {
		t.Errorf("expected 1s duration, got %v", report.Duration)
	}
}

func TestGraphStats(t *testing.T) {
	g, err := graph.Build(testLedger(), graph.BuildOptions{})
	if err != nil {
		t.Fatalf("building graph: %v", err)
	}
	svc := NewDetectionService(g, 2, testDetectionConfig(), testStructuringConfig(), nil)

	accounts, transactions, skipped := svc.GraphStats()
	if accounts != 10 || transactions != 8 {
		t.Errorf("unexpected dimensions: %d accounts, %d transactions", accounts, transactions)
	}
	if skipped != 2 {
		t.Errorf("expected ingest skips carried through, got %d", skipped)
	}
}
