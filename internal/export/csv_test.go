package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nairav/amlscan/internal/domain"
)

var base = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

func sampleReport() domain.Report {
	group := domain.StructuringGroup{
		GroupID:     "GRP-000001",
		Receiver:    "X",
		WindowStart: base,
		WindowEnd:   base.Add(time.Hour),
		Senders:     []domain.Account{"S1", "S2"},
		Transactions: []domain.Transaction{
			{ID: "T10", Sender: "S1", Receiver: "X", Amount: decimal.NewFromInt(900), Timestamp: base, PaymentType: "cash_deposit"},
			{ID: "T11", Sender: "S2", Receiver: "X", Amount: decimal.NewFromInt(850), Timestamp: base.Add(time.Hour), PaymentType: "cash_deposit"},
		},
		TotalAmount: decimal.NewFromInt(1750),
	}

	return domain.Report{
		RunID: "run-1",
		CycleHops: []domain.FlattenedHop{
			{CycleID: "CYC-000001", HopIndex: 1, HopCount: 2, Sender: "A", Receiver: "B", Amount: decimal.NewFromInt(100), Timestamp: base, PaymentType: "transfer"},
			{CycleID: "CYC-000001", HopIndex: 2, HopCount: 2, Sender: "B", Receiver: "A", Amount: decimal.NewFromInt(95), Timestamp: base.Add(time.Hour), PaymentType: "transfer"},
		},
		Structuring:      []domain.StructuringGroup{group},
		StructuringStats: []domain.StructuringSummary{group.Summary()},
	}
}

func TestWriteCycleHops(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCycleHops(&buf, sampleReport().CycleHops); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "cycle_id" || rows[0][5] != "amount" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "CYC-000001" || rows[1][1] != "1" || rows[1][3] != "A" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if rows[1][6] != "2024-03-01T09:00:00Z" {
		t.Fatalf("expected RFC3339 timestamp, got %s", rows[1][6])
	}
}

func TestWriteStructuringTables(t *testing.T) {
	report := sampleReport()

	var drill bytes.Buffer
	if err := WriteStructuringDrilldown(&drill, report.Structuring); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	rows, err := csv.NewReader(&drill).ReadAll()
	if err != nil {
		t.Fatalf("drilldown is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus one row per member, got %d rows", len(rows))
	}
	if rows[1][0] != "GRP-000001" || rows[1][4] != "S1" || rows[1][5] != "900" {
		t.Fatalf("unexpected drilldown row: %v", rows[1])
	}

	var summary bytes.Buffer
	if err := WriteStructuringSummary(&summary, report.StructuringStats); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	rows, err = csv.NewReader(&summary).ReadAll()
	if err != nil {
		t.Fatalf("summary is not valid CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus 1 row, got %d", len(rows))
	}
	if rows[1][2] != "2" || rows[1][3] != "1750" {
		t.Fatalf("unexpected summary row: %v", rows[1])
	}
}

func TestWriteReportFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	if err := WriteReportFiles(sampleReport(), dir); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, name := range []string{"cycles.csv", "structuring.csv", "structuring_summary.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}
}
