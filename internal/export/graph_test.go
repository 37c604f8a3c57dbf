package export

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nairav/amlscan/internal/graphdb"
)

func TestGraphSinkExport(t *testing.T) {
	client := graphdb.NewMemoryClient()
	sink := NewGraphSink(client, nil)

	report := sampleReport()
	if err := sink.Export(context.Background(), report); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	calls := client.WriteCalls()
	if len(calls) != 4 {
		t.Fatalf("expected 2 hop writes and 2 membership writes, got %d", len(calls))
	}

	first := calls[0]
	if !strings.Contains(first.Query, "CYCLE_HOP") {
		t.Fatalf("expected first write to create a cycle hop, got %s", first.Query)
	}
	if first.Params["runId"] != "run-1" {
		t.Errorf("expected runId run-1, got %v", first.Params["runId"])
	}
	if first.Params["cycleId"] != "CYC-000001" || first.Params["hopIndex"] != 1 {
		t.Errorf("unexpected hop params: %v", first.Params)
	}
	if first.Params["amount"] != "100" {
		t.Errorf("expected amount 100, got %v", first.Params["amount"])
	}

	member := calls[2]
	if !strings.Contains(member.Query, "STRUCTURED_INTO") {
		t.Fatalf("expected third write to create a membership, got %s", member.Query)
	}
	if member.Params["groupId"] != "GRP-000001" || member.Params["receiver"] != "X" {
		t.Errorf("unexpected membership params: %v", member.Params)
	}
}

func TestGraphSinkExportPropagatesWriteError(t *testing.T) {
	writeErr := errors.New("session expired")
	client := graphdb.NewMemoryClient().WithError(writeErr)
	sink := NewGraphSink(client, nil)

	err := sink.Export(context.Background(), sampleReport())
	if !errors.Is(err, writeErr) {
		t.Fatalf("expected wrapped write error, got %v", err)
	}
}
