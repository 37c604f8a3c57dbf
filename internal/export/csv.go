// Package export writes detection results for downstream consumers: flat CSV
// tables for the analytics store and an optional graph-database sink for the
// visualization front end.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nairav/amlscan/internal/domain"
)

const (
	cyclesFile             = "cycles.csv"
	structuringFile        = "structuring.csv"
	structuringSummaryFile = "structuring_summary.csv"
)

// WriteReportFiles writes the three output tables of a run under dir,
// creating it if needed.
func WriteReportFiles(report domain.Report, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := writeFile(filepath.Join(dir, cyclesFile), func(w io.Writer) error {
		return WriteCycleHops(w, report.CycleHops)
	}); err != nil {
		return err
	}

	if err := writeFile(filepath.Join(dir, structuringFile), func(w io.Writer) error {
		return WriteStructuringDrilldown(w, report.Structuring)
	}); err != nil {
		return err
	}

	return writeFile(filepath.Join(dir, structuringSummaryFile), func(w io.Writer) error {
		return WriteStructuringSummary(w, report.StructuringStats)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	if err := write(file); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteCycleHops writes the cycles table, one row per hop.
func WriteCycleHops(w io.Writer, hops []domain.FlattenedHop) error {
	cw := csv.NewWriter(w)
	header := []string{"cycle_id", "hop_index", "hop_count", "sender", "receiver", "amount", "timestamp", "payment_type"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, hop := range hops {
		row := []string{
			hop.CycleID,
			strconv.Itoa(hop.HopIndex),
			strconv.Itoa(hop.HopCount),
			string(hop.Sender),
			string(hop.Receiver),
			hop.Amount.String(),
			hop.Timestamp.UTC().Format(time.RFC3339),
			hop.PaymentType,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteStructuringDrilldown writes the structuring table at member-transaction
// granularity.
func WriteStructuringDrilldown(w io.Writer, groups []domain.StructuringGroup) error {
	cw := csv.NewWriter(w)
	header := []string{"group_id", "receiver", "window_start", "window_end", "sender", "amount", "payment_type"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, group := range groups {
		for _, tx := range group.Transactions {
			row := []string{
				group.GroupID,
				string(group.Receiver),
				group.WindowStart.UTC().Format(time.RFC3339),
				group.WindowEnd.UTC().Format(time.RFC3339),
				string(tx.Sender),
				tx.Amount.String(),
				tx.PaymentType,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteStructuringSummary writes one row per structuring group.
func WriteStructuringSummary(w io.Writer, summaries []domain.StructuringSummary) error {
	cw := csv.NewWriter(w)
	header := []string{"group_id", "receiver", "distinct_senders", "total_amount", "window_start", "window_end"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, s := range summaries {
		row := []string{
			s.GroupID,
			string(s.Receiver),
			strconv.Itoa(s.DistinctSenders),
			s.TotalAmount.String(),
			s.WindowStart.UTC().Format(time.RFC3339),
			s.WindowEnd.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
