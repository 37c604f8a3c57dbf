package generator

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/nairav/amlscan/internal/domain"
)

// WriteLedger writes the dataset as a CSV ledger matching the ingest schema,
// sorted by timestamp the way a real exported ledger would be.
func WriteLedger(dataset Dataset, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	txs := append([]domain.Transaction(nil), dataset.Transactions...)
	sort.Slice(txs, func(i, j int) bool { return txs[i].Before(txs[j]) })

	writer := csv.NewWriter(file)
	header := []string{"transaction_id", "sender_account", "receiver_account", "amount", "timestamp", "payment_type"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, tx := range txs {
		row := []string{
			tx.ID,
			string(tx.Sender),
			string(tx.Receiver),
			tx.Amount.String(),
			tx.Timestamp.UTC().Format(time.RFC3339),
			tx.PaymentType,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row for %s: %w", tx.ID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}
