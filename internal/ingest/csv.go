// Package ingest reads normalized transaction records from CSV ledgers. It is
// the validation boundary: anything that fails here is skipped and counted,
// never propagated into the detectors.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nairav/amlscan/internal/domain"
)

// Required ledger columns, matched by header name. Additional columns are
// ignored.
const (
	colTransactionID = "transaction_id"
	colSender        = "sender_account"
	colReceiver      = "receiver_account"
	colAmount        = "amount"
	colTimestamp     = "timestamp"
	colPaymentType   = "payment_type"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Result carries parsed records plus the data-quality tally of the read.
type Result struct {
	Transactions []domain.Transaction
	// Skipped counts records dropped for schema violations.
	Skipped int
	// SchemaErrors holds one error per skipped record, capped at
	// maxReportedErrors to keep pathological files from ballooning memory.
	SchemaErrors []error
}

const maxReportedErrors = 100

// ReadFile parses a CSV ledger from disk.
func ReadFile(path string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open ledger %s: %w", path, err)
	}
	defer file.Close()
	return Read(file)
}

// Read parses a CSV ledger. The first row must be a header naming the
// required columns; malformed data rows are skipped and counted.
func Read(r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read ledger header: %w", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return Result{}, err
	}

	var result Result
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.skip(&domain.SchemaError{Record: fmt.Sprintf("line %d", line), Field: "row", Reason: err.Error()})
			continue
		}

		tx, err := parseRecord(cols, record, line)
		if err != nil {
			result.skip(err)
			continue
		}
		result.Transactions = append(result.Transactions, tx)
	}

	return result, nil
}

func (r *Result) skip(err error) {
	r.Skipped++
	if len(r.SchemaErrors) < maxReportedErrors {
		r.SchemaErrors = append(r.SchemaErrors, err)
	}
}

type columnIndex struct {
	id, sender, receiver, amount, timestamp, paymentType int
}

func mapColumns(header []string) (columnIndex, error) {
	idx := columnIndex{id: -1, sender: -1, receiver: -1, amount: -1, timestamp: -1, paymentType: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case colTransactionID:
			idx.id = i
		case colSender:
			idx.sender = i
		case colReceiver:
			idx.receiver = i
		case colAmount:
			idx.amount = i
		case colTimestamp:
			idx.timestamp = i
		case colPaymentType:
			idx.paymentType = i
		}
	}

	missing := []string{}
	for _, col := range []struct {
		name string
		pos  int
	}{
		{colTransactionID, idx.id},
		{colSender, idx.sender},
		{colReceiver, idx.receiver},
		{colAmount, idx.amount},
		{colTimestamp, idx.timestamp},
	} {
		if col.pos < 0 {
			missing = append(missing, col.name)
		}
	}
	if len(missing) > 0 {
		return columnIndex{}, fmt.Errorf("ledger header missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func parseRecord(cols columnIndex, record []string, line int) (domain.Transaction, error) {
	ref := fmt.Sprintf("line %d", line)

	field := func(pos int) string {
		if pos < 0 || pos >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[pos])
	}

	id := field(cols.id)
	if id == "" {
		return domain.Transaction{}, &domain.SchemaError{Record: ref, Field: colTransactionID, Reason: "missing"}
	}

	sender := field(cols.sender)
	if sender == "" {
		return domain.Transaction{}, &domain.SchemaError{Record: id, Field: colSender, Reason: "missing"}
	}

	receiver := field(cols.receiver)
	if receiver == "" {
		return domain.Transaction{}, &domain.SchemaError{Record: id, Field: colReceiver, Reason: "missing"}
	}

	amountRaw := field(cols.amount)
	amount, err := decimal.NewFromString(amountRaw)
	if err != nil {
		return domain.Transaction{}, &domain.SchemaError{Record: id, Field: colAmount, Reason: fmt.Sprintf("unparseable %q", amountRaw)}
	}
	if amount.Sign() < 0 {
		return domain.Transaction{}, &domain.SchemaError{Record: id, Field: colAmount, Reason: "negative"}
	}

	tsRaw := field(cols.timestamp)
	ts, err := parseTimestamp(tsRaw)
	if err != nil {
		return domain.Transaction{}, &domain.SchemaError{Record: id, Field: colTimestamp, Reason: fmt.Sprintf("unparseable %q", tsRaw)}
	}

	return domain.Transaction{
		ID:          id,
		Sender:      domain.Account(sender),
		Receiver:    domain.Account(receiver),
		Amount:      amount,
		Timestamp:   ts,
		PaymentType: field(cols.paymentType),
	}, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("no known layout matches %q", raw)
}
