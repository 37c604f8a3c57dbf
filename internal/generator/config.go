package generator

import "time"

// Config controls the shape of a synthetic ledger.
type Config struct {
	// NumAccounts is the size of the account pool background transfers are
	// drawn from.
	NumAccounts int
	// NumBackground is the number of ordinary transfers generated as noise.
	NumBackground int
	// NumCycles is the number of laundering cycles planted in the ledger.
	NumCycles int
	// CycleLengthMin and CycleLengthMax bound the hop count of planted
	// cycles, closing hop included.
	CycleLengthMin int
	CycleLengthMax int
	// NumStructuringRings is the number of fan-in rings planted.
	NumStructuringRings int
	// RingSenders is the number of distinct senders per planted ring.
	RingSenders int
	// Start and Span bound every generated timestamp.
	Start time.Time
	Span  time.Duration
	// Seed fixes the random stream; zero picks a time-based seed.
	Seed int64
}

// DefaultConfig returns the generation defaults used by cmd/datagen.
func DefaultConfig() Config {
	return Config{
		NumAccounts:         500,
		NumBackground:       5000,
		NumCycles:           5,
		CycleLengthMin:      3,
		CycleLengthMax:      6,
		NumStructuringRings: 3,
		RingSenders:         15,
		Start:               time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Span:                90 * 24 * time.Hour,
	}
}
