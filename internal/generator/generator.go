// Package generator synthesises transaction ledgers with planted laundering
// patterns, for demos and detector testing against known ground truth.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nairav/amlscan/internal/domain"
)

var paymentTypes = []string{"credit_transfer", "debit_order", "cash_deposit", "cheque", "card_payment"}

// Dataset is a generated ledger plus its planted ground truth.
type Dataset struct {
	Transactions []domain.Transaction
	// PlantedCycleOrigins names the origin account of each planted cycle.
	PlantedCycleOrigins []domain.Account
	// PlantedRingReceivers names the receiver of each planted fan-in ring.
	PlantedRingReceivers []domain.Account
}

// Generator produces synthetic ledgers aligned with the ingest schema.
type Generator struct {
	cfg    Config
	rand   *rand.Rand
	nextID int
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumAccounts <= 0 {
		cfg.NumAccounts = def.NumAccounts
	}
	if cfg.NumBackground < 0 {
		cfg.NumBackground = def.NumBackground
	}
	if cfg.CycleLengthMin < 2 {
		cfg.CycleLengthMin = def.CycleLengthMin
	}
	if cfg.CycleLengthMax < cfg.CycleLengthMin {
		cfg.CycleLengthMax = cfg.CycleLengthMin
	}
	if cfg.RingSenders < 2 {
		cfg.RingSenders = def.RingSenders
	}
	if cfg.Start.IsZero() {
		cfg.Start = def.Start
	}
	if cfg.Span <= 0 {
		cfg.Span = def.Span
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Generate synthesises the ledger. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	var dataset Dataset

	for i := 0; i < g.cfg.NumBackground; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		dataset.Transactions = append(dataset.Transactions, g.backgroundTransfer())
	}

	for i := 0; i < g.cfg.NumCycles; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		origin, hops := g.plantCycle()
		dataset.PlantedCycleOrigins = append(dataset.PlantedCycleOrigins, origin)
		dataset.Transactions = append(dataset.Transactions, hops...)
	}

	for i := 0; i < g.cfg.NumStructuringRings; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		receiver, members := g.plantRing()
		dataset.PlantedRingReceivers = append(dataset.PlantedRingReceivers, receiver)
		dataset.Transactions = append(dataset.Transactions, members...)
	}

	return dataset, nil
}

func (g *Generator) backgroundTransfer() domain.Transaction {
	sender := g.account(g.rand.Intn(g.cfg.NumAccounts))
	receiver := g.account(g.rand.Intn(g.cfg.NumAccounts))
	for receiver == sender {
		receiver = g.account(g.rand.Intn(g.cfg.NumAccounts))
	}

	return domain.Transaction{
		ID:          g.transactionID(),
		Sender:      sender,
		Receiver:    receiver,
		Amount:      g.amount(50, 20_000),
		Timestamp:   g.timestamp(),
		PaymentType: paymentTypes[g.rand.Intn(len(paymentTypes))],
	}
}

// plantCycle writes a round-trip through fresh mule accounts: the amount
// drifts a few percent per hop and timestamps step strictly forward, so the
// loop satisfies the detector's causality and tolerance rules.
func (g *Generator) plantCycle() (domain.Account, []domain.Transaction) {
	length := g.cfg.CycleLengthMin
	if g.cfg.CycleLengthMax > g.cfg.CycleLengthMin {
		length += g.rand.Intn(g.cfg.CycleLengthMax - g.cfg.CycleLengthMin + 1)
	}

	accounts := make([]domain.Account, length)
	for i := range accounts {
		accounts[i] = g.muleAccount()
	}

	amount := g.amount(5_000, 50_000)
	ts := g.timestamp()
	hops := make([]domain.Transaction, 0, length)

	for i := 0; i < length; i++ {
		next := accounts[(i+1)%length]
		hops = append(hops, domain.Transaction{
			ID:          g.transactionID(),
			Sender:      accounts[i],
			Receiver:    next,
			Amount:      amount,
			Timestamp:   ts,
			PaymentType: "credit_transfer",
		})
		// Shave up to 3% per hop, mimicking mule fees.
		amount = amount.Mul(decimal.NewFromFloat(1 - g.rand.Float64()*0.03)).Round(2)
		ts = ts.Add(time.Duration(1+g.rand.Intn(48)) * time.Hour)
	}

	return accounts[0], hops
}

// plantRing fans RingSenders below-threshold transfers into one receiver
// inside a tight window.
func (g *Generator) plantRing() (domain.Account, []domain.Transaction) {
	receiver := g.muleAccount()
	start := g.timestamp()
	members := make([]domain.Transaction, 0, g.cfg.RingSenders)

	for i := 0; i < g.cfg.RingSenders; i++ {
		members = append(members, domain.Transaction{
			ID:          g.transactionID(),
			Sender:      g.muleAccount(),
			Receiver:    receiver,
			Amount:      g.amount(500, 9_500),
			Timestamp:   start.Add(time.Duration(g.rand.Intn(120)) * time.Minute),
			PaymentType: "cash_deposit",
		})
	}

	return receiver, members
}

func (g *Generator) account(n int) domain.Account {
	return domain.Account(fmt.Sprintf("ACC-%05d", n+1))
}

// muleAccount allocates an account outside the background pool so planted
// patterns never collide with noise edges.
func (g *Generator) muleAccount() domain.Account {
	g.nextID++
	return domain.Account(fmt.Sprintf("MULE-%05d", g.nextID))
}

func (g *Generator) transactionID() string {
	g.nextID++
	return fmt.Sprintf("TXN-%07d", g.nextID)
}

func (g *Generator) amount(min, max int) decimal.Decimal {
	cents := min*100 + g.rand.Intn((max-min)*100)
	return decimal.New(int64(cents), -2)
}

func (g *Generator) timestamp() time.Time {
	offset := time.Duration(g.rand.Int63n(int64(g.cfg.Span)))
	return g.cfg.Start.Add(offset).Truncate(time.Second)
}
