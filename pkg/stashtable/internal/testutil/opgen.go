package testutil

import (
	"fmt"
	"math/rand/v2"
)

// OpGenConfig configures the operation generator. The rates are relative
// weights; they need not sum to 100.
type OpGenConfig struct {
	// InsertRate is the weight of Insert ops.
	InsertRate int

	// UpsertRate is the weight of Upsert ops.
	UpsertRate int

	// SetRate is the weight of Set ops.
	SetRate int

	// DeleteRate is the weight of Delete ops.
	DeleteRate int

	// FindRate is the weight of FindIndex ops.
	FindRate int

	// LenRate is the weight of Len ops.
	LenRate int

	// ClearRate is the weight of Clear ops. Keep this small; every Clear
	// resets the interesting allocation history.
	ClearRate int

	// KeySpace is the number of distinct keys ops draw from. Sizing it
	// near or above the table capacity exercises capacity refusal.
	KeySpace int
}

// DefaultOpGenConfig returns a balanced configuration that hits the
// deletion stack, frontier retreat and capacity refusal paths.
func DefaultOpGenConfig() OpGenConfig {
	return OpGenConfig{
		InsertRate: 25,
		UpsertRate: 15,
		SetRate:    10,
		DeleteRate: 25,
		FindRate:   15,
		LenRate:    8,
		ClearRate:  2,
		KeySpace:   48,
	}
}

// OpGenerator produces a deterministic op stream from a seed.
type OpGenerator struct {
	cfg OpGenConfig
	rng *rand.Rand
}

// NewOpGenerator returns a generator for the given seed and config.
func NewOpGenerator(seed uint64, cfg OpGenConfig) *OpGenerator {
	if cfg.KeySpace <= 0 {
		panic("testutil: KeySpace must be positive")
	}

	return &OpGenerator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next returns the next operation.
func (g *OpGenerator) Next() Op {
	total := g.cfg.InsertRate + g.cfg.UpsertRate + g.cfg.SetRate +
		g.cfg.DeleteRate + g.cfg.FindRate + g.cfg.LenRate + g.cfg.ClearRate

	n := g.rng.IntN(total)

	key := fmt.Sprintf("k%03d", g.rng.IntN(g.cfg.KeySpace))
	value := g.rng.IntN(1 << 20)

	switch {
	case n < g.cfg.InsertRate:
		return Op{Kind: OpInsert, Key: key, Value: value}
	case n < g.cfg.InsertRate+g.cfg.UpsertRate:
		return Op{Kind: OpUpsert, Key: key, Value: value}
	case n < g.cfg.InsertRate+g.cfg.UpsertRate+g.cfg.SetRate:
		return Op{Kind: OpSet, Key: key, Value: value}
	case n < g.cfg.InsertRate+g.cfg.UpsertRate+g.cfg.SetRate+g.cfg.DeleteRate:
		return Op{Kind: OpDelete, Key: key}
	case n < g.cfg.InsertRate+g.cfg.UpsertRate+g.cfg.SetRate+g.cfg.DeleteRate+g.cfg.FindRate:
		return Op{Kind: OpFind, Key: key}
	case n < g.cfg.InsertRate+g.cfg.UpsertRate+g.cfg.SetRate+g.cfg.DeleteRate+g.cfg.FindRate+g.cfg.LenRate:
		return Op{Kind: OpLen}
	default:
		return Op{Kind: OpClear}
	}
}
