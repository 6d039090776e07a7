package ledger

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/perkspoint/perkspoint-backend/pkg/db/models"
	"github.com/perkspoint/perkspoint-backend/pkg/enums"
)

// BalanceSnapshot is the derived 4-tuple of balances at a point in the replay
// order. It is never persisted; lifetime topup alone has a cached projection.
type BalanceSnapshot struct {
	Wallet        decimal.Decimal `json:"wallet_balance"`
	Bonus         decimal.Decimal `json:"bonus_balance"`
	Stars         decimal.Decimal `json:"stars_balance"`
	LifetimeTopup decimal.Decimal `json:"lifetime_topup"`
}

// UnifiedTransaction is a read-only projection row: the originating event plus
// the running snapshot immediately after it and the signed delta it
// contributed to each ledger.
type UnifiedTransaction struct {
	EventID      uuid.UUID                `json:"event_id"`
	Source       enums.EventSource        `json:"source"`
	Type         string                   `json:"type"`
	Status       *enums.WalletEventStatus `json:"status,omitempty"`
	Amount       decimal.Decimal          `json:"amount"`
	WalletDelta  decimal.Decimal          `json:"wallet_delta"`
	BonusDelta   decimal.Decimal          `json:"bonus_delta"`
	StarsDelta   decimal.Decimal          `json:"stars_delta"`
	BalanceAfter BalanceSnapshot          `json:"balance_after"`
	Metadata     json.RawMessage          `json:"metadata,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	seq          int64
}

// MasterBalances is the replay output: terminal balances, the unified history
// newest-first, and the number of events folded.
type MasterBalances struct {
	UserID             uuid.UUID            `json:"user_id"`
	Balances           BalanceSnapshot      `json:"balances"`
	TransactionHistory []UnifiedTransaction `json:"transaction_history"`
	EventCount         int                  `json:"event_count"`
}

// replayLedgers folds the three logs into balances and a unified history. It
// is pure: same inputs always produce identical output. Wallet events only
// contribute when their status is success; bonus and stars events always do.
//
// Total order: created_at ascending, then the append-time seq, then source
// rank (wallet < bonus < stars). The seq column is monotonic per table, which
// makes the order deterministic even when timestamps collide.
func replayLedgers(userID uuid.UUID, wallet []models.WalletEvent, bonus []models.BonusEvent, stars []models.StarsEvent) *MasterBalances {
	rows := make([]UnifiedTransaction, 0, len(wallet)+len(bonus)+len(stars))

	for i := range wallet {
		event := &wallet[i]
		if event.Status != enums.WalletEventStatusSuccess {
			continue
		}
		status := event.Status
		amount := event.Amount.Abs()
		delta := amount
		if event.Type == enums.WalletEventTypeSpend {
			delta = amount.Neg()
		}
		rows = append(rows, UnifiedTransaction{
			EventID:     event.ID,
			Source:      enums.EventSourceWallet,
			Type:        string(event.Type),
			Status:      &status,
			Amount:      amount,
			WalletDelta: delta,
			Metadata:    event.Metadata,
			CreatedAt:   event.CreatedAt,
			seq:         event.Seq,
		})
	}

	for i := range bonus {
		event := &bonus[i]
		amount := event.Amount.Abs()
		delta := amount
		if event.Type.IsDebit() {
			delta = amount.Neg()
		}
		rows = append(rows, UnifiedTransaction{
			EventID:    event.ID,
			Source:     enums.EventSourceBonus,
			Type:       string(event.Type),
			Amount:     amount,
			BonusDelta: delta,
			Metadata:   event.Metadata,
			CreatedAt:  event.CreatedAt,
			seq:        event.Seq,
		})
	}

	for i := range stars {
		event := &stars[i]
		amount := event.Amount.Abs()
		delta := amount
		if event.Type.IsDebit() {
			delta = amount.Neg()
		}
		rows = append(rows, UnifiedTransaction{
			EventID:    event.ID,
			Source:     enums.EventSourceStars,
			Type:       string(event.Type),
			Amount:     amount,
			StarsDelta: delta,
			Metadata:   event.Metadata,
			CreatedAt:  event.CreatedAt,
			seq:        event.Seq,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		if rows[i].seq != rows[j].seq {
			return rows[i].seq < rows[j].seq
		}
		return rows[i].Source.Rank() < rows[j].Source.Rank()
	})

	running := zeroSnapshot()
	for i := range rows {
		row := &rows[i]
		running.Wallet = running.Wallet.Add(row.WalletDelta)
		running.Bonus = running.Bonus.Add(row.BonusDelta)
		running.Stars = running.Stars.Add(row.StarsDelta)
		if row.Source == enums.EventSourceWallet && row.Type == string(enums.WalletEventTypeTopup) {
			running.LifetimeTopup = running.LifetimeTopup.Add(row.Amount)
		}
		row.BalanceAfter = running
	}

	// Newest first for display.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	return &MasterBalances{
		UserID:             userID,
		Balances:           running,
		TransactionHistory: rows,
		EventCount:         len(rows),
	}
}

func zeroSnapshot() BalanceSnapshot {
	return BalanceSnapshot{
		Wallet:        decimal.Zero,
		Bonus:         decimal.Zero,
		Stars:         decimal.Zero,
		LifetimeTopup: decimal.Zero,
	}
}
