package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/perkspoint/perkspoint-backend/pkg/db/models"
	"github.com/perkspoint/perkspoint-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	walletEvents := `
CREATE TABLE IF NOT EXISTS wallet_events (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  amount TEXT NOT NULL,
  metadata TEXT,
  status_updated_at DATETIME,
  created_at DATETIME
);`
	bonusEvents := `
CREATE TABLE IF NOT EXISTS bonus_events (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`
	starsEvents := `
CREATE TABLE IF NOT EXISTS stars_events (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`
	userProfiles := `
CREATE TABLE IF NOT EXISTS user_profiles (
  id TEXT PRIMARY KEY,
  lifetime_topup TEXT NOT NULL DEFAULT '0',
  balances_synced_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`

	for _, ddl := range []string{walletEvents, bonusEvents, starsEvents, userProfiles} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func TestRepository_ListWalletEventsOrdersByTimeThenSeq(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Appended newest-first so insertion order disagrees with created_at.
	late := walletEvent(t, userID, enums.WalletEventTypeSpend, enums.WalletEventStatusSuccess, "5", base.Add(time.Hour), 0)
	early := walletEvent(t, userID, enums.WalletEventTypeTopup, enums.WalletEventStatusSuccess, "50", base, 0)
	require.NoError(t, repo.CreateWalletEvent(ctx, &late))
	require.NoError(t, repo.CreateWalletEvent(ctx, &early))

	// Two rows with a colliding timestamp fall back to append order.
	tieFirst := walletEvent(t, userID, enums.WalletEventTypeTopup, enums.WalletEventStatusSuccess, "10", base.Add(2*time.Hour), 0)
	tieSecond := walletEvent(t, userID, enums.WalletEventTypeSpend, enums.WalletEventStatusSuccess, "3", base.Add(2*time.Hour), 0)
	require.NoError(t, repo.CreateWalletEvent(ctx, &tieFirst))
	require.NoError(t, repo.CreateWalletEvent(ctx, &tieSecond))

	events, err := repo.ListWalletEvents(ctx, userID, nil)
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, early.ID, events[0].ID)
	assert.Equal(t, late.ID, events[1].ID)
	assert.Equal(t, tieFirst.ID, events[2].ID)
	assert.Equal(t, tieSecond.ID, events[3].ID)

	// seq is database-assigned and strictly increasing in append order.
	assert.Greater(t, events[3].Seq, events[2].Seq)
	for _, ev := range events {
		assert.NotZero(t, ev.Seq)
	}
}

func TestRepository_ListWalletEventsCutoffIsInclusive(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	at := walletEvent(t, userID, enums.WalletEventTypeTopup, enums.WalletEventStatusSuccess, "10", base, 0)
	after := walletEvent(t, userID, enums.WalletEventTypeTopup, enums.WalletEventStatusSuccess, "20", base.Add(time.Minute), 0)
	require.NoError(t, repo.CreateWalletEvent(ctx, &at))
	require.NoError(t, repo.CreateWalletEvent(ctx, &after))

	cutoff := base
	events, err := repo.ListWalletEvents(ctx, userID, &cutoff)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, at.ID, events[0].ID)
}

func TestRepository_ListsScopeToUser(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	otherID := uuid.New()
	base := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)

	mine := bonusEvent(t, userID, enums.BonusEventTypeReward, "5", base, 0)
	theirs := bonusEvent(t, otherID, enums.BonusEventTypeReward, "7", base, 0)
	require.NoError(t, repo.CreateBonusEvent(ctx, &mine))
	require.NoError(t, repo.CreateBonusEvent(ctx, &theirs))

	stars := starsEvent(t, userID, enums.StarsEventTypeEarn, "3", base, 0)
	require.NoError(t, repo.CreateStarsEvent(ctx, &stars))

	bonusRows, err := repo.ListBonusEvents(ctx, userID, nil)
	require.NoError(t, err)
	require.Len(t, bonusRows, 1)
	assert.Equal(t, mine.ID, bonusRows[0].ID)

	starsRows, err := repo.ListStarsEvents(ctx, userID, nil)
	require.NoError(t, err)
	require.Len(t, starsRows, 1)
	assert.Equal(t, stars.ID, starsRows[0].ID)
}

func TestRepository_GetUserProfileMissingReturnsNil(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	profile, err := repo.GetUserProfile(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestRepository_UpsertLifetimeTopupOverwrites(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	first := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertLifetimeTopup(ctx, &models.UserProfile{
		ID:               userID,
		LifetimeTopup:    decimal.RequireFromString("100"),
		BalancesSyncedAt: &first,
	}))

	second := first.Add(time.Hour)
	require.NoError(t, repo.UpsertLifetimeTopup(ctx, &models.UserProfile{
		ID:               userID,
		LifetimeTopup:    decimal.RequireFromString("150"),
		BalancesSyncedAt: &second,
	}))

	profile, err := repo.GetUserProfile(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.True(t, profile.LifetimeTopup.Equal(decimal.RequireFromString("150")),
		"expected 150, got %s", profile.LifetimeTopup)
	require.NotNil(t, profile.BalancesSyncedAt)
	assert.True(t, profile.BalancesSyncedAt.Equal(second))
}
