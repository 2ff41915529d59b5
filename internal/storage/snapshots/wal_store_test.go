package snapshots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lendmon/lendmon/internal/domain"
)

func testRecord(account, hf string) domain.SnapshotRecord {
	return domain.SnapshotRecord{
		Timestamp:       time.Now(),
		Account:         account,
		CollateralValue: "10000",
		DebtValue:       "5000",
		AvailableBorrow: "3700",
		HealthFactor:    hf,
		RiskClass:       "moderate",
	}
}

func TestWALStore_SaveAndReadBack(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(testRecord("0xabc", "1.8")))
	require.NoError(t, store.Save(testRecord("0xabc", "1.75")))

	records, err := store.SnapshotsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "1.8", records[0].Record.HealthFactor)
	require.Equal(t, "1.75", records[1].Record.HealthFactor)
	require.Less(t, records[0].Index, records[1].Index)
}

func TestWALStore_SnapshotsAfterIndex(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(testRecord("0xabc", "2.1")))
	first := store.CurrentIndex()
	require.NoError(t, store.Save(testRecord("0xabc", "2.0")))

	records, err := store.SnapshotsAfter(first)
	require.NoError(t, err)
	require.Len(t, records, 1, "only records after the cursor must be returned")
	require.Equal(t, "2.0", records[0].Record.HealthFactor)

	records, err = store.SnapshotsAfter(store.CurrentIndex())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestWALStore_RejectsMissingAccount(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	err = store.Save(domain.SnapshotRecord{HealthFactor: "1.0"})
	require.Error(t, err)
}

func TestWALStore_Recovery(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(testRecord("0xabc", "1.8")))
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.SnapshotsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 1, "records must survive a restart")
	require.Equal(t, "0xabc", records[0].Record.Account)
}
