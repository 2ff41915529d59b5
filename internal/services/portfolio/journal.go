package portfolio

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/lendmon/lendmon/internal/domain"
)

const (
	journalKey              = "positions"
	journalSegmentThreshold = 1000
	journalMaxSegments      = 100
)

// Journal persists the session position set in a WAL so a restarted session
// recovers exactly where it left off.
type Journal struct {
	wal *gowal.Wal
}

// OpenJournal initializes a WAL-backed journal under dir.
func OpenJournal(dir string) (*Journal, error) {
	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "positions_",
		SegmentThreshold: journalSegmentThreshold,
		MaxSegments:      journalMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init position journal WAL")
	}

	return &Journal{wal: wal}, nil
}

// Save writes the full position set. The latest record wins on recovery.
func (j *Journal) Save(positions []domain.Position) error {
	if j == nil || j.wal == nil {
		return errors.New("position journal is not initialized")
	}

	payload, err := json.Marshal(positions)
	if err != nil {
		return errors.Wrap(err, "marshal position set")
	}

	return j.wal.Write(j.wal.CurrentIndex()+1, journalKey, payload)
}

// Load replays the WAL and returns the most recently saved position set.
func (j *Journal) Load() ([]domain.Position, error) {
	if j == nil || j.wal == nil {
		return nil, errors.New("position journal is not initialized")
	}

	var positions []domain.Position
	for msg := range j.wal.Iterator() {
		if msg.Key != journalKey {
			continue
		}
		var set []domain.Position
		if err := json.Unmarshal(msg.Value, &set); err != nil {
			return nil, errors.Wrap(err, "decode position set")
		}
		positions = set
	}

	return positions, nil
}

// Close closes the underlying WAL.
func (j *Journal) Close() error {
	if j == nil || j.wal == nil {
		return nil
	}
	return j.wal.Close()
}
