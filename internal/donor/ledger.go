package donor

import "sync"

// RecordType tags a ledger entry.
type RecordType string

const (
	RecordTrack RecordType = "track"
)

// AddedRecord is one committed side effect: exactly one persisted row and
// at most one on-disk file. Rollback must attempt both removals as a unit.
type AddedRecord struct {
	Type       RecordType
	DatabaseID string
	FilePath   string
}

// Ledger accumulates committed side effects for one merge job. Entries are
// appended before the side effect is considered durable and drained only on
// cancellation.
type Ledger struct {
	mu      sync.Mutex
	records []AddedRecord
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger { return &Ledger{} }

// Append records one committed side effect.
func (l *Ledger) Append(record AddedRecord) {
	l.mu.Lock()
	l.records = append(l.records, record)
	l.mu.Unlock()
}

// Len reports the number of pending entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// DrainAll atomically takes every entry, leaving the ledger empty.
func (l *Ledger) DrainAll() []AddedRecord {
	l.mu.Lock()
	records := l.records
	l.records = nil
	l.mu.Unlock()
	return records
}
