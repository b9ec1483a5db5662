package ledger

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/luca-patrignani/chainplay/prover"
)

const genesisAction = "genesis"

// Journal is an append-only, hash-linked log of finished actions. It is
// safe for concurrent use.
type Journal struct {
	mu         sync.RWMutex
	entries    []Entry
	nullifiers map[string]int
	now        func() time.Time
}

// NewJournal creates a journal holding only the genesis entry. A nil
// clock means time.Now.
func NewJournal(clock func() time.Time) *Journal {
	if clock == nil {
		clock = time.Now
	}
	j := &Journal{
		entries:    make([]Entry, 0, 16),
		nullifiers: map[string]int{},
		now:        clock,
	}
	genesis := Entry{
		Index:     0,
		Timestamp: clock().Unix(),
		PrevHash:  "0",
		Record:    Record{Action: genesisAction},
	}
	genesis.Hash = calculateHash(genesis)
	j.entries = append(j.entries, genesis)
	return j
}

// Append seals rec after the latest entry and returns the new entry.
func (j *Journal) Append(rec Record) (Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.entries) == 0 {
		return Entry{}, fmt.Errorf("journal has no genesis entry")
	}
	latest := j.entries[len(j.entries)-1]
	e := Entry{
		Index:     latest.Index + 1,
		Timestamp: j.now().Unix(),
		PrevHash:  latest.Hash,
		Record:    rec,
	}
	e.Hash = calculateHash(e)

	if err := validateEntry(e, latest); err != nil {
		return Entry{}, fmt.Errorf("invalid entry: %w", err)
	}
	j.entries = append(j.entries, e)
	if rec.Nullifier != "" && rec.State == "done" {
		j.nullifiers[rec.Nullifier]++
	}
	return e, nil
}

// Latest returns the most recent entry.
func (j *Journal) Latest() (Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if len(j.entries) == 0 {
		return Entry{}, fmt.Errorf("journal is empty")
	}
	return j.entries[len(j.entries)-1], nil
}

// ByIndex returns the entry at index; 0 is the genesis entry.
func (j *Journal) ByIndex(index int) (Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if index < 0 || index >= len(j.entries) {
		return Entry{}, fmt.Errorf("index %d out of range", index)
	}
	return j.entries[index], nil
}

// Entries returns a copy of the journal without the genesis entry.
func (j *Journal) Entries() []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if len(j.entries) <= 1 {
		return nil
	}
	return append([]Entry(nil), j.entries[1:]...)
}

// Len counts the entries after genesis.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries) - 1
}

// Used reports how many completed actions carried nullifier. A value above
// one means the same proof-backed action was recorded twice.
func (j *Journal) Used(nullifier string) int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.nullifiers[nullifier]
}

// Verify walks the whole journal checking index continuity, hash links and
// every entry's own hash.
func (j *Journal) Verify() error {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if len(j.entries) == 0 {
		return fmt.Errorf("empty journal")
	}
	if j.entries[0].PrevHash != "0" || j.entries[0].Record.Action != genesisAction {
		return fmt.Errorf("invalid genesis entry")
	}
	for i := 1; i < len(j.entries); i++ {
		if err := validateEntry(j.entries[i], j.entries[i-1]); err != nil {
			return fmt.Errorf("entry %d invalid: %w", i, err)
		}
	}
	return nil
}

func validateEntry(current, previous Entry) error {
	if current.Index != previous.Index+1 {
		return fmt.Errorf("invalid index: expected %d, got %d", previous.Index+1, current.Index)
	}
	if current.PrevHash != previous.Hash {
		return fmt.Errorf("invalid prev hash: expected %s, got %s", previous.Hash, current.PrevHash)
	}
	if want := calculateHash(current); current.Hash != want {
		return fmt.Errorf("invalid hash: expected %s, got %s", want, current.Hash)
	}
	return nil
}

func calculateHash(e Entry) string {
	record, _ := json.Marshal(e.Record)
	data := fmt.Sprintf("%d%d%s%s", e.Index, e.Timestamp, e.PrevHash, record)
	return prover.Digest([]byte(data))
}
