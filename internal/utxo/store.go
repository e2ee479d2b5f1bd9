package utxo

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Klingon-tech/automint/internal/storage"
	"github.com/Klingon-tech/automint/pkg/crypto"
)

// ErrNoSnapshot is returned by Load when no snapshot exists for an address.
var ErrNoSnapshot = errors.New("no cached utxo snapshot")

// Key prefixes for the snapshot store.
var (
	prefixUTXO = []byte("s/") // s/<addrkey20><tx_hash>#<index> -> UTXO JSON
	prefixMeta = []byte("m/") // m/<addrkey20> -> Snapshot JSON
)

// Snapshot describes the last query stored for an address.
type Snapshot struct {
	Address   string    `json:"address"`
	Count     int       `json:"count"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Store persists the last queried UTXO set per address so `utxos --cached`
// can list it without calling cardano-cli. A snapshot is replaced wholesale
// on every query, like Set.
type Store struct {
	db  storage.DB
	now func() time.Time
}

// NewStore creates a new snapshot store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// addrPrefix builds "s/" + key(addr).
func addrPrefix(addr string) []byte {
	k := crypto.Key(addr)
	out := make([]byte, 0, len(prefixUTXO)+crypto.KeySize)
	out = append(out, prefixUTXO...)
	return append(out, k[:]...)
}

func utxoKey(addr string, u *UTXO) []byte {
	return append(addrPrefix(addr), u.String()...)
}

func metaKey(addr string) []byte {
	k := crypto.Key(addr)
	out := make([]byte, 0, len(prefixMeta)+crypto.KeySize)
	out = append(out, prefixMeta...)
	return append(out, k[:]...)
}

// Replace drops the stored snapshot for addr and stores utxos in its place.
// The swap is atomic when the database supports batches.
func (s *Store) Replace(addr string, utxos []*UTXO) error {
	var stale [][]byte
	err := s.db.ForEach(addrPrefix(addr), func(key, _ []byte) error {
		stale = append(stale, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan snapshot: %w", err)
	}

	meta, err := json.Marshal(Snapshot{Address: addr, Count: len(utxos), FetchedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("snapshot marshal: %w", err)
	}

	w := storage.NewBatch(s.db)
	for _, key := range stale {
		if err := w.Delete(key); err != nil {
			return fmt.Errorf("snapshot delete: %w", err)
		}
	}
	for _, u := range utxos {
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("utxo marshal: %w", err)
		}
		if err := w.Put(utxoKey(addr, u), data); err != nil {
			return fmt.Errorf("utxo put: %w", err)
		}
	}
	if err := w.Put(metaKey(addr), meta); err != nil {
		return fmt.Errorf("snapshot put: %w", err)
	}
	return w.Commit()
}

// Load returns the stored snapshot for addr as a Set.
func (s *Store) Load(addr string) (*Set, Snapshot, error) {
	data, err := s.db.Get(metaKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, Snapshot{}, fmt.Errorf("%w for %s", ErrNoSnapshot, addr)
	}
	if err != nil {
		return nil, Snapshot{}, fmt.Errorf("snapshot get: %w", err)
	}
	var meta Snapshot
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, Snapshot{}, fmt.Errorf("snapshot unmarshal: %w", err)
	}

	var utxos []*UTXO
	err = s.db.ForEach(addrPrefix(addr), func(_, value []byte) error {
		var u UTXO
		if err := json.Unmarshal(value, &u); err != nil {
			return fmt.Errorf("utxo unmarshal: %w", err)
		}
		utxos = append(utxos, &u)
		return nil
	})
	if err != nil {
		return nil, Snapshot{}, err
	}
	return NewSet(utxos...), meta, nil
}

// Forget removes the snapshot for addr.
func (s *Store) Forget(addr string) error {
	w := storage.NewBatch(s.db)
	err := s.db.ForEach(addrPrefix(addr), func(key, _ []byte) error {
		return w.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("scan snapshot: %w", err)
	}
	if err := w.Delete(metaKey(addr)); err != nil {
		return err
	}
	return w.Commit()
}
