package utxo

import (
	"errors"
	"testing"
	"time"

	"github.com/Klingon-tech/automint/internal/storage"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(storage.NewMemory())
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}

func mustParse(t *testing.T, line string) *UTXO {
	t.Helper()
	u, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse(%q): %v", line, err)
	}
	return u
}

func TestStore_ReplaceAndLoad(t *testing.T) {
	s := testStore(t)
	u1 := mustParse(t, "aaaa 0 5000000 lovelace + 3 1234.Foo")
	u2 := mustParse(t, "bbbb 1 2000000 lovelace")

	if err := s.Replace("addr_test1", []*UTXO{u1, u2}); err != nil {
		t.Fatalf("Replace() error: %v", err)
	}

	set, meta, err := s.Load("addr_test1")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", set.Len())
	}
	got, ok := set.Get("aaaa#0")
	if !ok {
		t.Fatal("aaaa#0 missing after Load()")
	}
	if !got.Value.Equal(u1.Value) {
		t.Errorf("value = %s, want %s", got.Value, u1.Value)
	}
	if meta.Count != 2 || meta.Address != "addr_test1" {
		t.Errorf("meta = %+v", meta)
	}
	if !meta.FetchedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("FetchedAt = %v", meta.FetchedAt)
	}
}

func TestStore_ReplaceDropsStale(t *testing.T) {
	s := testStore(t)
	s.Replace("addr1", []*UTXO{mustParse(t, "aaaa 0 1 lovelace"), mustParse(t, "bbbb 0 2 lovelace")})
	s.Replace("addr1", []*UTXO{mustParse(t, "cccc 0 3 lovelace")})

	set, _, err := s.Load("addr1")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if set.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", set.Len())
	}
	if _, ok := set.Get("aaaa#0"); ok {
		t.Error("stale utxo survived Replace()")
	}
}

func TestStore_ReplaceEmpty(t *testing.T) {
	s := testStore(t)
	s.Replace("addr1", []*UTXO{mustParse(t, "aaaa 0 1 lovelace")})
	if err := s.Replace("addr1", nil); err != nil {
		t.Fatalf("Replace(nil) error: %v", err)
	}
	set, meta, err := s.Load("addr1")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if set.Len() != 0 || meta.Count != 0 {
		t.Errorf("expected empty snapshot, got %d utxos", set.Len())
	}
}

func TestStore_AddressIsolation(t *testing.T) {
	s := testStore(t)
	s.Replace("addr1", []*UTXO{mustParse(t, "aaaa 0 1 lovelace")})
	s.Replace("addr2", []*UTXO{mustParse(t, "bbbb 0 2 lovelace")})

	set, _, _ := s.Load("addr1")
	if _, ok := set.Get("bbbb#0"); ok {
		t.Error("addr1 snapshot sees addr2 utxo")
	}
	if set.Len() != 1 {
		t.Errorf("Len() = %d, want 1", set.Len())
	}
}

func TestStore_LoadMissing(t *testing.T) {
	s := testStore(t)
	_, _, err := s.Load("nobody")
	if !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("Load() error = %v, want ErrNoSnapshot", err)
	}
}

func TestStore_Forget(t *testing.T) {
	s := testStore(t)
	s.Replace("addr1", []*UTXO{mustParse(t, "aaaa 0 1 lovelace")})
	if err := s.Forget("addr1"); err != nil {
		t.Fatalf("Forget() error: %v", err)
	}
	if _, _, err := s.Load("addr1"); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Load() after Forget() error = %v, want ErrNoSnapshot", err)
	}
}

func TestStore_Badger(t *testing.T) {
	db, err := storage.NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	defer db.Close()

	s := NewStore(storage.NewPrefixDB(db, []byte("preprod/")))
	s.Replace("addr1", []*UTXO{mustParse(t, "aaaa 3 7000000 lovelace + 1 pol.NFT")})

	set, _, err := s.Load("addr1")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	u, ok := set.Get("aaaa#3")
	if !ok {
		t.Fatal("aaaa#3 missing")
	}
	if u.Base() != 7000000 || u.Value.Quantity("pol.NFT") != 1 {
		t.Errorf("value = %s", u.Value)
	}
}
