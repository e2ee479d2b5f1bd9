package storage

import (
	"errors"
	"testing"
)

func TestPrefixDB_DB(t *testing.T) {
	testDB(t, NewPrefixDB(NewMemory(), []byte("mainnet/")))
}

func TestPrefixDB_Networks(t *testing.T) {
	inner := NewMemory()
	mainnet := NewPrefixDB(inner, []byte("mainnet/"))
	testnet := NewPrefixDB(inner, []byte("testnet/"))

	mainnet.Put([]byte("m/addr"), []byte("main"))
	testnet.Put([]byte("m/addr"), []byte("test"))

	for _, tt := range []struct {
		db   *PrefixDB
		want string
	}{
		{mainnet, "main"},
		{testnet, "test"},
	} {
		got, err := tt.db.Get([]byte("m/addr"))
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != tt.want {
			t.Errorf("Get = %q, want %q", got, tt.want)
		}
	}

	raw, err := inner.Get([]byte("testnet/m/addr"))
	if err != nil || string(raw) != "test" {
		t.Errorf("inner key = %q, %v", raw, err)
	}
	if ok, _ := mainnet.Has([]byte("testnet/m/addr")); ok {
		t.Error("mainnet view reaches into testnet keys")
	}
}

func TestPrefixDB_ForEachStripsNamespace(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("testnet/"))
	db.Put([]byte("s/a"), []byte("1"))
	db.Put([]byte("s/b"), []byte("2"))
	db.Put([]byte("m/a"), []byte("3"))
	inner.Put([]byte("s/outside"), []byte("4"))

	var keys []string
	err := db.ForEach([]byte("s/"), func(key, _ []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if len(keys) != 2 || keys[0] != "s/a" || keys[1] != "s/b" {
		t.Errorf("keys = %v, want [s/a s/b]", keys)
	}
}

func TestPrefixDB_DeleteAll(t *testing.T) {
	inner := NewMemory()
	mainnet := NewPrefixDB(inner, []byte("mainnet/"))
	testnet := NewPrefixDB(inner, []byte("testnet/"))
	for _, k := range []string{"s/1", "s/2", "m/1"} {
		testnet.Put([]byte(k), []byte("v"))
	}
	mainnet.Put([]byte("s/1"), []byte("keep"))

	n, err := testnet.DeleteAll()
	if err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if n != 3 {
		t.Errorf("DeleteAll removed %d keys, want 3", n)
	}
	if ok, _ := testnet.Has([]byte("s/1")); ok {
		t.Error("testnet key survived DeleteAll")
	}
	if got, err := mainnet.Get([]byte("s/1")); err != nil || string(got) != "keep" {
		t.Errorf("mainnet key = %q, %v", got, err)
	}

	n, err = testnet.DeleteAll()
	if err != nil || n != 0 {
		t.Errorf("second DeleteAll = %d, %v", n, err)
	}
}

func TestPrefixDB_CloseKeepsInner(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("x/"))
	db.Put([]byte("k"), []byte("v"))
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := inner.Get([]byte("x/k")); err != nil {
		t.Errorf("inner.Get after Close: %v", err)
	}
}

// plainDB hides the inner DB's Batcher implementation.
type plainDB struct{ DB }

func TestPrefixDB_Batch(t *testing.T) {
	for name, inner := range map[string]DB{
		"batcher": NewMemory(),
		"replay":  plainDB{NewMemory()},
	} {
		t.Run(name, func(t *testing.T) {
			db := NewPrefixDB(inner, []byte("net/"))
			db.Put([]byte("stale"), []byte("x"))

			b := db.NewBatch()
			b.Put([]byte("fresh"), []byte("y"))
			b.Delete([]byte("stale"))

			if ok, _ := inner.Has([]byte("net/fresh")); ok {
				t.Fatal("batch wrote before Commit")
			}
			if err := b.Commit(); err != nil {
				t.Fatalf("Commit: %v", err)
			}
			if ok, _ := inner.Has([]byte("net/stale")); ok {
				t.Error("stale key not deleted through the namespace")
			}
			if got, err := inner.Get([]byte("net/fresh")); err != nil || string(got) != "y" {
				t.Errorf("net/fresh = %q, %v", got, err)
			}
		})
	}
}

func TestNewBatch_Replay(t *testing.T) {
	db := plainDB{NewMemory()}
	b := NewBatch(db)
	if _, ok := b.(*replayBatch); !ok {
		t.Fatalf("NewBatch() = %T, want *replayBatch", b)
	}
	b.Put([]byte("empty"), nil)
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, err := db.Get([]byte("empty"))
	if err != nil {
		t.Fatalf("nil value should be stored as empty, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("value = %q", got)
	}
	if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
