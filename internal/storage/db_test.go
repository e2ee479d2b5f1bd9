package storage

import (
	"bytes"
	"errors"
	"testing"
)

// testDB exercises the behavior every backend shares. Keys mirror the
// snapshot layout the UTXO cache writes.
func testDB(t *testing.T, db DB) {
	t.Helper()

	put := func(t *testing.T, key, value string) {
		t.Helper()
		if err := db.Put([]byte(key), []byte(value)); err != nil {
			t.Fatalf("Put(%s): %v", key, err)
		}
	}
	get := func(t *testing.T, key string) []byte {
		t.Helper()
		v, err := db.Get([]byte(key))
		if err != nil {
			t.Fatalf("Get(%s): %v", key, err)
		}
		return v
	}
	count := func(t *testing.T, prefix string) int {
		t.Helper()
		n := 0
		if err := db.ForEach([]byte(prefix), func(_, _ []byte) error {
			n++
			return nil
		}); err != nil {
			t.Fatalf("ForEach(%s): %v", prefix, err)
		}
		return n
	}

	t.Run("ReadWrite", func(t *testing.T) {
		put(t, "snap/payment", `{"utxos":[]}`)
		if got := get(t, "snap/payment"); string(got) != `{"utxos":[]}` {
			t.Errorf("Get = %q", got)
		}
		put(t, "snap/payment", `{"utxos":[1]}`)
		if got := get(t, "snap/payment"); string(got) != `{"utxos":[1]}` {
			t.Errorf("Get after overwrite = %q", got)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, err := db.Get([]byte("snap/nobody")); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get missing = %v, want ErrNotFound", err)
		}
		if ok, err := db.Has([]byte("snap/nobody")); err != nil || ok {
			t.Errorf("Has missing = %v, %v", ok, err)
		}
		if err := db.Delete([]byte("snap/nobody")); err != nil {
			t.Errorf("Delete missing: %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		put(t, "snap/policy", "x")
		if ok, _ := db.Has([]byte("snap/policy")); !ok {
			t.Fatal("Has = false after Put")
		}
		if err := db.Delete([]byte("snap/policy")); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := db.Get([]byte("snap/policy")); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get after Delete = %v", err)
		}
	})

	t.Run("Values", func(t *testing.T) {
		put(t, "raw/empty", "")
		if got := get(t, "raw/empty"); len(got) != 0 {
			t.Errorf("empty value came back as %d bytes", len(got))
		}

		key := []byte{0x00, 0x01, 0xFF}
		value := make([]byte, 256)
		for i := range value {
			value[i] = byte(i)
		}
		if err := db.Put(key, value); err != nil {
			t.Fatalf("Put binary: %v", err)
		}
		got, err := db.Get(key)
		if err != nil || !bytes.Equal(got, value) {
			t.Errorf("binary value mismatch (err %v)", err)
		}
	})

	t.Run("ForEach", func(t *testing.T) {
		put(t, "tx/a", "1")
		put(t, "tx/b", "2")
		put(t, "tx/c", "3")
		put(t, "txx/d", "4")
		if n := count(t, "tx/"); n != 3 {
			t.Errorf("ForEach(tx/) = %d entries, want 3", n)
		}
		if n := count(t, "none/"); n != 0 {
			t.Errorf("ForEach(none/) = %d entries, want 0", n)
		}

		stop := errors.New("stop")
		err := db.ForEach([]byte("tx/"), func(_, _ []byte) error { return stop })
		if !errors.Is(err, stop) {
			t.Errorf("ForEach callback error = %v, want stop", err)
		}
	})

	t.Run("Batch", func(t *testing.T) {
		batcher, ok := db.(Batcher)
		if !ok {
			t.Skip("no native batching")
		}
		put(t, "batch/stale", "x")

		b := batcher.NewBatch()
		b.Put([]byte("batch/a"), []byte("1"))
		b.Put([]byte("batch/b"), []byte("2"))
		b.Delete([]byte("batch/stale"))

		if ok, _ := db.Has([]byte("batch/a")); ok {
			t.Error("batched write visible before Commit")
		}
		if err := b.Commit(); err != nil {
			t.Fatalf("Commit: %v", err)
		}

		var keys []string
		db.ForEach([]byte("batch/"), func(key, _ []byte) error {
			keys = append(keys, string(key))
			return nil
		})
		if len(keys) != 2 || keys[0] != "batch/a" || keys[1] != "batch/b" {
			t.Errorf("keys after Commit = %v, want [batch/a batch/b]", keys)
		}
	})
}

func TestMemoryDB(t *testing.T) {
	db := NewMemory()
	defer db.Close()
	testDB(t, db)
}

func TestBadgerDB(t *testing.T) {
	db, err := NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	defer db.Close()
	testDB(t, db)
}

func TestBadgerDB_Reopen(t *testing.T) {
	dir := t.TempDir()

	db, err := NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	if err := db.Put([]byte("mainnet/snap/payment"), []byte("cached")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	db.Close()

	db, err = NewBadger(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	val, err := db.Get([]byte("mainnet/snap/payment"))
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(val) != "cached" {
		t.Errorf("value after reopen = %q, want cached", val)
	}
}
