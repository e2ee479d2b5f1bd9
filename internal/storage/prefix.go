package storage

// PrefixDB namespaces a DB under a fixed key prefix. The snapshot cache
// opens one per network ("mainnet/", "testnet/") over a single Badger
// directory.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB returns a view of inner restricted to keys under prefix.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	return &PrefixDB{inner: inner, prefix: cloneBytes(prefix)}
}

func (p *PrefixDB) key(k []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(k))
	out = append(out, p.prefix...)
	return append(out, k...)
}

// Get implements DB.
func (p *PrefixDB) Get(key []byte) ([]byte, error) { return p.inner.Get(p.key(key)) }

// Put implements DB.
func (p *PrefixDB) Put(key, value []byte) error { return p.inner.Put(p.key(key), value) }

// Delete implements DB.
func (p *PrefixDB) Delete(key []byte) error { return p.inner.Delete(p.key(key)) }

// Has implements DB.
func (p *PrefixDB) Has(key []byte) (bool, error) { return p.inner.Has(p.key(key)) }

// ForEach implements DB. Keys passed to fn have the namespace stripped.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	n := len(p.prefix)
	return p.inner.ForEach(p.key(prefix), func(key, value []byte) error {
		return fn(key[n:], value)
	})
}

// DeleteAll removes every key in the namespace and reports how many were
// removed. Used by `automint cache clear`.
func (p *PrefixDB) DeleteAll() (int, error) {
	var keys [][]byte
	err := p.inner.ForEach(p.prefix, func(key, _ []byte) error {
		keys = append(keys, cloneBytes(key))
		return nil
	})
	if err != nil {
		return 0, err
	}

	b := NewBatch(p.inner)
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return 0, err
		}
	}
	if err := b.Commit(); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Close does nothing; the inner DB is closed by its owner.
func (p *PrefixDB) Close() error { return nil }

// NewBatch implements Batcher. Writes are atomic when the inner DB
// supports batches.
func (p *PrefixDB) NewBatch() Batch {
	return &prefixBatch{ns: p, inner: NewBatch(p.inner)}
}

type prefixBatch struct {
	ns    *PrefixDB
	inner Batch
}

func (pb *prefixBatch) Put(key, value []byte) error { return pb.inner.Put(pb.ns.key(key), value) }
func (pb *prefixBatch) Delete(key []byte) error     { return pb.inner.Delete(pb.ns.key(key)) }
func (pb *prefixBatch) Commit() error               { return pb.inner.Commit() }

// NewBatch returns db's own batch, or a buffered one that replays the
// writes one by one on Commit.
func NewBatch(db DB) Batch {
	if b, ok := db.(Batcher); ok {
		return b.NewBatch()
	}
	return &replayBatch{db: db}
}

type replayBatch struct {
	db  DB
	ops []batchOp
}

func (rb *replayBatch) Put(key, value []byte) error {
	rb.ops = append(rb.ops, batchOp{key: cloneBytes(key), value: nonNil(cloneBytes(value))})
	return nil
}

func (rb *replayBatch) Delete(key []byte) error {
	rb.ops = append(rb.ops, batchOp{key: cloneBytes(key)})
	return nil
}

func (rb *replayBatch) Commit() error {
	ops := rb.ops
	rb.ops = nil
	for _, op := range ops {
		var err error
		if op.value == nil {
			err = rb.db.Delete(op.key)
		} else {
			err = rb.db.Put(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
