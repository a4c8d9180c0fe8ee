package tosdb

// table wraps a database and prefixes every key with a fixed string, letting
// independent stores share one backend.
type table struct {
	db     KeyValueStore
	prefix string
}

// NewTable returns a database object that prefixes all keys with a given string.
func NewTable(db KeyValueStore, prefix string) KeyValueStore {
	return &table{db: db, prefix: prefix}
}

// Close is a noop to implement the Database interface. The underlying store
// is owned by the caller.
func (t *table) Close() error { return nil }

func (t *table) key(key []byte) []byte {
	return append([]byte(t.prefix), key...)
}

func (t *table) Has(key []byte) (bool, error) { return t.db.Has(t.key(key)) }

func (t *table) Get(key []byte) ([]byte, error) { return t.db.Get(t.key(key)) }

func (t *table) Put(key []byte, value []byte) error { return t.db.Put(t.key(key), value) }

func (t *table) Delete(key []byte) error { return t.db.Delete(t.key(key)) }

func (t *table) Stat(property string) (string, error) { return t.db.Stat(property) }

// Compact flattens the underlying data store for the given key range, shifted
// into the table's key space.
func (t *table) Compact(start []byte, limit []byte) error {
	if start == nil {
		start = []byte(t.prefix)
	} else {
		start = t.key(start)
	}
	if limit == nil {
		limit = []byte(t.prefix)
		for i := len(limit) - 1; i >= 0; i-- {
			limit[i]++
			if limit[i] > 0 {
				limit = limit[:i+1]
				break
			}
			if i == 0 {
				limit = nil
			}
		}
	} else {
		limit = t.key(limit)
	}
	return t.db.Compact(start, limit)
}

// NewIterator creates an iterator over the table's keys, with the table prefix
// stripped from the returned keys.
func (t *table) NewIterator(prefix []byte, start []byte) Iterator {
	return &tableIterator{
		iter:   t.db.NewIterator(t.key(prefix), start),
		prefix: t.prefix,
	}
}

func (t *table) NewBatch() Batch {
	return &tableBatch{batch: t.db.NewBatch(), prefix: t.prefix}
}

type tableBatch struct {
	batch  Batch
	prefix string
}

func (b *tableBatch) Put(key, value []byte) error {
	return b.batch.Put(append([]byte(b.prefix), key...), value)
}

func (b *tableBatch) Delete(key []byte) error {
	return b.batch.Delete(append([]byte(b.prefix), key...))
}

func (b *tableBatch) ValueSize() int { return b.batch.ValueSize() }

func (b *tableBatch) Write() error { return b.batch.Write() }

func (b *tableBatch) Reset() { b.batch.Reset() }

// tableReplayer strips the prefix before handing keys to the wrapped writer.
type tableReplayer struct {
	w      KeyValueWriter
	prefix string
}

func (r *tableReplayer) Put(key []byte, value []byte) error {
	return r.w.Put(key[len(r.prefix):], value)
}

func (r *tableReplayer) Delete(key []byte) error {
	return r.w.Delete(key[len(r.prefix):])
}

func (b *tableBatch) Replay(w KeyValueWriter) error {
	return b.batch.Replay(&tableReplayer{w: w, prefix: b.prefix})
}

type tableIterator struct {
	iter   Iterator
	prefix string
}

func (it *tableIterator) Next() bool { return it.iter.Next() }

func (it *tableIterator) Error() error { return it.iter.Error() }

func (it *tableIterator) Key() []byte {
	key := it.iter.Key()
	if key == nil {
		return nil
	}
	return key[len(it.prefix):]
}

func (it *tableIterator) Value() []byte { return it.iter.Value() }

func (it *tableIterator) Release() { it.iter.Release() }
