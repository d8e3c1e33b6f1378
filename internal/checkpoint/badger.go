package checkpoint

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Values are split into chunks so a large matrix never exceeds badger's
// per-transaction size limit, which is small for in-memory databases.
const chunkSize = 1 << 20

const keyPrefix = "ckpt/v1/"

// BadgerStore keeps checkpoints in a badger database, gob encoded.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(msg string, args ...any) { l.logger.Error(fmt.Sprintf(msg, args...)) }
func (l badgerLogger) Warningf(msg string, args ...any) {
	l.logger.Warn(fmt.Sprintf(msg, args...))
}
func (l badgerLogger) Infof(msg string, args ...any)  { l.logger.Debug(fmt.Sprintf(msg, args...)) }
func (l badgerLogger) Debugf(msg string, args ...any) { l.logger.Debug(fmt.Sprintf(msg, args...)) }

// OpenBadger opens (creating if needed) a store in dir, or an in-memory
// store when inMemory is set.
func OpenBadger(dir string, inMemory bool) (*BadgerStore, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating checkpoint dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	logger := slog.Default().With("component", "checkpoint")
	opts.Logger = badgerLogger{logger: logger.With("backend", "badger")}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint store: %w", err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

func metaKey(name string) []byte { return []byte(keyPrefix + name + "/meta") }

func chunkKey(name string, i int) []byte {
	return []byte(fmt.Sprintf("%s%s/chunk/%06d", keyPrefix, name, i))
}

func (s *BadgerStore) Save(ctx context.Context, name string, v any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	data := buf.Bytes()

	// Meta is written last so a reader never sees a partial set of chunks.
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(metaKey(name))
	}); err != nil {
		return fmt.Errorf("invalidating %s: %w", name, err)
	}
	chunks := 0
	for off := 0; off < len(data) || chunks == 0; off += chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(off+chunkSize, len(data))
		part := data[off:end]
		if err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(chunkKey(name, chunks), part)
		}); err != nil {
			return fmt.Errorf("writing %s chunk %d: %w", name, chunks, err)
		}
		chunks++
	}
	meta := make([]byte, 8)
	binary.BigEndian.PutUint64(meta, uint64(chunks))
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(name), meta)
	}); err != nil {
		return fmt.Errorf("writing %s meta: %w", name, err)
	}
	s.logger.Info("checkpoint saved", "artifact", name, "bytes", len(data), "chunks", chunks)
	return nil
}

func (s *BadgerStore) Load(ctx context.Context, name string, v any) (bool, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(name))
		if err != nil {
			return err
		}
		meta, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if len(meta) != 8 {
			return fmt.Errorf("corrupt meta for %s", name)
		}
		n := int(binary.BigEndian.Uint64(meta))
		for i := 0; i < n; i++ {
			item, err := txn.Get(chunkKey(name, i))
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			if err := item.Value(func(val []byte) error {
				data = append(data, val...)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", name, err)
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", name, err)
	}
	return true, nil
}

func (s *BadgerStore) Reset(ctx context.Context) error {
	if err := s.db.DropPrefix([]byte(keyPrefix)); err != nil {
		return fmt.Errorf("dropping checkpoints: %w", err)
	}
	s.logger.Info("checkpoints cleared")
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
