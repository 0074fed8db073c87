// Package archive persists analyzed recordings in a local BadgerDB store
// so sessions can be queried and compared later.
package archive

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/ubcspin/REMO1-dataProcessing/pkg/types"
)

// Samples are stored in ten-minute blocks
const blockSpanMS = 10 * 60 * 1000

// Key prefixes in the BadgerDB keyspace
var (
	metaPrefix  = []byte("meta/")
	blockPrefix = []byte("block/")
	indexKey    = []byte("!index")
)

// ErrNotFound indicates the requested recording is not archived
var ErrNotFound = errors.New("archive: recording not found")

// Archive is the contract for recording storage
type Archive interface {
	// Store archives an analyzed recording
	Store(ctx context.Context, entry *types.ArchiveEntry) error

	// Get retrieves an archived recording with its samples
	Get(ctx context.Context, id string) (*types.ArchiveEntry, error)

	// Query returns entries matching tag selectors and time range
	Query(ctx context.Context, req *types.QueryRequest) (*types.QueryResult, error)

	// Close closes the archive
	Close() error
}

// Config holds archive configuration
type Config struct {
	Path             string
	CompressionLevel int
	EnableWAL        bool
}

// DefaultConfig returns default archive configuration
func DefaultConfig() *Config {
	return &Config{
		Path:             "./data",
		CompressionLevel: 3,
		EnableWAL:        true,
	}
}

// badgerArchive implements Archive using BadgerDB
type badgerArchive struct {
	cfg   *Config
	db    *badger.DB
	index *Index
	codec *Codec
	wal   *WAL
	mu    sync.RWMutex
}

// entryMeta is the per-recording metadata record; samples live in
// separate compressed blocks
type entryMeta struct {
	Recording     types.Recording `json:"recording"`
	Measures      types.Measures  `json:"measures"`
	Peaks         []int           `json:"peaks,omitempty"`
	RejectedPeaks []int           `json:"rejected_peaks,omitempty"`
	BlockTimes    []int64         `json:"block_times"`
}

// Open opens or creates an archive at cfg.Path
func Open(cfg *Config) (Archive, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := badger.DefaultOptions(filepath.Join(cfg.Path, "badger"))
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	codec, err := NewCodec(cfg.CompressionLevel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create codec: %w", err)
	}

	a := &badgerArchive{
		cfg:   cfg,
		db:    db,
		codec: codec,
	}

	if err := a.loadIndex(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load index: %w", err)
	}

	if cfg.EnableWAL {
		// Recover entries that never reached the store
		if err := ReplayWAL(cfg.Path, a.writeDirect); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to replay WAL: %w", err)
		}

		wal, err := NewWAL(cfg.Path)
		if err != nil {
			db.Close()
			return nil, err
		}
		a.wal = wal
	}

	return a, nil
}

// loadIndex restores the persisted index, or starts empty
func (a *badgerArchive) loadIndex() error {
	a.index = NewIndex()

	return a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			idx, err := RestoreIndex(val)
			if err != nil {
				return err
			}
			a.index = idx
			return nil
		})
	})
}

// Store implements Archive.Store
func (a *badgerArchive) Store(ctx context.Context, entry *types.ArchiveEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// WAL first for durability
	if a.wal != nil {
		if err := a.wal.Append(entry); err != nil {
			return fmt.Errorf("WAL append failed: %w", err)
		}
	}

	return a.writeDirect(entry)
}

// writeDirect writes an entry to BadgerDB, bypassing the WAL.
// Caller must hold the write lock (or be the only writer, as on replay).
func (a *badgerArchive) writeDirect(entry *types.ArchiveEntry) error {
	rec := entry.Recording
	if rec.ID == "" {
		return fmt.Errorf("recording has no ID")
	}

	blocks := groupSamplesByBlock(rec.Samples)

	blockTimes := make([]int64, 0, len(blocks))
	for blockTime := range blocks {
		blockTimes = append(blockTimes, blockTime)
	}
	sortInt64s(blockTimes)

	meta := entryMeta{
		Recording:     rec,
		Measures:      entry.Measures,
		Peaks:         entry.Peaks,
		RejectedPeaks: entry.RejectedPeaks,
		BlockTimes:    blockTimes,
	}
	// Samples are stored in blocks, not in the metadata record
	meta.Recording.Samples = nil

	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	err = a.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(metaKey(rec.ID), metaBytes); err != nil {
			return err
		}
		for blockTime, samples := range blocks {
			payload, err := a.codec.EncodeSamples(samples)
			if err != nil {
				return fmt.Errorf("failed to encode block: %w", err)
			}
			if err := txn.Set(blockKey(rec.ID, blockTime), payload); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}

	if err := a.index.Add(&rec); err != nil {
		return fmt.Errorf("failed to index recording: %w", err)
	}

	return a.persistIndex()
}

// persistIndex writes the current index snapshot to BadgerDB
func (a *badgerArchive) persistIndex() error {
	data, err := a.index.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize index: %w", err)
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(indexKey, data)
	})
}

// Get implements Archive.Get
func (a *badgerArchive) Get(ctx context.Context, id string) (*types.ArchiveEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.getLocked(id)
}

func (a *badgerArchive) getLocked(id string) (*types.ArchiveEntry, error) {
	var metaBytes []byte
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			metaBytes = append([]byte{}, val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta entryMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	entry := &types.ArchiveEntry{
		Recording:     meta.Recording,
		Measures:      meta.Measures,
		Peaks:         meta.Peaks,
		RejectedPeaks: meta.RejectedPeaks,
	}

	for _, blockTime := range meta.BlockTimes {
		samples, err := a.readBlock(id, blockTime)
		if err != nil {
			return nil, fmt.Errorf("failed to read block %d: %w", blockTime, err)
		}
		entry.Recording.Samples = append(entry.Recording.Samples, samples...)
	}

	return entry, nil
}

// readBlock reads and decodes one sample block
func (a *badgerArchive) readBlock(id string, blockTime int64) ([]types.Sample, error) {
	var payload []byte
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blockKey(id, blockTime))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			payload = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return a.codec.DecodeSamples(payload)
}

// Query implements Archive.Query
func (a *badgerArchive) Query(ctx context.Context, req *types.QueryRequest) (*types.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := a.index.Find(req.Selectors)
	result := &types.QueryResult{Entries: make([]types.ArchiveEntry, 0, len(ids))}

	for _, id := range ids {
		meta, ok := a.index.Get(id)
		if !ok {
			continue
		}
		if req.StartTime != 0 && meta.MaxTime < req.StartTime {
			continue
		}
		if req.EndTime != 0 && meta.MinTime > req.EndTime {
			continue
		}

		entry, err := a.getLocked(id)
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, *entry)
	}

	return result, nil
}

// Close implements Archive.Close
func (a *badgerArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.wal != nil {
		if err := a.wal.Close(); err != nil {
			return err
		}
	}
	if a.codec != nil {
		a.codec.Close()
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// groupSamplesByBlock groups samples into ten-minute blocks
func groupSamplesByBlock(samples []types.Sample) map[int64][]types.Sample {
	blocks := make(map[int64][]types.Sample)
	for _, s := range samples {
		blockTime := s.Timestamp - s.Timestamp%blockSpanMS
		if s.Timestamp < 0 && s.Timestamp%blockSpanMS != 0 {
			blockTime -= blockSpanMS
		}
		blocks[blockTime] = append(blocks[blockTime], s)
	}
	return blocks
}

// metaKey builds the metadata key for a recording
func metaKey(id string) []byte {
	return append(append([]byte{}, metaPrefix...), id...)
}

// blockKey builds the block key for a recording and block time
func blockKey(id string, blockTime int64) []byte {
	buf := new(bytes.Buffer)
	buf.Write(blockPrefix)
	buf.WriteString(id)
	buf.WriteByte('/')
	binary.Write(buf, binary.BigEndian, blockTime)
	return buf.Bytes()
}

func sortInt64s(a []int64) {
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
}
