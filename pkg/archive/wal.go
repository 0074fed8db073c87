package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ubcspin/REMO1-dataProcessing/pkg/types"
)

// WAL implements a write-ahead log for archive durability
type WAL struct {
	path       string
	file       *os.File
	writer     *bufio.Writer
	mu         sync.Mutex
	flushTimer *time.Timer
}

// walEntry is a single WAL record
type walEntry struct {
	Timestamp time.Time          `json:"timestamp"`
	Entry     types.ArchiveEntry `json:"entry"`
}

// NewWAL creates a write-ahead log under dataPath
func NewWAL(dataPath string) (*WAL, error) {
	walPath := filepath.Join(dataPath, "wal")
	if err := os.MkdirAll(walPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}

	filename := filepath.Join(walPath, fmt.Sprintf("wal-%d.log", time.Now().Unix()))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}

	w := &WAL{
		path:   walPath,
		file:   file,
		writer: bufio.NewWriter(file),
	}

	// Flush to disk every second
	w.flushTimer = time.AfterFunc(1*time.Second, w.autoFlush)

	return w, nil
}

// Append appends an archive entry to the WAL
func (w *WAL) Append(entry *types.ArchiveEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	record := walEntry{
		Timestamp: time.Now(),
		Entry:     *entry,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal WAL entry: %w", err)
	}

	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write to WAL: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

// Flush flushes the WAL to disk
func (w *WAL) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush WAL: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync WAL: %w", err)
	}
	return nil
}

// autoFlush periodically flushes the WAL
func (w *WAL) autoFlush() {
	w.Flush()
	w.mu.Lock()
	w.flushTimer.Reset(1 * time.Second)
	w.mu.Unlock()
}

// Close closes the WAL
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.flushTimer != nil {
		w.flushTimer.Stop()
	}
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	return w.file.Close()
}

// ReplayWAL replays WAL entries for recovery and removes replayed files
func ReplayWAL(dataPath string, handler func(*types.ArchiveEntry) error) error {
	walPath := filepath.Join(dataPath, "wal")

	entries, err := os.ReadDir(walPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read WAL directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := filepath.Join(walPath, entry.Name())
		if err := replayWALFile(filename, handler); err != nil {
			return fmt.Errorf("failed to replay %s: %w", filename, err)
		}
		os.Remove(filename)
	}

	return nil
}

// replayWALFile replays a single WAL file
func replayWALFile(filename string, handler func(*types.ArchiveEntry) error) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	// Entries carry full sample payloads and can exceed the default token size
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	for scanner.Scan() {
		var record walEntry
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return fmt.Errorf("failed to unmarshal WAL entry: %w", err)
		}
		if err := handler(&record.Entry); err != nil {
			return fmt.Errorf("failed to replay entry: %w", err)
		}
	}

	return scanner.Err()
}

// BatchWriter buffers archive writes and flushes them in the background
type BatchWriter struct {
	archive    Archive
	buffer     []*types.ArchiveEntry
	bufferSize int
	mu         sync.Mutex
	flushTimer *time.Timer
	done       chan struct{}
}

// NewBatchWriter creates a batch writer over an archive
func NewBatchWriter(archive Archive, bufferSize int) *BatchWriter {
	bw := &BatchWriter{
		archive:    archive,
		buffer:     make([]*types.ArchiveEntry, 0, bufferSize),
		bufferSize: bufferSize,
		done:       make(chan struct{}),
	}

	// Flush every 100ms or when the buffer fills
	bw.flushTimer = time.AfterFunc(100*time.Millisecond, bw.autoFlush)

	return bw
}

// Write buffers an entry
func (bw *BatchWriter) Write(entry *types.ArchiveEntry) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	bw.buffer = append(bw.buffer, entry)
	if len(bw.buffer) >= bw.bufferSize {
		return bw.flushLocked()
	}
	return nil
}

// Flush flushes the buffer
func (bw *BatchWriter) Flush() error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.flushLocked()
}

// flushLocked flushes the buffer; caller must hold the lock
func (bw *BatchWriter) flushLocked() error {
	if len(bw.buffer) == 0 {
		return nil
	}

	ctx := context.Background()
	for _, entry := range bw.buffer {
		if err := bw.archive.Store(ctx, entry); err != nil {
			return fmt.Errorf("batch write failed: %w", err)
		}
	}

	bw.buffer = bw.buffer[:0]
	return nil
}

// autoFlush periodically flushes the buffer
func (bw *BatchWriter) autoFlush() {
	bw.Flush()
	bw.mu.Lock()
	select {
	case <-bw.done:
	default:
		bw.flushTimer.Reset(100 * time.Millisecond)
	}
	bw.mu.Unlock()
}

// Close stops the batch writer after a final flush
func (bw *BatchWriter) Close() error {
	if bw.flushTimer != nil {
		bw.flushTimer.Stop()
	}
	close(bw.done)
	return bw.Flush()
}
