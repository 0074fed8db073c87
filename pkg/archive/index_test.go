package archive

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ubcspin/REMO1-dataProcessing/pkg/types"
)

func indexedRecording(id, source string, tags map[string]string) *types.Recording {
	return &types.Recording{
		ID:     id,
		Source: source,
		Tags:   tags,
		Samples: []types.Sample{
			{Timestamp: 1000, Voltage: 512},
			{Timestamp: 2000, Voltage: 520},
		},
	}
}

func TestIndexAddAndGet(t *testing.T) {
	idx := NewIndex()

	rec := indexedRecording("rec1", "session1.csv", map[string]string{"subject": "s01"})
	if err := idx.Add(rec); err != nil {
		t.Fatalf("Failed to add recording: %v", err)
	}

	meta, ok := idx.Get("rec1")
	if !ok {
		t.Fatal("Expected recording in index")
	}
	if meta.Source != "session1.csv" {
		t.Errorf("Expected source session1.csv, got %q", meta.Source)
	}
	if meta.MinTime != 1000 || meta.MaxTime != 2000 {
		t.Errorf("Expected time range [1000, 2000], got [%d, %d]", meta.MinTime, meta.MaxTime)
	}
	if idx.Count() != 1 {
		t.Errorf("Expected count 1, got %d", idx.Count())
	}
}

func TestIndexAddNoID(t *testing.T) {
	idx := NewIndex()
	if err := idx.Add(&types.Recording{}); err == nil {
		t.Error("Expected error for recording without ID")
	}
}

func TestIndexDuplicateAdd(t *testing.T) {
	idx := NewIndex()
	rec := indexedRecording("rec1", "a.csv", nil)

	idx.Add(rec)
	idx.Add(rec)

	if idx.Count() != 1 {
		t.Errorf("Expected count 1 after duplicate add, got %d", idx.Count())
	}
	if ids := idx.Find(map[string]string{"source": "a.csv"}); len(ids) != 1 {
		t.Errorf("Expected single ID for source, got %v", ids)
	}
}

func TestIndexFind(t *testing.T) {
	idx := NewIndex()
	idx.Add(indexedRecording("rec1", "a.csv", map[string]string{"subject": "s01", "session": "rest"}))
	idx.Add(indexedRecording("rec2", "b.csv", map[string]string{"subject": "s01", "session": "active"}))
	idx.Add(indexedRecording("rec3", "c.csv", map[string]string{"subject": "s02"}))

	ids := idx.Find(map[string]string{"subject": "s01"})
	if len(ids) != 2 || ids[0] != "rec1" || ids[1] != "rec2" {
		t.Errorf("Expected [rec1 rec2], got %v", ids)
	}

	ids = idx.Find(map[string]string{"subject": "s01", "session": "active"})
	if len(ids) != 1 || ids[0] != "rec2" {
		t.Errorf("Expected [rec2], got %v", ids)
	}

	ids = idx.Find(map[string]string{"source": "c.csv"})
	if len(ids) != 1 || ids[0] != "rec3" {
		t.Errorf("Expected [rec3], got %v", ids)
	}

	if ids = idx.Find(map[string]string{"subject": "s99"}); ids != nil {
		t.Errorf("Expected nil for unknown tag value, got %v", ids)
	}
	if ids = idx.Find(map[string]string{"nope": "x"}); ids != nil {
		t.Errorf("Expected nil for unknown tag name, got %v", ids)
	}

	ids = idx.Find(nil)
	if len(ids) != 3 {
		t.Errorf("Expected all recordings for empty selectors, got %v", ids)
	}
}

func TestIndexRemove(t *testing.T) {
	idx := NewIndex()
	idx.Add(indexedRecording("rec1", "a.csv", map[string]string{"subject": "s01"}))
	idx.Add(indexedRecording("rec2", "b.csv", map[string]string{"subject": "s01"}))

	idx.Remove("rec1")

	if idx.Count() != 1 {
		t.Errorf("Expected count 1 after removal, got %d", idx.Count())
	}
	if _, ok := idx.Get("rec1"); ok {
		t.Error("Expected rec1 gone from index")
	}

	ids := idx.Find(map[string]string{"subject": "s01"})
	if len(ids) != 1 || ids[0] != "rec2" {
		t.Errorf("Expected [rec2], got %v", ids)
	}

	// Removing a missing ID is harmless
	idx.Remove("rec1")
}

func TestIndexFindLeavesPostingsIntact(t *testing.T) {
	idx := NewIndex()
	// Insertion order is not sorted; Find must not reorder the stored lists
	for _, id := range []string{"rec-c", "rec-a", "rec-b"} {
		idx.Add(indexedRecording(id, id+".csv", map[string]string{"subject": "s01", "device": "d01"}))
	}

	idx.Find(map[string]string{"subject": "s01", "device": "d01"})

	postings := idx.tagIndex["subject"]["s01"]
	want := []string{"rec-c", "rec-a", "rec-b"}
	for i := range want {
		if postings[i] != want[i] {
			t.Fatalf("Expected posting list %v untouched, got %v", want, postings)
		}
	}
}

func TestIndexFindConcurrent(t *testing.T) {
	idx := NewIndex()
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("rec-%02d", 19-i)
		idx.Add(indexedRecording(id, id+".csv", map[string]string{"subject": "s01", "device": "d01"}))
	}

	selectors := map[string]string{"subject": "s01", "device": "d01"}
	want := idx.Find(selectors)

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				got := idx.Find(selectors)
				if len(got) != len(want) {
					errs <- fmt.Sprintf("expected %d IDs, got %d", len(want), len(got))
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
}

func TestIndexSerializeRestore(t *testing.T) {
	idx := NewIndex()
	idx.Add(indexedRecording("rec1", "a.csv", map[string]string{"subject": "s01"}))
	idx.Add(indexedRecording("rec2", "b.csv", map[string]string{"subject": "s02"}))

	data, err := idx.Serialize()
	if err != nil {
		t.Fatalf("Failed to serialize index: %v", err)
	}

	restored, err := RestoreIndex(data)
	if err != nil {
		t.Fatalf("Failed to restore index: %v", err)
	}

	if restored.Count() != 2 {
		t.Errorf("Expected 2 recordings after restore, got %d", restored.Count())
	}

	ids := restored.Find(map[string]string{"subject": "s02"})
	if len(ids) != 1 || ids[0] != "rec2" {
		t.Errorf("Expected [rec2] after restore, got %v", ids)
	}
	ids = restored.Find(map[string]string{"source": "a.csv"})
	if len(ids) != 1 || ids[0] != "rec1" {
		t.Errorf("Expected [rec1] after restore, got %v", ids)
	}
}

func TestIndexClear(t *testing.T) {
	idx := NewIndex()
	idx.Add(indexedRecording("rec1", "a.csv", nil))

	idx.Clear()

	if idx.Count() != 0 {
		t.Errorf("Expected empty index, got %d recordings", idx.Count())
	}
	if ids := idx.Find(map[string]string{"source": "a.csv"}); ids != nil {
		t.Errorf("Expected no matches after clear, got %v", ids)
	}
}
