package archive

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ubcspin/REMO1-dataProcessing/pkg/types"
)

// Reserved tag name under which the source file is indexed
const sourceTag = "__source__"

// Index tracks archived recordings and supports tag-based lookup
type Index struct {
	// Maps recording ID to its metadata
	recordings map[string]*RecordingMetadata
	// Inverted index: tag name -> tag value -> recording IDs
	tagIndex map[string]map[string][]string
}

// RecordingMetadata holds index metadata for a single recording
type RecordingMetadata struct {
	ID      string            `json:"id"`
	Source  string            `json:"source"`
	Tags    map[string]string `json:"tags,omitempty"`
	MinTime int64             `json:"min_time"`
	MaxTime int64             `json:"max_time"`
}

// NewIndex creates an empty index
func NewIndex() *Index {
	return &Index{
		recordings: make(map[string]*RecordingMetadata),
		tagIndex:   make(map[string]map[string][]string),
	}
}

// Add indexes a recording. Re-adding an existing ID is a no-op.
func (idx *Index) Add(rec *types.Recording) error {
	if rec.ID == "" {
		return fmt.Errorf("recording has no ID")
	}
	if _, exists := idx.recordings[rec.ID]; exists {
		return nil
	}

	meta := &RecordingMetadata{
		ID:     rec.ID,
		Source: rec.Source,
		Tags:   rec.Tags,
	}
	if len(rec.Samples) > 0 {
		meta.MinTime = rec.Samples[0].Timestamp
		meta.MaxTime = rec.Samples[len(rec.Samples)-1].Timestamp
	}

	idx.recordings[rec.ID] = meta

	idx.addTag(sourceTag, rec.Source, rec.ID)
	for name, value := range rec.Tags {
		idx.addTag(name, value, rec.ID)
	}

	return nil
}

func (idx *Index) addTag(name, value, id string) {
	if idx.tagIndex[name] == nil {
		idx.tagIndex[name] = make(map[string][]string)
	}
	idx.tagIndex[name][value] = append(idx.tagIndex[name][value], id)
}

// Get retrieves metadata by recording ID
func (idx *Index) Get(id string) (*RecordingMetadata, bool) {
	meta, ok := idx.recordings[id]
	return meta, ok
}

// Find returns the IDs of recordings matching all tag selectors. The
// source file is matched via the "source" selector. Empty selectors match
// every recording.
func (idx *Index) Find(selectors map[string]string) []string {
	if len(selectors) == 0 {
		result := make([]string, 0, len(idx.recordings))
		for id := range idx.recordings {
			result = append(result, id)
		}
		sort.Strings(result)
		return result
	}

	var result []string
	first := true

	for name, value := range selectors {
		if name == "source" {
			name = sourceTag
		}

		valueMap, ok := idx.tagIndex[name]
		if !ok {
			return nil
		}
		ids, ok := valueMap[value]
		if !ok {
			return nil
		}

		if first {
			result = append([]string(nil), ids...)
			first = false
		} else {
			result = intersect(result, ids)
		}

		if len(result) == 0 {
			return nil
		}
	}

	sort.Strings(result)
	return result
}

// Remove drops a recording from the index
func (idx *Index) Remove(id string) {
	meta, ok := idx.recordings[id]
	if !ok {
		return
	}
	delete(idx.recordings, id)

	idx.removeTag(sourceTag, meta.Source, id)
	for name, value := range meta.Tags {
		idx.removeTag(name, value, id)
	}
}

func (idx *Index) removeTag(name, value, id string) {
	valueMap, ok := idx.tagIndex[name]
	if !ok {
		return
	}
	ids := valueMap[value]
	for i, v := range ids {
		if v == id {
			valueMap[value] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(valueMap[value]) == 0 {
		delete(valueMap, value)
	}
	if len(valueMap) == 0 {
		delete(idx.tagIndex, name)
	}
}

// Count returns the number of indexed recordings
func (idx *Index) Count() int {
	return len(idx.recordings)
}

// Clear empties the index
func (idx *Index) Clear() {
	idx.recordings = make(map[string]*RecordingMetadata)
	idx.tagIndex = make(map[string]map[string][]string)
}

// indexSnapshot is the serialized form of the index; the inverted tag
// index is rebuilt on restore
type indexSnapshot struct {
	Recordings []*RecordingMetadata `json:"recordings"`
}

// Serialize serializes the index for persistence
func (idx *Index) Serialize() ([]byte, error) {
	snap := indexSnapshot{Recordings: make([]*RecordingMetadata, 0, len(idx.recordings))}
	for _, meta := range idx.recordings {
		snap.Recordings = append(snap.Recordings, meta)
	}
	sort.Slice(snap.Recordings, func(i, j int) bool {
		return snap.Recordings[i].ID < snap.Recordings[j].ID
	})
	return json.Marshal(snap)
}

// RestoreIndex rebuilds an index from its serialized form
func RestoreIndex(data []byte) (*Index, error) {
	var snap indexSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index: %w", err)
	}

	idx := NewIndex()
	for _, meta := range snap.Recordings {
		idx.recordings[meta.ID] = meta
		idx.addTag(sourceTag, meta.Source, meta.ID)
		for name, value := range meta.Tags {
			idx.addTag(name, value, meta.ID)
		}
	}
	return idx, nil
}

// intersect finds common elements of two string slices. The inputs are
// sorted on copies: b may be a live posting list read under the archive's
// read lock, so it must not be reordered in place.
func intersect(a, b []string) []string {
	a = append([]string(nil), a...)
	b = append([]string(nil), b...)
	sort.Strings(a)
	sort.Strings(b)

	result := make([]string, 0)
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			result = append(result, a[i])
			i++
			j++
		}
	}
	return result
}
