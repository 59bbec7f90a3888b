package segment

import "fmt"

// Hydrated is one backend segmentation row handed to Hydrate.
type Hydrated struct {
	ID            int
	Start         float64
	End           float64
	Transcription string
	Annotations   map[string]Entry
}

// Store owns the segment records for one audio item and the single selection
// pointer. All mutation flows through the store; the rendering layer looks
// records up by position and index but never mutates them directly.
//
// Save and delete are split into Begin/Complete/Fail pairs because backend
// calls resolve asynchronously: Begin marks the record in flight, and the
// completion side discards responses whose record has already left the
// collection.
type Store struct {
	catalog  Catalog
	duration float64
	records  []*Record
	selected *Record
}

// NewStore creates an empty store validating annotations against catalog.
func NewStore(catalog Catalog) *Store {
	return &Store{catalog: catalog}
}

// Hydrate replaces the collection with one record per backend row. A
// malformed list leaves the store untouched; there is no partial hydration.
// An item with no segments gets a single unsynced record spanning the whole
// clip, so there is always something to annotate. The first record becomes
// the selection.
func (s *Store) Hydrate(rows []Hydrated, duration float64) error {
	if duration <= 0 {
		return fmt.Errorf("audio duration %g: must be positive", duration)
	}

	recs := make([]*Record, 0, len(rows))
	seen := make(map[int]bool, len(rows))
	for _, row := range rows {
		if row.ID <= 0 {
			return fmt.Errorf("segmentation id %d: must be positive", row.ID)
		}
		if seen[row.ID] {
			return fmt.Errorf("duplicate segmentation id %d", row.ID)
		}
		if row.Start < 0 || row.End > duration || row.Start >= row.End {
			return fmt.Errorf("segmentation %d: bad time range [%g, %g]", row.ID, row.Start, row.End)
		}
		seen[row.ID] = true

		r := newRecord(row.Start, row.End)
		r.BackendID = row.ID
		r.Transcription = row.Transcription
		for name, e := range row.Annotations {
			if err := s.catalog.Validate(name, e.ValueIDs); err != nil {
				return fmt.Errorf("segmentation %d: %w", row.ID, err)
			}
			r.Annotations[name] = Entry{LabelID: e.LabelID, ValueIDs: append([]int(nil), e.ValueIDs...)}
		}
		recs = append(recs, r)
	}

	s.duration = duration
	s.records = recs
	if len(s.records) == 0 {
		_, err := s.CreateFromRegion(0, duration)
		return err
	}
	s.selected = s.records[0]
	return nil
}

// CreateFromRegion appends a new unsynced record for a freshly drawn region
// and selects it.
func (s *Store) CreateFromRegion(start, end float64) (*Record, error) {
	if start < 0 || end > s.duration || start >= end {
		return nil, fmt.Errorf("bad time range [%g, %g] for duration %g", start, end, s.duration)
	}
	r := newRecord(start, end)
	s.records = append(s.records, r)
	s.selected = r
	return r, nil
}

// Select sets the selection pointer. Selecting nil, or a record that is no
// longer part of the collection, clears the selection.
func (s *Store) Select(r *Record) {
	if r == nil || !s.Contains(r) {
		s.selected = nil
		return
	}
	s.selected = r
}

// SelectIndex selects the record at index i, clamping out-of-range indexes
// to nothing.
func (s *Store) SelectIndex(i int) {
	if i < 0 || i >= len(s.records) {
		s.selected = nil
		return
	}
	s.selected = s.records[i]
}

// UpdateTranscription sets the transcription text on the selected record.
// No-op without a selection.
func (s *Store) UpdateTranscription(text string) {
	if s.selected == nil {
		return
	}
	s.selected.Transcription = text
}

// UpdateAnnotation replaces the annotation entry for labelName on the
// selected record with the given full value set, mirroring how a selection
// control reports its state. An empty set removes the entry (the label goes
// back to unanswered). No-op without a selection.
func (s *Store) UpdateAnnotation(labelName string, valueIDs []int) error {
	if s.selected == nil {
		return nil
	}
	if err := s.catalog.Validate(labelName, valueIDs); err != nil {
		return err
	}
	if len(valueIDs) == 0 {
		delete(s.selected.Annotations, labelName)
		return nil
	}
	s.selected.Annotations[labelName] = Entry{
		LabelID:  s.catalog[labelName].ID,
		ValueIDs: append([]int(nil), valueIDs...),
	}
	return nil
}

// BeginSave marks the selected record as save-in-flight and returns it.
// Fails if nothing is selected or the record already has a save or delete
// in flight.
func (s *Store) BeginSave() (*Record, error) {
	if s.selected == nil {
		return nil, fmt.Errorf("no segment selected")
	}
	if s.selected.Busy() {
		return nil, fmt.Errorf("segment has a request in flight")
	}
	s.selected.Saving = true
	return s.selected, nil
}

// CompleteSave applies a successful save response. A never-synced record is
// assigned the backend id from the create response; a record that already
// has one keeps it no matter what the response carried. Responses for
// records that have since left the collection are discarded.
func (s *Store) CompleteSave(r *Record, backendID int) error {
	if !s.Contains(r) {
		return nil
	}
	r.Saving = false
	if r.BackendID != 0 {
		return nil
	}
	if backendID <= 0 {
		return fmt.Errorf("create returned bad segmentation id %d", backendID)
	}
	for _, other := range s.records {
		if other != r && other.BackendID == backendID {
			return fmt.Errorf("segmentation id %d already in use", backendID)
		}
	}
	r.BackendID = backendID
	return nil
}

// FailSave clears the in-flight flag after a rejected save. Local edits are
// kept; the record simply stays unsynced or dirty.
func (s *Store) FailSave(r *Record) {
	if s.Contains(r) {
		r.Saving = false
	}
}

// BeginDelete starts deleting the selected record. A never-synced record is
// removed locally right away and needsBackend is false; a synced record is
// marked delete-in-flight and stays in the collection until CompleteDelete.
func (s *Store) BeginDelete() (r *Record, needsBackend bool, err error) {
	if s.selected == nil {
		return nil, false, fmt.Errorf("no segment selected")
	}
	if s.selected.Busy() {
		return nil, false, fmt.Errorf("segment has a request in flight")
	}
	r = s.selected
	if !r.Synced() {
		s.remove(r)
		return r, false, nil
	}
	r.Deleting = true
	return r, true, nil
}

// CompleteDelete removes the record after the backend confirmed the delete.
// Discarded if the record is no longer in the collection.
func (s *Store) CompleteDelete(r *Record) {
	if !s.Contains(r) {
		return
	}
	r.Deleting = false
	s.remove(r)
}

// FailDelete keeps the record in place after a rejected delete. It stays
// selected so the user can retry or keep editing.
func (s *Store) FailDelete(r *Record) {
	if s.Contains(r) {
		r.Deleting = false
	}
}

// Contains reports whether r is currently part of the collection.
func (s *Store) Contains(r *Record) bool {
	for _, rec := range s.records {
		if rec == r {
			return true
		}
	}
	return false
}

// RecordAt returns the first record whose range contains the playback
// position, or nil.
func (s *Store) RecordAt(pos float64) *Record {
	for _, r := range s.records {
		if r.Contains(pos) {
			return r
		}
	}
	return nil
}

// IndexOf returns r's position in the collection, or -1.
func (s *Store) IndexOf(r *Record) int {
	for i, rec := range s.records {
		if rec == r {
			return i
		}
	}
	return -1
}

// Records returns the ordered collection. Callers must not mutate records;
// all edits go through the store.
func (s *Store) Records() []*Record { return s.records }

// Selected returns the selected record, or nil.
func (s *Store) Selected() *Record { return s.selected }

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Duration returns the audio duration set at hydration.
func (s *Store) Duration() float64 { return s.duration }

// Catalog returns the label catalog the store validates against.
func (s *Store) Catalog() Catalog { return s.catalog }

func (s *Store) remove(r *Record) {
	for i, rec := range s.records {
		if rec == r {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}
	if s.selected == r {
		s.selected = nil
	}
}
