package segment

// Entry is the recorded answer for one label on one segment: the full
// replacement set of chosen value ids. A single-choice label holds exactly
// one id. Absence of an Entry means the label is unanswered, not empty.
type Entry struct {
	LabelID  int
	ValueIDs []int
}

// Record is one time-bounded segment of the audio item. BackendID zero means
// the segment has never been created on the backend; backend ids are opaque
// positive integers and are never generated locally.
type Record struct {
	BackendID     int
	Start         float64
	End           float64
	Transcription string
	Annotations   map[string]Entry

	// In-flight request state. The store refuses to start a save or delete
	// on a record while either flag is set, so the two can never race on
	// the same record.
	Saving   bool
	Deleting bool
}

func newRecord(start, end float64) *Record {
	return &Record{
		Start:       start,
		End:         end,
		Annotations: make(map[string]Entry),
	}
}

// Synced reports whether the record mirrors a backend row.
func (r *Record) Synced() bool { return r.BackendID != 0 }

// Contains reports whether a playback position in seconds falls inside the
// record's time range. The end bound is exclusive so adjacent records never
// both claim a position.
func (r *Record) Contains(pos float64) bool {
	return pos >= r.Start && pos < r.End
}

// Busy reports whether a save or delete is in flight for the record.
func (r *Record) Busy() bool { return r.Saving || r.Deleting }
