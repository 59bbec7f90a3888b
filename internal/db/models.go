// Package db journals in-progress segment edits to a local SQLite file so a
// crash does not lose unsaved work. Drafts are advisory: they are written on
// edit, cleared on successful save, and never pushed to the backend.
package db

import (
	"time"

	"github.com/kimmchii/audino/internal/segment"
)

// Draft is the locally journaled payload of one segment record. Slot is the
// record's position within its audio item, which keeps never-synced records
// addressable before they have a backend id.
type Draft struct {
	DataID         int
	Slot           int
	SegmentationID int
	Start          float64
	End            float64
	Transcription  string
	Annotations    map[string]segment.Entry
	UpdatedAt      time.Time
}

// DraftOf snapshots a record into a draft row.
func DraftOf(dataID, slot int, r *segment.Record) Draft {
	d := Draft{
		DataID:         dataID,
		Slot:           slot,
		SegmentationID: r.BackendID,
		Start:          r.Start,
		End:            r.End,
		Transcription:  r.Transcription,
	}
	if len(r.Annotations) > 0 {
		d.Annotations = make(map[string]segment.Entry, len(r.Annotations))
		for name, e := range r.Annotations {
			d.Annotations[name] = segment.Entry{
				LabelID:  e.LabelID,
				ValueIDs: append([]int(nil), e.ValueIDs...),
			}
		}
	}
	return d
}
