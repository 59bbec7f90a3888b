package app

import (
	"github.com/kimmchii/audino/internal/api"
	"github.com/kimmchii/audino/internal/segment"
)

// SessionLoadedMsg carries the two load-time fetches: the label catalog and
// the audio item's segmentation data.
type SessionLoadedMsg struct {
	Labels api.LabelsResponse
	Data   *api.DataResponse
	DataID int
}

// SessionLoadErrorMsg is sent when either load-time fetch fails. Fatal to
// the editing session.
type SessionLoadErrorMsg struct {
	Err error
}

// SaveDoneMsg reports a successful create or update of one segment.
// BackendID carries the id assigned by a create; updates echo the existing
// one.
type SaveDoneMsg struct {
	Record    *segment.Record
	BackendID int
}

// SaveErrorMsg reports a rejected create or update. Local edits stay.
type SaveErrorMsg struct {
	Record *segment.Record
	Err    error
}

// DeleteDoneMsg reports that the backend confirmed a segment delete.
type DeleteDoneMsg struct {
	Record *segment.Record
}

// DeleteErrorMsg reports a rejected delete; the record stays in place.
type DeleteErrorMsg struct {
	Record *segment.Record
	Err    error
}

// ReviewDoneMsg reports a confirmed review-flag update.
type ReviewDoneMsg struct {
	Marked bool
}

// ReviewErrorMsg reports a failed review-flag update. The checkbox keeps
// the value the user set; only the error is surfaced.
type ReviewErrorMsg struct {
	Err error
}

// TickMsg drives the playback clock.
type TickMsg struct{}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
