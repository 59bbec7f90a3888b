// Package api provides the client and wire types for talking to an audino
// annotation backend over HTTP with JSON bodies.
package api

import (
	"encoding/json"
	"fmt"

	"github.com/kimmchii/audino/internal/segment"
)

// ValueSet holds the chosen value ids for one label on the wire. The backend
// encodes single-choice answers as a bare number and multi-choice answers as
// an array; decoding accepts both, encoding emits a bare number for exactly
// one value.
type ValueSet []int

// MarshalJSON implements json.Marshaler.
func (v ValueSet) MarshalJSON() ([]byte, error) {
	if len(v) == 1 {
		return json.Marshal(v[0])
	}
	return json.Marshal([]int(v))
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *ValueSet) UnmarshalJSON(data []byte) error {
	var single int
	if err := json.Unmarshal(data, &single); err == nil {
		*v = ValueSet{single}
		return nil
	}
	var many []int
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("value set: want number or array, got %s", data)
	}
	*v = ValueSet(many)
	return nil
}

// Annotation is one label's answer as transmitted to and from the backend.
type Annotation struct {
	LabelID int      `json:"label_id"`
	Values  ValueSet `json:"values"`
}

// Segmentation is one backend segment row.
type Segmentation struct {
	SegmentationID int                   `json:"segmentation_id"`
	StartTime      float64               `json:"start_time"`
	EndTime        float64               `json:"end_time"`
	Transcription  string                `json:"transcription"`
	Annotations    map[string]Annotation `json:"annotations,omitempty"`
}

// DataResponse is the payload for loading one audio item.
type DataResponse struct {
	Segmentations          []Segmentation `json:"segmentations"`
	ReferenceTranscription string         `json:"reference_transcription"`
	IsMarkedForReview      bool           `json:"is_marked_for_review"`
	Filename               string         `json:"filename"`
	Duration               float64        `json:"duration"`
}

// LabelValue is one allowed value of a label.
type LabelValue struct {
	ValueID int    `json:"value_id"`
	Value   string `json:"value"`
}

// LabelDef is one label definition as served by the backend. Type
// "multiselect" marks a multi-choice label; anything else is single-choice.
type LabelDef struct {
	LabelID int          `json:"label_id"`
	Type    string       `json:"type"`
	Values  []LabelValue `json:"values"`
}

// LabelsResponse maps label name to its definition.
type LabelsResponse map[string]LabelDef

// SegmentPayload is the request body for creating or updating one segment.
// Annotations always carry the full current mapping; the backend overwrites
// its stored state, it never merges.
type SegmentPayload struct {
	Start         float64               `json:"start"`
	End           float64               `json:"end"`
	Transcription string                `json:"transcription"`
	Annotations   map[string]Annotation `json:"annotations"`
}

// CreateResponse carries the backend-assigned id for a created segment.
type CreateResponse struct {
	SegmentationID int `json:"segmentation_id"`
}

// ReviewPayload toggles the item-level reviewed flag.
type ReviewPayload struct {
	IsMarkedForReview bool `json:"is_marked_for_review"`
}

// Catalog converts the wire label definitions into the immutable catalog the
// segment store validates against.
func (lr LabelsResponse) Catalog() segment.Catalog {
	c := make(segment.Catalog, len(lr))
	for name, def := range lr {
		values := make([]segment.Value, 0, len(def.Values))
		for _, v := range def.Values {
			values = append(values, segment.Value{ID: v.ValueID, Text: v.Value})
		}
		c[name] = segment.Label{
			ID:     def.LabelID,
			Name:   name,
			Multi:  def.Type == "multiselect",
			Values: values,
		}
	}
	return c
}

// Hydrated converts a backend row into the store's hydration form.
func (s Segmentation) Hydrated() segment.Hydrated {
	h := segment.Hydrated{
		ID:            s.SegmentationID,
		Start:         s.StartTime,
		End:           s.EndTime,
		Transcription: s.Transcription,
	}
	if len(s.Annotations) > 0 {
		h.Annotations = make(map[string]segment.Entry, len(s.Annotations))
		for name, a := range s.Annotations {
			h.Annotations[name] = segment.Entry{
				LabelID:  a.LabelID,
				ValueIDs: append([]int(nil), a.Values...),
			}
		}
	}
	return h
}

// PayloadFor builds the full create/update request body for a record.
func PayloadFor(r *segment.Record) SegmentPayload {
	p := SegmentPayload{
		Start:         r.Start,
		End:           r.End,
		Transcription: r.Transcription,
		Annotations:   make(map[string]Annotation, len(r.Annotations)),
	}
	for name, e := range r.Annotations {
		p.Annotations[name] = Annotation{
			LabelID: e.LabelID,
			Values:  ValueSet(append([]int(nil), e.ValueIDs...)),
		}
	}
	return p
}
