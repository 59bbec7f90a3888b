package app

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/kimmchii/audino/internal/api"

	tea "github.com/charmbracelet/bubbletea"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testLabels() api.LabelsResponse {
	return api.LabelsResponse{
		"mood": {LabelID: 1, Type: "select", Values: []api.LabelValue{
			{ValueID: 3, Value: "happy"}, {ValueID: 4, Value: "sad"},
		}},
		"noise": {LabelID: 2, Type: "multiselect", Values: []api.LabelValue{
			{ValueID: 2, Value: "traffic"}, {ValueID: 5, Value: "wind"},
		}},
	}
}

func testData() *api.DataResponse {
	return &api.DataResponse{
		Segmentations: []api.Segmentation{
			{SegmentationID: 7, StartTime: 0, EndTime: 2, Transcription: "hello"},
			{SegmentationID: 9, StartTime: 4, EndTime: 6, Transcription: "world"},
		},
		ReferenceTranscription: "reference",
		Filename:               "clip.wav",
		Duration:               10,
	}
}

func applyUpdate(m Model, msg tea.Msg) (Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

// loadedModel builds a model wired to client and hydrated with the standard
// fixture: two synced segments in a ten second clip.
func loadedModel(t *testing.T, client *api.Client) Model {
	t.Helper()

	m := New(client, nil, testLogger(), 12)
	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = applyUpdate(m, SessionLoadedMsg{Labels: testLabels(), Data: testData(), DataID: 12})
	if !m.loaded {
		t.Fatalf("model should be loaded: %s", m.loadErr)
	}
	return m
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestNewModel(t *testing.T) {
	m := New(nil, nil, testLogger(), 1)
	if m.loaded {
		t.Error("new model should not be loaded")
	}
	if m.statusText != "Loading..." {
		t.Errorf("statusText = %q", m.statusText)
	}
}

func TestSessionLoaded(t *testing.T) {
	m := loadedModel(t, nil)

	if m.store.Len() != 2 {
		t.Fatalf("records = %d, want 2", m.store.Len())
	}
	if m.store.Selected() != m.store.Records()[0] {
		t.Error("first record should be selected")
	}
	if m.play.Duration() != 10 {
		t.Errorf("duration = %g, want 10", m.play.Duration())
	}
	if m.filename != "clip.wav" || m.referenceText != "reference" {
		t.Errorf("item context = %q / %q", m.filename, m.referenceText)
	}
	if len(m.labelNames) != 2 || m.labelNames[0] != "mood" {
		t.Errorf("labelNames = %v", m.labelNames)
	}
}

func TestSessionLoadedWithoutSegments(t *testing.T) {
	m := New(nil, nil, testLogger(), 12)
	data := &api.DataResponse{Filename: "empty.wav", Duration: 8}
	m, _ = applyUpdate(m, SessionLoadedMsg{Labels: testLabels(), Data: data, DataID: 12})

	if m.store.Len() != 1 {
		t.Fatalf("records = %d, want auto-created 1", m.store.Len())
	}
	r := m.store.Records()[0]
	if r.Start != 0 || r.End != 8 || r.Synced() {
		t.Errorf("auto record = %+v, want unsynced [0, 8]", r)
	}
	if m.store.Selected() != r {
		t.Error("auto record should be selected")
	}
}

func TestSessionLoadError(t *testing.T) {
	m := New(nil, nil, testLogger(), 12)
	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = applyUpdate(m, SessionLoadErrorMsg{Err: fmt.Errorf("connection refused")})

	if m.loaded {
		t.Error("model must not come up after a load failure")
	}
	view := m.View()
	if view == "" || m.loadErr == "" {
		t.Error("load failure should render a blocking message")
	}
}

func TestMalformedPayloadIsFatal(t *testing.T) {
	m := New(nil, nil, testLogger(), 12)
	data := &api.DataResponse{
		Segmentations: []api.Segmentation{{SegmentationID: 7, StartTime: 5, EndTime: 1}},
		Duration:      10,
	}
	m, _ = applyUpdate(m, SessionLoadedMsg{Labels: testLabels(), Data: data, DataID: 12})

	if m.loaded {
		t.Error("malformed segmentation list must not hydrate")
	}
	if m.loadErr == "" {
		t.Error("load error should be surfaced")
	}
}

func TestSaveNeverSyncedIssuesOneCreate(t *testing.T) {
	var creates, updates int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			creates++
			json.NewEncoder(w).Encode(api.CreateResponse{SegmentationID: 42})
		case http.MethodPut:
			updates++
		}
	}))
	defer srv.Close()

	m := loadedModel(t, api.NewClient(srv.URL, "", 1))
	m.store.CreateFromRegion(7, 9)
	rec := m.store.Selected()

	m, cmd := applyUpdate(m, key('s'))
	if cmd == nil {
		t.Fatal("save should produce a command")
	}
	if !rec.Saving {
		t.Error("record should be marked saving")
	}
	if rec.Synced() {
		t.Error("backend id must stay absent until the response lands")
	}

	m, _ = applyUpdate(m, cmd().(SaveDoneMsg))

	if creates != 1 || updates != 0 {
		t.Errorf("creates = %d, updates = %d, want exactly one create", creates, updates)
	}
	if rec.BackendID != 42 {
		t.Errorf("backend id = %d, want 42", rec.BackendID)
	}
	if rec.Saving {
		t.Error("saving flag should clear")
	}
}

func TestSaveSyncedIssuesUpdateTargetedAtID(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
	}))
	defer srv.Close()

	m := loadedModel(t, api.NewClient(srv.URL, "", 1))
	rec := m.store.Selected() // segmentation 7

	m, cmd := applyUpdate(m, key('s'))
	m, _ = applyUpdate(m, cmd().(SaveDoneMsg))

	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotPath != "/api/projects/1/data/12/segmentations/7" {
		t.Errorf("path = %s", gotPath)
	}
	if rec.BackendID != 7 {
		t.Errorf("backend id = %d, want unchanged 7", rec.BackendID)
	}
}

func TestSaveFailureKeepsEdits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := loadedModel(t, api.NewClient(srv.URL, "", 1))
	m.store.UpdateTranscription("edited")
	rec := m.store.Selected()

	m, cmd := applyUpdate(m, key('s'))
	m, _ = applyUpdate(m, cmd().(SaveErrorMsg))

	if rec.Saving {
		t.Error("saving flag should clear on failure")
	}
	if rec.Transcription != "edited" {
		t.Error("local edits must survive a failed save")
	}
	if m.errorMessage == "" || !m.errorTransient {
		t.Error("save failure should surface a transient error")
	}
}

func TestSaveWhileInFlightIsRefused(t *testing.T) {
	m := loadedModel(t, nil)
	m.store.Selected().Saving = true

	m, cmd := applyUpdate(m, key('s'))
	if m.errorMessage == "" {
		t.Error("second save should surface an error")
	}
	if cmd == nil {
		t.Fatal("expected the transient-clear command")
	}
	if _, ok := cmd().(ClearTransientErrorMsg); !ok {
		t.Error("refused save must not produce a network command")
	}
}

func TestDeleteUnsyncedIsLocal(t *testing.T) {
	// No server: a network call would panic the test via nil client.
	m := loadedModel(t, nil)
	m.store.CreateFromRegion(7, 9)
	rec := m.store.Selected()

	m, cmd := applyUpdate(m, key('x'))
	if cmd != nil {
		t.Error("unsynced delete must not produce a command")
	}
	if m.store.Contains(rec) {
		t.Error("unsynced record should be removed synchronously")
	}
	if m.store.Selected() != nil {
		t.Error("selection should clear")
	}
}

func TestDeleteSyncedRemovesOnlyAfterConfirm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
	}))
	defer srv.Close()

	m := loadedModel(t, api.NewClient(srv.URL, "", 1))
	rec := m.store.Selected()

	m, cmd := applyUpdate(m, key('x'))
	if !m.store.Contains(rec) {
		t.Fatal("record must stay until the backend confirms")
	}
	if !rec.Deleting {
		t.Error("record should be marked deleting")
	}

	m, _ = applyUpdate(m, cmd().(DeleteDoneMsg))
	if m.store.Contains(rec) {
		t.Error("record should be removed after the confirmed delete")
	}
}

func TestDeleteFailureRestoresRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "locked", http.StatusConflict)
	}))
	defer srv.Close()

	m := loadedModel(t, api.NewClient(srv.URL, "", 1))
	rec := m.store.Selected()

	m, cmd := applyUpdate(m, key('x'))
	m, _ = applyUpdate(m, cmd().(DeleteErrorMsg))

	if !m.store.Contains(rec) {
		t.Error("record should remain after a failed delete")
	}
	if m.store.Selected() != rec {
		t.Error("record should stay selected after a failed delete")
	}
	if m.errorMessage == "" {
		t.Error("delete failure should be surfaced")
	}
}

func TestAutoScanNeverMovesEditableSelection(t *testing.T) {
	m := loadedModel(t, nil)
	first := m.store.Records()[0]
	second := m.store.Records()[1]

	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeySpace}) // play
	m.play.Seek(4.5)                                      // inside the second segment
	m.play.Play()
	m, _ = applyUpdate(m, TickMsg{})

	if m.nowPlaying != second {
		t.Error("playhead context should follow the region under the position")
	}
	if m.store.Selected() != first {
		t.Error("auto-scan must not move the editable selection")
	}

	// Pausing clears the advisory context but not the selection.
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeySpace})
	m, _ = applyUpdate(m, TickMsg{})
	if m.nowPlaying != nil {
		t.Error("pause should clear the playhead context")
	}
	if m.store.Selected() != first {
		t.Error("selection should survive pause")
	}
}

func TestSegmentPickPlaysRegionAndSelects(t *testing.T) {
	m := loadedModel(t, nil)
	second := m.store.Records()[1]

	m, _ = applyUpdate(m, key('j')) // move selection to the second segment
	if m.store.Selected() != second {
		t.Fatal("j should select the next segment")
	}

	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.play.Playing() {
		t.Error("picking a segment should start playback")
	}
	if m.play.Position() != second.Start {
		t.Errorf("position = %g, want segment start %g", m.play.Position(), second.Start)
	}

	// The region scope auto-pauses at the segment end.
	for i := 0; i < 20; i++ {
		m, _ = applyUpdate(m, TickMsg{})
	}
	if m.play.Playing() {
		t.Error("playback should auto-pause at the segment end")
	}
	if m.play.Position() != second.End {
		t.Errorf("position = %g, want clamped to %g", m.play.Position(), second.End)
	}
}

func TestTranscriptEditing(t *testing.T) {
	m := loadedModel(t, nil)
	rec := m.store.Selected()
	rec.Transcription = ""

	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyTab}) // timeline -> transcript
	if m.focus != FocusTranscript {
		t.Fatalf("focus = %v, want transcript", m.focus)
	}

	for _, r := range "hi" {
		m, _ = applyUpdate(m, key(r))
	}
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeySpace})
	m, _ = applyUpdate(m, key('u'))
	if rec.Transcription != "hi u" {
		t.Errorf("transcription = %q, want %q", rec.Transcription, "hi u")
	}

	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyBackspace})
	if rec.Transcription != "hi " {
		t.Errorf("transcription = %q, want %q", rec.Transcription, "hi ")
	}

	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.focus != FocusTimeline {
		t.Error("esc should return focus to the timeline")
	}
}

func TestTranscriptFocusFallsBackWhenSelectionGone(t *testing.T) {
	m := loadedModel(t, nil)
	m.focus = FocusTranscript
	m.store.Select(nil)

	m, _ = applyUpdate(m, key('a'))
	if m.focus != FocusTimeline {
		t.Error("editing without a selection should fall back to the timeline")
	}
}

func TestLabelToggleReplacesValueSet(t *testing.T) {
	m := loadedModel(t, nil)
	rec := m.store.Selected()
	m.focus = FocusLabels
	m.labelIndex = 1 // "noise", multiselect

	// Choose traffic(2) and wind(5), then untoggle traffic.
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	m.valueIndex = 1
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	m.valueIndex = 0
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})

	e := rec.Annotations["noise"]
	if len(e.ValueIDs) != 1 || e.ValueIDs[0] != 5 {
		t.Errorf("value ids = %v, want [5]", e.ValueIDs)
	}
}

func TestSingleChoiceToggleClears(t *testing.T) {
	m := loadedModel(t, nil)
	rec := m.store.Selected()
	m.focus = FocusLabels
	m.labelIndex = 0 // "mood", single-choice

	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	if e := rec.Annotations["mood"]; len(e.ValueIDs) != 1 || e.ValueIDs[0] != 3 {
		t.Fatalf("mood = %+v, want [3]", e)
	}

	// Toggling the chosen value again clears the answer entirely.
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	if _, ok := rec.Annotations["mood"]; ok {
		t.Error("re-toggling should leave the label unanswered")
	}
}

func TestReviewFlagKeepsUserValueOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	m := loadedModel(t, api.NewClient(srv.URL, "", 1))
	m, cmd := applyUpdate(m, key('m'))
	if !m.reviewed || !m.reviewBusy {
		t.Fatal("toggle should apply immediately and mark busy")
	}

	m, _ = applyUpdate(m, cmd().(ReviewErrorMsg))
	if !m.reviewed {
		t.Error("checkbox must keep the user's value after a failed update")
	}
	if m.reviewBusy {
		t.Error("busy flag should clear")
	}
	if m.errorMessage == "" {
		t.Error("review failure should be surfaced")
	}
}

func TestMarkRangeCreatesSegment(t *testing.T) {
	m := loadedModel(t, nil)

	m.play.Seek(7)
	m, _ = applyUpdate(m, key('['))
	m.play.Seek(9)
	m, _ = applyUpdate(m, key(']'))

	if m.store.Len() != 3 {
		t.Fatalf("records = %d, want 3", m.store.Len())
	}
	rec := m.store.Selected()
	if rec.Start != 7 || rec.End != 9 || rec.Synced() {
		t.Errorf("new record = %+v, want unsynced [7, 9]", rec)
	}
	if m.focus != FocusTranscript {
		t.Error("a fresh segment should open the transcription editor")
	}
}

func TestMarkEndWithoutStartIsRejected(t *testing.T) {
	m := loadedModel(t, nil)
	m, _ = applyUpdate(m, key(']'))
	if m.errorMessage == "" {
		t.Error("closing an unopened mark should surface an error")
	}
	if m.store.Len() != 2 {
		t.Errorf("records = %d, want unchanged 2", m.store.Len())
	}
}

func TestViewRendersLoadedState(t *testing.T) {
	m := loadedModel(t, nil)
	view := m.View()
	if view == "" || view == "Initializing..." {
		t.Error("loaded view should render")
	}
}

func TestViewWithoutSize(t *testing.T) {
	m := New(nil, nil, testLogger(), 1)
	if view := m.View(); view != "Initializing..." {
		t.Errorf("view without size = %q", view)
	}
}
