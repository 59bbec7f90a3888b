package app

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kimmchii/audino/internal/api"
	"github.com/kimmchii/audino/internal/db"
	"github.com/kimmchii/audino/internal/player"
	"github.com/kimmchii/audino/internal/segment"

	tea "github.com/charmbracelet/bubbletea"
)

// The playback clock ticks five times a second; sub-second accuracy is
// plenty for a textual timeline.
const (
	tickInterval = 200 * time.Millisecond
	tickSeconds  = 0.2
)

// PanelFocus tracks which panel has keyboard focus.
type PanelFocus int

const (
	FocusTimeline PanelFocus = iota
	FocusTranscript
	FocusLabels
)

// Model is the root bubbletea model for the annotation editor. All state
// mutation happens in Update; backend calls run as commands and report back
// through typed messages.
type Model struct {
	client *api.Client
	drafts *db.Store // nil when the local journal is unavailable
	log    *logrus.Logger

	// Audio item context
	dataID        int
	filename      string
	referenceText string
	reviewed      bool
	reviewBusy    bool

	// Core state
	catalog    segment.Catalog
	labelNames []string
	store      *segment.Store
	play       *player.Player

	// Advisory display of the record under the playhead while audio plays.
	// Auto-scan never moves the editable selection; only explicit segment
	// picks on the timeline do.
	nowPlaying *segment.Record

	// Load state
	loaded  bool
	loadErr string

	// Region drawing: start mark set at the playhead, -1 when unset
	markStart float64

	// UI state
	focus      PanelFocus
	labelIndex int
	valueIndex int
	width      int
	height     int

	// Errors and status
	errorMessage   string
	errorTransient bool
	statusText     string
}

// New creates a model for one audio item. drafts may be nil.
func New(client *api.Client, drafts *db.Store, log *logrus.Logger, dataID int) Model {
	return Model{
		client:     client,
		drafts:     drafts,
		log:        log,
		dataID:     dataID,
		markStart:  -1,
		statusText: "Loading...",
	}
}

// Init starts the session load and the playback clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(loadSessionCmd(m.client, m.dataID), tickCmd())
}

// loadSessionCmd runs the two load-time fetches: the label catalog, then the
// audio item's segmentation data.
func loadSessionCmd(client *api.Client, dataID int) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		labels, err := client.LoadLabels(ctx)
		if err != nil {
			return SessionLoadErrorMsg{Err: err}
		}
		data, err := client.LoadData(ctx, dataID)
		if err != nil {
			return SessionLoadErrorMsg{Err: err}
		}
		return SessionLoadedMsg{Labels: labels, Data: data, DataID: dataID}
	}
}

// saveCmd issues a create for a never-synced record and an update otherwise.
// backendID and payload are captured before the command runs so the
// goroutine never reads the live record.
func saveCmd(client *api.Client, dataID, backendID int, r *segment.Record, p api.SegmentPayload) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if backendID == 0 {
			id, err := client.CreateSegment(ctx, dataID, p)
			if err != nil {
				return SaveErrorMsg{Record: r, Err: err}
			}
			return SaveDoneMsg{Record: r, BackendID: id}
		}
		if err := client.UpdateSegment(ctx, dataID, backendID, p); err != nil {
			return SaveErrorMsg{Record: r, Err: err}
		}
		return SaveDoneMsg{Record: r, BackendID: backendID}
	}
}

// deleteCmd issues a backend delete for a synced record.
func deleteCmd(client *api.Client, dataID, backendID int, r *segment.Record) tea.Cmd {
	return func() tea.Msg {
		if err := client.DeleteSegment(context.Background(), dataID, backendID); err != nil {
			return DeleteErrorMsg{Record: r, Err: err}
		}
		return DeleteDoneMsg{Record: r}
	}
}

// reviewCmd updates the item-level reviewed flag.
func reviewCmd(client *api.Client, dataID int, marked bool) tea.Cmd {
	return func() tea.Msg {
		if err := client.SetReviewFlag(context.Background(), dataID, marked); err != nil {
			return ReviewErrorMsg{Err: err}
		}
		return ReviewDoneMsg{Marked: marked}
	}
}

// tickCmd schedules the next playback clock tick.
func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// journalDraftCmd writes one draft row. Journal trouble is logged, never
// surfaced; drafts are advisory.
func journalDraftCmd(log *logrus.Logger, drafts *db.Store, d db.Draft) tea.Cmd {
	return func() tea.Msg {
		if err := drafts.PutDraft(d); err != nil {
			log.WithError(err).Warn("draft journal write failed")
		}
		return nil
	}
}

// clearDraftCmd drops the draft row for a slot after a successful save or a
// local removal.
func clearDraftCmd(log *logrus.Logger, drafts *db.Store, dataID, slot int) tea.Cmd {
	return func() tea.Msg {
		if err := drafts.DeleteDraft(dataID, slot); err != nil {
			log.WithError(err).Warn("draft journal delete failed")
		}
		return nil
	}
}

// inspectDraftsCmd logs leftover drafts from a previous session.
func inspectDraftsCmd(log *logrus.Logger, drafts *db.Store, dataID int) tea.Cmd {
	return func() tea.Msg {
		rows, err := drafts.DraftsForData(dataID)
		if err != nil {
			log.WithError(err).Warn("draft journal read failed")
			return nil
		}
		if len(rows) > 0 {
			log.WithFields(logrus.Fields{"data_id": dataID, "drafts": len(rows)}).
				Info("leftover drafts from a previous session")
		}
		return nil
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SessionLoadedMsg:
		return m.applySessionLoaded(msg)

	case SessionLoadErrorMsg:
		m.loaded = false
		m.loadErr = msg.Err.Error()
		m.log.WithError(msg.Err).Error("session load failed")
		return m, nil

	case SaveDoneMsg:
		if m.store == nil {
			return m, nil
		}
		if err := m.store.CompleteSave(msg.Record, msg.BackendID); err != nil {
			return m.transientError("save: " + err.Error())
		}
		if !m.store.Contains(msg.Record) {
			// Late response for a record deleted locally in the meantime.
			return m, nil
		}
		m.statusText = "Saved"
		m.log.WithField("segmentation_id", msg.Record.BackendID).Debug("segment saved")
		if m.drafts != nil {
			return m, clearDraftCmd(m.log, m.drafts, m.dataID, m.store.IndexOf(msg.Record))
		}
		return m, nil

	case SaveErrorMsg:
		if m.store != nil {
			m.store.FailSave(msg.Record)
		}
		m.log.WithError(msg.Err).Warn("save failed")
		return m.transientError("save failed: " + msg.Err.Error())

	case DeleteDoneMsg:
		if m.store != nil {
			m.store.CompleteDelete(msg.Record)
		}
		m.statusText = "Segment deleted"
		return m, nil

	case DeleteErrorMsg:
		if m.store != nil {
			m.store.FailDelete(msg.Record)
		}
		m.log.WithError(msg.Err).Warn("delete failed")
		return m.transientError("delete failed: " + msg.Err.Error())

	case ReviewDoneMsg:
		m.reviewBusy = false
		if msg.Marked {
			m.statusText = "Marked for review"
		} else {
			m.statusText = "Review mark cleared"
		}
		return m, nil

	case ReviewErrorMsg:
		// The checkbox stays as the user set it; only the error shows.
		m.reviewBusy = false
		m.log.WithError(msg.Err).Warn("review flag update failed")
		return m.transientError("review flag: " + msg.Err.Error())

	case TickMsg:
		if m.loaded {
			if m.play.Advance(tickSeconds) {
				m.statusText = "Paused"
			}
			m.syncNowPlaying()
		}
		return m, tickCmd()

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

// applySessionLoaded hydrates the store from the two load-time fetches. A
// malformed payload is fatal: no partial UI comes up.
func (m Model) applySessionLoaded(msg SessionLoadedMsg) (tea.Model, tea.Cmd) {
	catalog := msg.Labels.Catalog()

	rows := make([]segment.Hydrated, 0, len(msg.Data.Segmentations))
	for _, s := range msg.Data.Segmentations {
		rows = append(rows, s.Hydrated())
	}

	duration := msg.Data.Duration
	if duration <= 0 {
		// Older backends omit the duration; fall back to the last segment
		// end, or a minute for an unsegmented item.
		for _, r := range rows {
			if r.End > duration {
				duration = r.End
			}
		}
		if duration <= 0 {
			duration = 60
		}
	}

	store := segment.NewStore(catalog)
	if err := store.Hydrate(rows, duration); err != nil {
		m.loaded = false
		m.loadErr = err.Error()
		m.log.WithError(err).Error("segmentation payload rejected")
		return m, nil
	}

	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)

	m.catalog = catalog
	m.labelNames = names
	m.store = store
	m.play = player.New(duration)
	m.dataID = msg.DataID
	m.filename = msg.Data.Filename
	m.referenceText = msg.Data.ReferenceTranscription
	m.reviewed = msg.Data.IsMarkedForReview
	m.loaded = true
	m.loadErr = ""
	m.nowPlaying = nil
	m.markStart = -1
	m.focus = FocusTimeline
	m.labelIndex = 0
	m.valueIndex = 0
	m.statusText = "Ready"

	m.log.WithFields(logrus.Fields{
		"data_id":  m.dataID,
		"segments": store.Len(),
		"labels":   len(names),
	}).Info("session loaded")

	if m.drafts != nil {
		return m, inspectDraftsCmd(m.log, m.drafts, m.dataID)
	}
	return m, nil
}

// syncNowPlaying keeps the advisory playhead context in step with the
// playback position: entering a region shows it, leaving or pausing clears
// it. The editable selection is untouched.
func (m *Model) syncNowPlaying() {
	if !m.play.Playing() {
		m.nowPlaying = nil
		return
	}
	m.nowPlaying = m.store.RecordAt(m.play.Position())
}

func (m Model) transientError(text string) (tea.Model, tea.Cmd) {
	m.errorMessage = text
	m.errorTransient = true
	return m, clearTransientErrorCmd()
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == KeyCtrlC {
		return m, tea.Quit
	}

	if !m.loaded {
		if key == KeyQuit || key == KeyQuitUpper {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.focus == FocusTranscript {
		return m.handleTranscriptKey(msg)
	}

	switch key {
	case KeyQuit, KeyQuitUpper:
		return m, tea.Quit

	case KeySpace:
		m.play.Toggle()
		if m.play.Playing() {
			m.statusText = "Playing"
		} else {
			m.statusText = "Paused"
		}
		m.syncNowPlaying()
		return m, nil

	case KeyTab:
		return m.cycleFocus(), nil

	case KeyLeft:
		m.play.Seek(m.play.Position() - 1)
		m.syncNowPlaying()
		return m, nil

	case KeyRight:
		m.play.Seek(m.play.Position() + 1)
		m.syncNowPlaying()
		return m, nil

	case KeyNext, KeyDown:
		if m.focus == FocusLabels {
			m.moveValueCursor(1)
			return m, nil
		}
		m.selectAdjacent(1)
		return m, nil

	case KeyPrev, KeyUp:
		if m.focus == FocusLabels {
			m.moveValueCursor(-1)
			return m, nil
		}
		m.selectAdjacent(-1)
		return m, nil

	case KeyValuesLeft:
		if m.focus == FocusLabels {
			m.moveLabelCursor(-1)
		}
		return m, nil

	case KeyValuesRight:
		if m.focus == FocusLabels {
			m.moveLabelCursor(1)
		}
		return m, nil

	case KeyEnter:
		if m.focus == FocusLabels {
			return m.toggleLabelValue()
		}
		// Timeline pick: the segment becomes the editable selection and
		// plays on its own, pausing at its end.
		if r := m.store.Selected(); r != nil {
			m.play.PlayRegion(r.Start, r.End)
			m.nowPlaying = r
			m.statusText = "Playing segment"
		}
		return m, nil

	case KeySave:
		return m.beginSave()

	case KeyDelete:
		return m.beginDelete()

	case KeyReview:
		if m.reviewBusy {
			return m.transientError("review update already in flight")
		}
		m.reviewed = !m.reviewed
		m.reviewBusy = true
		m.statusText = "Updating review mark..."
		return m, reviewCmd(m.client, m.dataID, m.reviewed)

	case KeyMarkStart:
		m.markStart = m.play.Position()
		m.statusText = "Segment start marked"
		return m, nil

	case KeyMarkEnd:
		return m.createFromMark()

	case KeyNextItem:
		m.loaded = false
		m.loadErr = ""
		m.statusText = "Loading..."
		next := m.dataID + 1
		return m, loadSessionCmd(m.client, next)
	}

	return m, nil
}

// handleTranscriptKey edits the selected record's transcription. If the
// selection vanished while the editor was focused (a delete resolving
// underneath it), focus falls back to the timeline.
func (m Model) handleTranscriptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	r := m.store.Selected()
	if r == nil {
		m.focus = FocusTimeline
		return m, nil
	}

	switch msg.String() {
	case KeyTab:
		m.focus = FocusLabels
		return m, nil
	case KeyEsc, KeyEnter:
		m.focus = FocusTimeline
		return m, nil
	case KeyBackspace:
		if r.Transcription != "" {
			runes := []rune(r.Transcription)
			m.store.UpdateTranscription(string(runes[:len(runes)-1]))
			return m, m.journalSelected()
		}
		return m, nil
	case KeySpace:
		m.store.UpdateTranscription(r.Transcription + " ")
		return m, m.journalSelected()
	}

	if msg.Type == tea.KeyRunes {
		m.store.UpdateTranscription(r.Transcription + string(msg.Runes))
		return m, m.journalSelected()
	}
	return m, nil
}

func (m Model) cycleFocus() Model {
	switch m.focus {
	case FocusTimeline:
		if m.store.Selected() != nil {
			m.focus = FocusTranscript
		} else {
			m.focus = FocusLabels
		}
	case FocusTranscript:
		m.focus = FocusLabels
	default:
		m.focus = FocusTimeline
	}
	return m
}

// selectAdjacent moves the editable selection along the timeline.
func (m *Model) selectAdjacent(step int) {
	if m.store.Len() == 0 {
		return
	}
	idx := m.store.IndexOf(m.store.Selected())
	if idx < 0 {
		m.store.SelectIndex(0)
		return
	}
	next := idx + step
	if next >= 0 && next < m.store.Len() {
		m.store.SelectIndex(next)
	}
}

func (m *Model) moveLabelCursor(step int) {
	if len(m.labelNames) == 0 {
		return
	}
	m.labelIndex = (m.labelIndex + step + len(m.labelNames)) % len(m.labelNames)
	m.valueIndex = 0
}

func (m *Model) moveValueCursor(step int) {
	if len(m.labelNames) == 0 {
		return
	}
	values := m.catalog[m.labelNames[m.labelIndex]].Values
	if len(values) == 0 {
		return
	}
	m.valueIndex = (m.valueIndex + step + len(values)) % len(values)
}

// toggleLabelValue flips the highlighted value on the selected record and
// submits the full replacement set to the store.
func (m Model) toggleLabelValue() (tea.Model, tea.Cmd) {
	r := m.store.Selected()
	if r == nil || len(m.labelNames) == 0 {
		return m, nil
	}
	name := m.labelNames[m.labelIndex]
	def := m.catalog[name]
	if m.valueIndex >= len(def.Values) {
		return m, nil
	}
	v := def.Values[m.valueIndex]

	current := r.Annotations[name].ValueIDs
	var next []int
	if def.Multi {
		removed := false
		for _, id := range current {
			if id == v.ID {
				removed = true
				continue
			}
			next = append(next, id)
		}
		if !removed {
			next = append(next, v.ID)
		}
	} else {
		if len(current) == 1 && current[0] == v.ID {
			next = nil
		} else {
			next = []int{v.ID}
		}
	}

	if err := m.store.UpdateAnnotation(name, next); err != nil {
		return m.transientError(err.Error())
	}
	return m, m.journalSelected()
}

// beginSave kicks off a create or update for the selected record.
func (m Model) beginSave() (tea.Model, tea.Cmd) {
	r, err := m.store.BeginSave()
	if err != nil {
		return m.transientError(err.Error())
	}
	m.statusText = "Saving..."
	return m, saveCmd(m.client, m.dataID, r.BackendID, r, api.PayloadFor(r))
}

// beginDelete removes the selected record: locally for a never-synced one,
// through the backend otherwise.
func (m Model) beginDelete() (tea.Model, tea.Cmd) {
	slot := m.store.IndexOf(m.store.Selected())
	r, needsBackend, err := m.store.BeginDelete()
	if err != nil {
		return m.transientError(err.Error())
	}
	if !needsBackend {
		m.statusText = "Segment removed"
		if m.drafts != nil {
			return m, clearDraftCmd(m.log, m.drafts, m.dataID, slot)
		}
		return m, nil
	}
	m.statusText = "Deleting..."
	return m, deleteCmd(m.client, m.dataID, r.BackendID, r)
}

// createFromMark turns the marked range into a new segment.
func (m Model) createFromMark() (tea.Model, tea.Cmd) {
	if m.markStart < 0 {
		return m.transientError("no segment start marked, press [ first")
	}
	start, end := m.markStart, m.play.Position()
	m.markStart = -1
	if _, err := m.store.CreateFromRegion(start, end); err != nil {
		return m.transientError(err.Error())
	}
	m.statusText = "Segment created"
	m.focus = FocusTranscript
	return m, m.journalSelected()
}

// journalSelected snapshots the selected record into the draft journal.
func (m Model) journalSelected() tea.Cmd {
	r := m.store.Selected()
	if r == nil || m.drafts == nil {
		return nil
	}
	return journalDraftCmd(m.log, m.drafts, db.DraftOf(m.dataID, m.store.IndexOf(r), r))
}
