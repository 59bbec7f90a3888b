package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kimmchii/audino/internal/segment"
	"github.com/kimmchii/audino/internal/ui"
)

// View renders the full editor.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}
	if m.loadErr != "" {
		return m.renderLoadError()
	}
	if !m.loaded {
		return ui.DimStyle.Render("  " + m.statusText)
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, m.renderTimelineBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderSegmentList())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderEditor())
	sections = append(sections, m.renderLabelPanel())
	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderLoadError() string {
	var b strings.Builder
	b.WriteString(ui.TitleStyle.Render("AUDINO") + "\n\n")
	b.WriteString(ui.ErrorStyle.Render("Could not load the audio item.") + "\n")
	for _, line := range wrapText(m.loadErr, max(20, m.width-4)) {
		b.WriteString(ui.ErrorTextStyle.Render("  "+line) + "\n")
	}
	b.WriteString("\n" + ui.DimStyle.Render("Check the backend and restart. Press q to quit."))
	return b.String()
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("AUDINO")

	var file string
	if m.filename != "" {
		file = ui.DimStyle.Render(" — " + m.filename)
	}

	var review string
	if m.reviewed {
		review = "  " + ui.ReviewBadgeStyle.Render("[REVIEW]")
	}
	if m.reviewBusy {
		review += "  " + ui.BusyBadgeStyle.Render("⟳")
	}

	return title + file + review
}

func (m Model) renderStatusBar() string {
	var dot string
	if m.play.Playing() {
		dot = ui.PlayingDotStyle.Render("▶ PLAY")
	} else {
		dot = ui.PausedDotStyle.Render("■ PAUSE")
	}

	clock := ui.TimestampStyle.Render(
		fmt.Sprintf("  %s / %s", formatTime(m.play.Position()), formatTime(m.play.Duration())))

	var mark string
	if m.markStart >= 0 {
		mark = ui.UnsyncedBadgeStyle.Render(fmt.Sprintf("  [mark %s]", formatTime(m.markStart)))
	}

	return dot + clock + mark + "  " + ui.StatusStyle.Render(m.statusText)
}

// renderTimelineBar draws the clip as one row of cells: segment spans,
// the playhead, and the selected segment highlighted.
func (m Model) renderTimelineBar() string {
	width := max(10, m.width-2)
	cells := make([]string, width)
	for i := range cells {
		cells[i] = ui.DimStyle.Render("·")
	}

	duration := m.play.Duration()
	col := func(pos float64) int {
		c := int(pos / duration * float64(width))
		if c >= width {
			c = width - 1
		}
		if c < 0 {
			c = 0
		}
		return c
	}

	selected := m.store.Selected()
	for _, r := range m.store.Records() {
		style := ui.RegionStyle
		if r == selected {
			style = ui.RegionSelectedStyle
		}
		for c := col(r.Start); c <= col(r.End); c++ {
			cells[c] = style.Render("█")
		}
	}

	cells[col(m.play.Position())] = ui.PlayheadStyle.Render("┃")

	return " " + strings.Join(cells, "")
}

func (m Model) renderSegmentList() string {
	var header string
	title := fmt.Sprintf("SEGMENTS (%d)", m.store.Len())
	if m.focus == FocusTimeline {
		header = ui.PanelTitleActiveStyle.Render(title)
	} else {
		header = ui.PanelTitleStyle.Render(title)
	}

	lines := []string{header}
	selected := m.store.Selected()
	for i, r := range m.store.Records() {
		lines = append(lines, m.renderSegmentLine(i, r, r == selected))
	}
	if m.nowPlaying != nil {
		context := truncateToWidth("  ▶ "+m.nowPlaying.Transcription, max(10, m.width-2))
		lines = append(lines, ui.NowPlayingStyle.Render(context))
	}
	if m.referenceText != "" {
		lines = append(lines, ui.ReferenceStyle.Render(
			truncateToWidth("  ref: "+m.referenceText, max(10, m.width-2))))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSegmentLine(i int, r *segment.Record, selected bool) string {
	span := fmt.Sprintf("[%s–%s]", formatTime(r.Start), formatTime(r.End))

	var badge string
	switch {
	case r.Saving:
		badge = ui.BusyBadgeStyle.Render(" saving")
	case r.Deleting:
		badge = ui.BusyBadgeStyle.Render(" deleting")
	case !r.Synced():
		badge = ui.UnsyncedBadgeStyle.Render(" ●new")
	default:
		badge = ui.SyncedBadgeStyle.Render(fmt.Sprintf(" #%d", r.BackendID))
	}

	text := r.Transcription
	if text == "" {
		text = "(no transcription)"
	}

	line := fmt.Sprintf("%2d. %s %s", i+1, span, text)
	line = truncateToWidth(line, max(10, m.width-12))
	if selected {
		return ui.SelectedStyle.Render("> "+line) + badge
	}
	return "  " + line + badge
}

func (m Model) renderEditor() string {
	var header string
	if m.focus == FocusTranscript {
		header = ui.PanelTitleActiveStyle.Render("TRANSCRIPTION")
	} else {
		header = ui.PanelTitleStyle.Render("TRANSCRIPTION")
	}

	r := m.store.Selected()
	if r == nil {
		return header + "\n" + ui.DimStyle.Render("  No segment selected")
	}

	text := r.Transcription
	var cursor string
	if m.focus == FocusTranscript {
		cursor = ui.InputCursorStyle.Render(" ")
	}

	lines := []string{header}
	wrapped := wrapText(text, max(10, m.width-4))
	for i, wl := range wrapped {
		if i == len(wrapped)-1 {
			lines = append(lines, "  "+wl+cursor)
		} else {
			lines = append(lines, "  "+wl)
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLabelPanel() string {
	var header string
	if m.focus == FocusLabels {
		header = ui.PanelTitleActiveStyle.Render("LABELS")
	} else {
		header = ui.PanelTitleStyle.Render("LABELS")
	}

	lines := []string{header}
	if len(m.labelNames) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No labels defined for this project"))
		return strings.Join(lines, "\n")
	}

	r := m.store.Selected()
	for li, name := range m.labelNames {
		def := m.catalog[name]

		kind := "one of"
		if def.Multi {
			kind = "any of"
		}
		nameCell := fmt.Sprintf("%s (%s): ", name, kind)
		if li == m.labelIndex && m.focus == FocusLabels {
			nameCell = ui.SelectedStyle.Render(nameCell)
		} else {
			nameCell = ui.DimStyle.Render(nameCell)
		}

		var chips []string
		for vi, v := range def.Values {
			chosen := r != nil && entryHasValue(r, name, v.ID)
			chip := "[ ] " + v.Text
			if chosen {
				chip = "[x] " + v.Text
			}
			if m.focus == FocusLabels && li == m.labelIndex && vi == m.valueIndex {
				chip = ui.SelectedStyle.Render(chip)
			} else if chosen {
				chip = ui.SyncedBadgeStyle.Render(chip)
			}
			chips = append(chips, chip)
		}
		lines = append(lines, "  "+nameCell+strings.Join(chips, "  "))
	}
	return strings.Join(lines, "\n")
}

func entryHasValue(r *segment.Record, labelName string, valueID int) bool {
	e, ok := r.Annotations[labelName]
	if !ok {
		return false
	}
	for _, id := range e.ValueIDs {
		if id == valueID {
			return true
		}
	}
	return false
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	var parts []string

	add := func(key, desc string) {
		parts = append(parts, ui.FooterKeyStyle.Render(key)+ui.FooterDescStyle.Render(" "+desc))
	}

	add("Space", "Play")
	add("←→", "Seek")
	add("j/k", "Segment")
	add("Enter", "Play segment")
	add("[ ]", "Draw")
	add("Tab", "Focus")
	add("s", "Save")
	add("x", "Delete")
	add("m", "Review")
	add("n", "Next item")
	add("q", "Quit")

	return strings.Join(parts, "  ")
}

// Helpers

func formatTime(sec float64) string {
	total := int(sec)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func truncateToWidth(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			switch {
			case current == "":
				current = word
			case len(current)+1+len(word) <= width:
				current += " " + word
			default:
				lines = append(lines, current)
				current = word
			}
		}
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
