// Package player models the playback position of the audio item. Audio
// output itself lives outside this program; the player advances a position
// clock that the UI timeline and the selection coordinator follow.
package player

// Player is a position clock over one audio clip. It supports free playback
// and region-scoped playback that auto-pauses at the region's end.
type Player struct {
	duration float64
	position float64
	playing  bool
	stopAt   float64 // >0 while region-scoped playback is active
}

// New creates a paused player at position zero.
func New(duration float64) *Player {
	return &Player{duration: duration}
}

// Playing reports whether the clock is advancing.
func (p *Player) Playing() bool { return p.playing }

// Position returns the current position in seconds.
func (p *Player) Position() float64 { return p.position }

// Duration returns the clip length in seconds.
func (p *Player) Duration() float64 { return p.duration }

// Play resumes free playback from the current position. A finished clip
// restarts from zero.
func (p *Player) Play() {
	if p.position >= p.duration {
		p.position = 0
	}
	p.playing = true
}

// Pause stops the clock in place.
func (p *Player) Pause() { p.playing = false }

// Toggle flips between playing and paused.
func (p *Player) Toggle() {
	if p.playing {
		p.Pause()
	} else {
		p.Play()
	}
}

// Seek jumps to pos, clamped to the clip, and drops any active region scope.
func (p *Player) Seek(pos float64) {
	if pos < 0 {
		pos = 0
	}
	if pos > p.duration {
		pos = p.duration
	}
	p.position = pos
	p.stopAt = 0
}

// PlayRegion starts playback at start and auto-pauses when the position
// reaches end.
func (p *Player) PlayRegion(start, end float64) {
	p.Seek(start)
	p.stopAt = end
	p.playing = true
}

// Advance moves the clock forward by dt seconds and reports whether playback
// auto-paused, either at the end of a scoped region or at the end of the
// clip. No-op while paused.
func (p *Player) Advance(dt float64) (stopped bool) {
	if !p.playing {
		return false
	}
	p.position += dt
	if p.stopAt > 0 && p.position >= p.stopAt {
		p.position = p.stopAt
		p.stopAt = 0
		p.playing = false
		return true
	}
	if p.position >= p.duration {
		p.position = p.duration
		p.playing = false
		return true
	}
	return false
}
