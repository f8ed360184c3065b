package usecase

import (
	"sync"
	"time"

	"petadopt/internal/domain/entity"
	"petadopt/pkg/logger"
)

// NotificationPresenter renders the unread badge and plays the new-message cue
// at most once per increase of the latest incoming message time.
type NotificationPresenter struct {
	mu         sync.Mutex
	badge      BadgeSink
	cue        CuePlayer
	activeRoom string
	alerted    time.Time
	primed     bool
}

func NewNotificationPresenter(badge BadgeSink, cue CuePlayer) *NotificationPresenter {
	return &NotificationPresenter{
		badge: badge,
		cue:   cue,
	}
}

// SetActiveRoom marks the room the viewer has open; new messages there play no cue.
func (p *NotificationPresenter) SetActiveRoom(roomID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeRoom = roomID
}

// Reset forgets the watermark, e.g. on sign-out.
func (p *NotificationPresenter) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeRoom = ""
	p.alerted = time.Time{}
	p.primed = false
}

// Present applies one aggregator snapshot. The first snapshot only sets the
// watermark, so reconnecting never replays a cue for messages already there.
func (p *NotificationPresenter) Present(state entity.UnreadState) {
	cueRoom := p.advance(state)

	if p.badge != nil {
		p.badge.ShowBadge(state)
	}
	if cueRoom == "" || p.cue == nil {
		return
	}
	if err := p.cue.PlayCue(cueRoom); err != nil {
		logger.Warn("Notification cue for room %s failed: %v", cueRoom, err)
	}
}

func (p *NotificationPresenter) advance(state entity.UnreadState) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.primed {
		p.primed = true
		p.alerted = state.LatestIncoming
		return ""
	}
	if !state.LatestIncoming.After(p.alerted) {
		return ""
	}

	var cueRoom string
	var cueAt time.Time
	for roomID, at := range state.IncomingAt {
		if !at.After(p.alerted) || roomID == p.activeRoom {
			continue
		}
		if cueRoom == "" || at.After(cueAt) || (at.Equal(cueAt) && roomID < cueRoom) {
			cueRoom, cueAt = roomID, at
		}
	}
	if state.IncomingAt == nil && state.LatestIncomingRoom != p.activeRoom {
		cueRoom = state.LatestIncomingRoom
	}

	// The watermark moves even when the only new message is in the open room.
	p.alerted = state.LatestIncoming
	return cueRoom
}
