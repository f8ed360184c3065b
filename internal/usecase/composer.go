package usecase

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"petadopt/internal/domain/entity"
	"petadopt/pkg/errors"
)

const (
	IndicatorSent   = "sent"
	IndicatorFailed = "failed"
)

// Indicator is the transient outcome shown after a submit.
type Indicator struct {
	Kind      string    `json:"kind"`
	Message   string    `json:"message,omitempty"`
	Code      string    `json:"code,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Composer holds one user's draft for one room and allows a single send in flight.
type Composer struct {
	mu        sync.Mutex
	sender    MessageSender
	clock     clockwork.Clock
	ttl       time.Duration
	userID    string
	roomID    string
	draft     string
	sending   bool
	indicator *Indicator
}

func NewComposer(sender MessageSender, userID string, clock clockwork.Clock, indicatorTTL time.Duration) *Composer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Composer{
		sender: sender,
		clock:  clock,
		ttl:    indicatorTTL,
		userID: userID,
	}
}

// SetRoom points the composer at another room and discards the draft.
func (c *Composer) SetRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roomID == roomID {
		return
	}
	c.roomID = roomID
	c.draft = ""
	c.indicator = nil
}

func (c *Composer) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *Composer) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Composer) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// Indicator returns the current outcome indicator, or nil once it expired.
func (c *Composer) Indicator() *Indicator {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indicator == nil {
		return nil
	}
	if !c.clock.Now().Before(c.indicator.ExpiresAt) {
		c.indicator = nil
		return nil
	}
	copied := *c.indicator
	return &copied
}

// Submit sends the draft. The draft is cleared only after the durable write
// succeeds; on failure it is kept for a manual retry.
func (c *Composer) Submit(ctx context.Context) (*entity.Message, error) {
	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return nil, errors.Conflict("a message is already being sent")
	}
	if c.roomID == "" {
		c.mu.Unlock()
		return nil, errors.Validation("no room selected")
	}
	text := c.draft
	if _, err := SanitizeText(text); err != nil {
		c.indicator = c.newIndicator(IndicatorFailed, err)
		c.mu.Unlock()
		return nil, err
	}
	c.sending = true
	roomID := c.roomID
	c.mu.Unlock()

	message, err := c.sender.SendMessage(ctx, roomID, c.userID, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = false
	if err != nil {
		c.indicator = c.newIndicator(IndicatorFailed, err)
		return nil, err
	}
	// Text typed while the send was in flight stays in the draft.
	if c.roomID == roomID && c.draft == text {
		c.draft = ""
	}
	c.indicator = c.newIndicator(IndicatorSent, nil)
	return message, nil
}

func (c *Composer) newIndicator(kind string, err error) *Indicator {
	ind := &Indicator{
		Kind:      kind,
		ExpiresAt: c.clock.Now().Add(c.ttl),
	}
	if err != nil {
		ind.Code = errors.Code(err)
		ind.Message = err.Error()
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			ind.Message = appErr.Message
		}
	}
	return ind
}
