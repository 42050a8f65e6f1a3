// Package compose models the compose-box lifecycle: the draft text, the
// working attachment set, and the in-flight state of the current turn.
// It is plain state with no I/O so transports can drive it directly.
package compose

import (
	"context"
	"errors"
	"strings"
	"sync"

	"docchat-server/internal/domain/chat"
)

var (
	// ErrTurnInFlight is returned when a submit lands while the previous
	// turn is still streaming. Callers surface it as a "please wait" notice.
	ErrTurnInFlight = errors.New("please wait for the current response to finish")

	// ErrUploadPending is returned when a submit lands while attachment
	// uploads are still settling.
	ErrUploadPending = errors.New("please wait for attachments to finish uploading")

	// ErrEmptySubmission is returned when there is nothing to send.
	ErrEmptySubmission = errors.New("nothing to send")
)

// Submission is one outgoing turn: the draft text plus a snapshot of the
// attachment set at submit time.
type Submission struct {
	Text        string
	Attachments []chat.Attachment
}

// Controller serializes submits against the turn and upload lifecycle.
// One controller per conversation.
type Controller struct {
	mu             sync.Mutex
	input          string
	attachments    []chat.Attachment
	inFlight       bool
	pendingUploads int
	cancelTurn     context.CancelFunc
}

func NewController() *Controller {
	return &Controller{}
}

// SetInput replaces the draft text.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
}

// Input returns the current draft text.
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Attachments returns a copy of the working attachment set.
func (c *Controller) Attachments() []chat.Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Attachment(nil), c.attachments...)
}

// Busy reports whether a submit would currently be rejected.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight || c.pendingUploads > 0
}

// Submit snapshots the draft and attachment set and marks a turn in flight.
// It is a no-op with a typed error while a turn is streaming or an upload
// batch is settling. The attachment set is left in place after a send; only
// a new file selection replaces it.
func (c *Controller) Submit(cancel context.CancelFunc) (*Submission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight {
		return nil, ErrTurnInFlight
	}
	if c.pendingUploads > 0 {
		return nil, ErrUploadPending
	}

	text := strings.TrimSpace(c.input)
	if text == "" && len(c.attachments) == 0 {
		return nil, ErrEmptySubmission
	}

	submission := &Submission{
		Text:        text,
		Attachments: append([]chat.Attachment(nil), c.attachments...),
	}
	c.input = ""
	c.inFlight = true
	c.cancelTurn = cancel
	return submission, nil
}

// Finish marks the in-flight turn as settled, whether it completed or failed.
func (c *Controller) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	c.cancelTurn = nil
}

// Stop cancels the in-flight turn. Content already delivered stays as is;
// the controller simply becomes submittable again.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancelTurn
	c.inFlight = false
	c.cancelTurn = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// BeginUploadBatch records that a file selection started uploading. Submits
// are rejected until the batch settles via CommitUploadBatch.
func (c *Controller) BeginUploadBatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingUploads++
}

// CommitUploadBatch settles one upload batch and replaces the working
// attachment set with the uploads that succeeded. Failed uploads are simply
// absent from the new set.
func (c *Controller) CommitUploadBatch(succeeded []chat.Attachment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingUploads > 0 {
		c.pendingUploads--
	}
	c.attachments = append([]chat.Attachment(nil), succeeded...)
}
