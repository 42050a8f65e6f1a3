package compose

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat-server/internal/domain/chat"
)

func TestSubmitSnapshotsDraft(t *testing.T) {
	c := NewController()
	c.SetInput("  summarize the handbook  ")
	c.CommitUploadBatch([]chat.Attachment{{Name: "handbook.pdf", URL: "http://s/handbook.pdf"}})

	sub, err := c.Submit(nil)
	require.NoError(t, err)
	assert.Equal(t, "summarize the handbook", sub.Text)
	require.Len(t, sub.Attachments, 1)
	assert.Equal(t, "handbook.pdf", sub.Attachments[0].Name)

	// The draft clears but the attachment set stays for the next turn.
	assert.Empty(t, c.Input())
	assert.Len(t, c.Attachments(), 1)
}

func TestSubmitWhileTurnInFlight(t *testing.T) {
	c := NewController()
	c.SetInput("first question")

	_, err := c.Submit(nil)
	require.NoError(t, err)
	assert.True(t, c.Busy())

	c.SetInput("second question")
	_, err = c.Submit(nil)
	assert.ErrorIs(t, err, ErrTurnInFlight)
	assert.Equal(t, "second question", c.Input())

	c.Finish()
	sub, err := c.Submit(nil)
	require.NoError(t, err)
	assert.Equal(t, "second question", sub.Text)
}

func TestSubmitWhileUploadPending(t *testing.T) {
	c := NewController()
	c.SetInput("what does it say")
	c.BeginUploadBatch()

	_, err := c.Submit(nil)
	assert.ErrorIs(t, err, ErrUploadPending)

	c.CommitUploadBatch([]chat.Attachment{{Name: "a.pdf", URL: "http://s/a.pdf"}})
	_, err = c.Submit(nil)
	assert.NoError(t, err)
}

func TestSubmitEmpty(t *testing.T) {
	c := NewController()
	c.SetInput("   ")

	_, err := c.Submit(nil)
	assert.ErrorIs(t, err, ErrEmptySubmission)
}

func TestCommitUploadBatchReplacesSetWithSuccesses(t *testing.T) {
	c := NewController()
	c.CommitUploadBatch([]chat.Attachment{{Name: "old.pdf", URL: "http://s/old.pdf"}})

	// A new selection of three files where one fails commits only the
	// two successes, dropping the previous set.
	c.BeginUploadBatch()
	c.CommitUploadBatch([]chat.Attachment{
		{Name: "a.png", URL: "http://s/a.png"},
		{Name: "b.pdf", URL: "http://s/b.pdf"},
	})

	got := c.Attachments()
	require.Len(t, got, 2)
	assert.Equal(t, "a.png", got[0].Name)
	assert.Equal(t, "b.pdf", got[1].Name)
}

func TestStopCancelsTurn(t *testing.T) {
	c := NewController()
	c.SetInput("long question")

	ctx, cancel := context.WithCancel(context.Background())
	_, err := c.Submit(cancel)
	require.NoError(t, err)

	c.Stop()
	assert.Error(t, ctx.Err())
	assert.False(t, c.Busy())

	c.SetInput("next question")
	_, err = c.Submit(nil)
	assert.NoError(t, err)
}

func TestAttachmentsReturnsCopy(t *testing.T) {
	c := NewController()
	c.CommitUploadBatch([]chat.Attachment{{Name: "a.pdf", URL: "http://s/a.pdf"}})

	got := c.Attachments()
	got[0].Name = "mutated"

	assert.Equal(t, "a.pdf", c.Attachments()[0].Name)
}
