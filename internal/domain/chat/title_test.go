package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTitle(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		messages []Message
		expected string
	}{
		{
			name: "short question kept whole",
			messages: []Message{
				{Role: RoleUser, Content: "What is the refund policy?"},
			},
			expected: "What is the refund policy?",
		},
		{
			name: "question text through first question mark",
			messages: []Message{
				{Role: RoleUser, Content: "What is the refund policy? Also what about fees?"},
			},
			expected: "What is the refund policy?",
		},
		{
			name: "long question truncated with ellipsis",
			messages: []Message{
				{Role: RoleUser, Content: "Could you please summarize the entire enrollment handbook for me in detail?"},
			},
			expected: "Could you please summarize the entire enrollmen...",
		},
		{
			name: "long statement truncated to first eight words",
			messages: []Message{
				{Role: RoleUser, Content: "Please give me a detailed summary of the uploaded enrollment handbook right now"},
			},
			expected: "Please give me a detailed summary of the...",
		},
		{
			name: "short statement kept whole",
			messages: []Message{
				{Role: RoleUser, Content: "Summarize the handbook"},
			},
			expected: "Summarize the handbook",
		},
		{
			name: "small talk skipped in favor of next message",
			messages: []Message{
				{Role: RoleUser, Content: "hi"},
				{Role: RoleAssistant, Content: "Hello! How can I help?"},
				{Role: RoleUser, Content: "Summarize the handbook"},
			},
			expected: "Summarize the handbook",
		},
		{
			name: "small talk case insensitive",
			messages: []Message{
				{Role: RoleUser, Content: "Hello"},
			},
			expected: "Chat from 3/14/2026",
		},
		{
			name: "too short content skipped",
			messages: []Message{
				{Role: RoleUser, Content: "ok"},
			},
			expected: "Chat from 3/14/2026",
		},
		{
			name: "transcript without user messages is untitled",
			messages: []Message{
				{Role: RoleAssistant, Content: "What would you like to know?"},
			},
			expected: "Untitled Chat",
		},
		{
			name: "blank user messages count as absent",
			messages: []Message{
				{Role: RoleUser, Content: "   "},
				{Role: RoleAssistant, Content: "Hello!"},
			},
			expected: "Untitled Chat",
		},
		{
			name: "multibyte question truncated at rune boundary",
			messages: []Message{
				{Role: RoleUser, Content: strings.Repeat("é", 60) + "?"},
			},
			expected: strings.Repeat("é", 47) + "...",
		},
		{
			name: "multibyte statement truncated at rune boundary",
			messages: []Message{
				{Role: RoleUser, Content: strings.Repeat("ü", 30) + " " + strings.Repeat("ö", 30)},
			},
			expected: strings.Repeat("ü", 30) + " " + strings.Repeat("ö", 16) + "...",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Chat{Messages: tc.messages, CreatedAt: createdAt}
			assert.Equal(t, tc.expected, DeriveTitle(c))
		})
	}
}

func TestDeriveTitleEmptyChat(t *testing.T) {
	assert.Equal(t, "Untitled Chat", DeriveTitle(nil))
	assert.Equal(t, "Untitled Chat", DeriveTitle(&Chat{}))
}
