package chat

import (
	"regexp"
	"strings"
)

const (
	titleMaxLen      = 50
	titleTruncateLen = 47
	titleMaxWords    = 8
)

// smallTalkPattern matches throwaway openers that make poor titles.
var smallTalkPattern = regexp.MustCompile(`(?i)^(hi|hello|hey|test)$`)

// DeriveTitle produces a human-readable title from the first meaningful user
// message. Messages shorter than three characters and small-talk openers are
// skipped. Questions keep their text through the first question mark; other
// messages are truncated to roughly the first eight words. Falls back to a
// date-stamped placeholder when nothing qualifies.
func DeriveTitle(c *Chat) string {
	if c == nil || len(c.Messages) == 0 {
		return "Untitled Chat"
	}

	var userMessages []string
	for _, msg := range ToUIMessages(c.Messages) {
		if msg.Role != RoleUser {
			continue
		}
		if content := strings.TrimSpace(msg.Content); content != "" {
			userMessages = append(userMessages, content)
		}
	}
	if len(userMessages) == 0 {
		return "Untitled Chat"
	}

	for _, content := range userMessages {
		if len(content) < 3 || smallTalkPattern.MatchString(content) {
			continue
		}

		if idx := strings.Index(content, "?"); idx >= 0 {
			question := content[:idx+1]
			if len(question) <= titleMaxLen {
				return question
			}
			return truncateRunes(question, titleTruncateLen) + "..."
		}

		if len(content) <= titleMaxLen {
			return content
		}

		words := strings.Fields(content)
		if len(words) > titleMaxWords {
			words = words[:titleMaxWords]
		}
		return truncateRunes(strings.Join(words, " "), titleTruncateLen) + "..."
	}

	return "Chat from " + c.CreatedAt.Format("1/2/2006")
}

// truncateRunes cuts at a rune boundary so a multibyte character is never
// split before the ellipsis.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
