package chat

import "strings"

// Speaker roles for transcript lines.
const (
	SpeakerUser  = "user"
	SpeakerAgent = "ai"
)

// Display prefixes used when a transcript is rendered as text. These are
// also the literal prefixes persisted into memory units, so they must not
// change between releases.
const (
	UserLinePrefix  = "사용자: "
	AgentLinePrefix = "AI: "
)

// Line is a single immutable transcript entry. Ordering within a session
// transcript is chronological and significant.
type Line struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// UserLine builds a transcript line spoken by the senior user.
func UserLine(text string) Line {
	return Line{Speaker: SpeakerUser, Text: text}
}

// AgentLine builds a transcript line spoken by the AI companion.
func AgentLine(text string) Line {
	return Line{Speaker: SpeakerAgent, Text: text}
}

// String renders the line with its speaker prefix.
func (l Line) String() string {
	if l.Speaker == SpeakerUser {
		return UserLinePrefix + l.Text
	}
	return AgentLinePrefix + l.Text
}

// JoinLines renders a transcript as newline-separated prefixed text,
// the exact form stored for short-session memories.
func JoinLines(lines []Line) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, line.String())
	}
	return strings.Join(parts, "\n")
}
