package ai

import (
	"fmt"
	"strings"

	"github.com/tripot-app/backend/internal/config"
)

// NoMemoryPlaceholder is inserted when retrieval produced nothing.
const NoMemoryPlaceholder = "이전 대화 기록이 없습니다."

// BuildTurnPrompt composes the full conversation prompt in a fixed
// structural order: persona, rules, guidelines, prohibitions, examples,
// retrieved memories, then the literal current utterance. The order is
// part of the contract; retrieval results only ever fill the memory slot.
func BuildTurnPrompt(talk *config.TalkPrompt, memories []string, userMessage string) string {
	examples := make([]string, 0, len(talk.Examples))
	for _, ex := range talk.Examples {
		examples = append(examples, fmt.Sprintf("상황: %s\n사용자 입력: %s\nAI 응답: %s", ex.Situation, ex.UserInput, ex.AIResponse))
	}

	memoryBlock := strings.Join(memories, "\n")
	if memoryBlock == "" {
		memoryBlock = NoMemoryPlaceholder
	}

	var b strings.Builder
	b.WriteString("# 페르소나\n")
	b.WriteString(strings.Join(talk.SystemMessageBase, "\n"))
	b.WriteString("\n# 핵심 대화 규칙\n")
	b.WriteString(strings.Join(talk.CoreConversationRules, "\n"))
	b.WriteString("\n# 응답 가이드라인\n")
	b.WriteString(strings.Join(talk.GuidelinesAndReactions, "\n"))
	b.WriteString("\n# 절대 금지사항\n")
	b.WriteString(strings.Join(talk.StrictProhibitions, "\n"))
	b.WriteString("\n# 성공적인 대화 예시\n")
	b.WriteString(strings.Join(examples, "\n\n"))
	b.WriteString("\n---\n이제 실제 대화를 시작합니다.\n")
	b.WriteString("--- 과거 대화 핵심 기억 ---\n")
	b.WriteString(memoryBlock)
	b.WriteString("\n--------------------\n")
	b.WriteString(fmt.Sprintf("현재 사용자 메시지: %q\nAI 답변:", userMessage))
	return b.String()
}
