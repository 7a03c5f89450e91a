package ai

import (
	"strings"
	"testing"

	"github.com/tripot-app/backend/internal/config"
)

func testTalkPrompt() *config.TalkPrompt {
	return &config.TalkPrompt{
		SystemMessageBase:      []string{"당신은 말동무입니다."},
		CoreConversationRules:  []string{"짧게 대답합니다."},
		GuidelinesAndReactions: []string{"공감을 먼저 합니다."},
		StrictProhibitions:     []string{"진단하지 않습니다."},
		Examples: []config.TalkExample{
			{Situation: "인사", UserInput: "안녕", AIResponse: "안녕하세요!"},
		},
	}
}

func TestBuildTurnPromptSectionOrder(t *testing.T) {
	prompt := BuildTurnPrompt(testTalkPrompt(), []string{"손자가 서울에 산다."}, "오늘 뭐 할까")

	sections := []string{
		"# 페르소나",
		"# 핵심 대화 규칙",
		"# 응답 가이드라인",
		"# 절대 금지사항",
		"# 성공적인 대화 예시",
		"--- 과거 대화 핵심 기억 ---",
		"현재 사용자 메시지:",
	}
	last := -1
	for _, section := range sections {
		idx := strings.Index(prompt, section)
		if idx == -1 {
			t.Fatalf("section %q missing", section)
		}
		if idx < last {
			t.Fatalf("section %q out of order", section)
		}
		last = idx
	}
}

func TestBuildTurnPromptIncludesMemoriesAndUtterance(t *testing.T) {
	memories := []string{"손자가 서울에 산다.", "무릎이 아프다고 했다."}
	prompt := BuildTurnPrompt(testTalkPrompt(), memories, "오늘 뭐 할까")

	for _, m := range memories {
		if !strings.Contains(prompt, m) {
			t.Fatalf("memory %q missing from prompt", m)
		}
	}
	if !strings.Contains(prompt, `"오늘 뭐 할까"`) {
		t.Fatal("utterance must appear quoted")
	}
	if strings.Contains(prompt, NoMemoryPlaceholder) {
		t.Fatal("placeholder must not appear when memories exist")
	}
}

func TestBuildTurnPromptPlaceholderWithoutMemories(t *testing.T) {
	prompt := BuildTurnPrompt(testTalkPrompt(), nil, "안녕")
	if !strings.Contains(prompt, NoMemoryPlaceholder) {
		t.Fatal("placeholder missing for empty retrieval")
	}
}

func TestBuildTurnPromptIncludesExamples(t *testing.T) {
	prompt := BuildTurnPrompt(testTalkPrompt(), nil, "안녕")
	if !strings.Contains(prompt, "상황: 인사") || !strings.Contains(prompt, "AI 응답: 안녕하세요!") {
		t.Fatal("examples missing from prompt")
	}
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"bare object", `{"a": 1}`, false},
		{"fenced object", "```json\n{\"a\": 1}\n```", false},
		{"prose wrapped", "분석 결과입니다: {\"a\": 1} 감사합니다.", false},
		{"no object", "JSON이 없습니다.", true},
		{"broken object", `{"a": `, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractJSONObject(tc.content)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got["a"] != float64(1) {
				t.Fatalf("unexpected object: %v", got)
			}
		})
	}
}
