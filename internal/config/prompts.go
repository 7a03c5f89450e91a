package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// TalkPrompt is the persona/rules/examples bundle driving real-time
// conversation. It is loaded once at process start and treated as
// immutable afterwards.
type TalkPrompt struct {
	SystemMessageBase      []string      `json:"system_message_base"`
	CoreConversationRules  []string      `json:"core_conversation_rules"`
	GuidelinesAndReactions []string      `json:"guidelines_and_reactions"`
	StrictProhibitions     []string      `json:"strict_prohibitions"`
	Examples               []TalkExample `json:"examples"`
	StartQuestion          string        `json:"start_question"`
}

// TalkExample is one demonstration exchange included in the prompt.
type TalkExample struct {
	Situation  string `json:"situation"`
	UserInput  string `json:"user_input"`
	AIResponse string `json:"ai_response"`
}

// ReportPrompt drives the caregiver report analysis call.
type ReportPrompt struct {
	Persona      string         `json:"persona"`
	Instructions []string       `json:"instructions"`
	OutputFormat map[string]any `json:"OUTPUT_FORMAT"`
}

type talkPromptFile struct {
	MainChatPrompt TalkPrompt `json:"main_chat_prompt"`
}

type reportPromptFile struct {
	ReportAnalysisPrompt ReportPrompt `json:"report_analysis_prompt"`
}

// DefaultGreeting is used when no prompt document supplies a start question.
const DefaultGreeting = "안녕하세요! 오늘은 어떤 하루를 보내고 계신가요?"

// LoadTalkPrompt reads and validates the conversation prompt document.
// A missing file falls back to the built-in default document; a present
// but invalid file is a startup error.
func LoadTalkPrompt(path string) (*TalkPrompt, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[config] talk prompt document missing at %s, using built-in defaults", path)
			return defaultTalkPrompt(), nil
		}
		return nil, fmt.Errorf("read talk prompt document: %w", err)
	}

	var file talkPromptFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse talk prompt document %s: %w", path, err)
	}

	prompt := file.MainChatPrompt
	if prompt.StartQuestion == "" {
		prompt.StartQuestion = DefaultGreeting
	}
	if err := prompt.validate(); err != nil {
		return nil, fmt.Errorf("talk prompt document %s: %w", path, err)
	}
	return &prompt, nil
}

func (p *TalkPrompt) validate() error {
	if len(p.SystemMessageBase) == 0 {
		return fmt.Errorf("system_message_base must not be empty")
	}
	if len(p.CoreConversationRules) == 0 {
		return fmt.Errorf("core_conversation_rules must not be empty")
	}
	for i, ex := range p.Examples {
		if ex.UserInput == "" || ex.AIResponse == "" {
			return fmt.Errorf("example %d missing user_input or ai_response", i)
		}
	}
	return nil
}

// LoadReportPrompt reads and validates the report analysis prompt.
// Unlike the talk prompt there is no meaningful built-in fallback; a
// missing document disables report generation.
func LoadReportPrompt(path string) (*ReportPrompt, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report prompt document: %w", err)
	}

	var file reportPromptFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse report prompt document %s: %w", path, err)
	}

	prompt := file.ReportAnalysisPrompt
	if prompt.Persona == "" {
		prompt.Persona = "당신은 전문 대화 분석 AI입니다."
	}
	if len(prompt.Instructions) == 0 {
		return nil, fmt.Errorf("report prompt document %s: instructions must not be empty", path)
	}
	return &prompt, nil
}

func defaultTalkPrompt() *TalkPrompt {
	return &TalkPrompt{
		SystemMessageBase: []string{
			"당신은 어르신의 다정한 말동무입니다.",
			"항상 존댓말을 사용하고, 천천히 또박또박 대답합니다.",
		},
		CoreConversationRules: []string{
			"한 번에 한 가지 질문만 합니다.",
			"어르신의 말을 먼저 공감한 뒤에 대답합니다.",
		},
		GuidelinesAndReactions: []string{
			"어르신이 과거 이야기를 꺼내면 관심을 보이며 이어서 질문합니다.",
		},
		StrictProhibitions: []string{
			"의학적 진단이나 약 복용 지시를 하지 않습니다.",
		},
		StartQuestion: DefaultGreeting,
	}
}
