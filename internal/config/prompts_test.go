package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadTalkPromptMissingFileUsesDefaults(t *testing.T) {
	prompt, err := LoadTalkPrompt(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("missing file must fall back, got %v", err)
	}
	if len(prompt.SystemMessageBase) == 0 || len(prompt.CoreConversationRules) == 0 {
		t.Fatal("default document must be complete")
	}
	if prompt.StartQuestion != DefaultGreeting {
		t.Fatalf("got start question %q", prompt.StartQuestion)
	}
}

func TestLoadTalkPromptInvalidJSONFails(t *testing.T) {
	path := writeTempFile(t, "talk.json", `{ not json `)
	if _, err := LoadTalkPrompt(path); err == nil {
		t.Fatal("invalid document must be a startup error")
	}
}

func TestLoadTalkPromptValidDocument(t *testing.T) {
	path := writeTempFile(t, "talk.json", `{
		"main_chat_prompt": {
			"system_message_base": ["당신은 말동무입니다."],
			"core_conversation_rules": ["짧게 대답합니다."],
			"guidelines_and_reactions": ["공감합니다."],
			"strict_prohibitions": ["진단 금지"],
			"examples": [
				{"situation": "인사", "user_input": "안녕", "ai_response": "안녕하세요!"}
			],
			"start_question": "식사는 하셨어요?"
		}
	}`)

	prompt, err := LoadTalkPrompt(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if prompt.StartQuestion != "식사는 하셨어요?" {
		t.Fatalf("got start question %q", prompt.StartQuestion)
	}
	if len(prompt.Examples) != 1 || prompt.Examples[0].UserInput != "안녕" {
		t.Fatalf("examples not parsed: %+v", prompt.Examples)
	}
}

func TestLoadTalkPromptIncompleteExampleFails(t *testing.T) {
	path := writeTempFile(t, "talk.json", `{
		"main_chat_prompt": {
			"system_message_base": ["a"],
			"core_conversation_rules": ["b"],
			"examples": [{"situation": "s", "user_input": "", "ai_response": "r"}]
		}
	}`)
	if _, err := LoadTalkPrompt(path); err == nil {
		t.Fatal("incomplete example must fail validation")
	}
}

func TestLoadTalkPromptMissingStartQuestionDefaults(t *testing.T) {
	path := writeTempFile(t, "talk.json", `{
		"main_chat_prompt": {
			"system_message_base": ["a"],
			"core_conversation_rules": ["b"]
		}
	}`)
	prompt, err := LoadTalkPrompt(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if prompt.StartQuestion != DefaultGreeting {
		t.Fatalf("got start question %q", prompt.StartQuestion)
	}
}

func TestLoadReportPromptMissingFileFails(t *testing.T) {
	if _, err := LoadReportPrompt(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("missing report prompt must be an error")
	}
}

func TestLoadReportPromptValidDocument(t *testing.T) {
	path := writeTempFile(t, "report.json", `{
		"report_analysis_prompt": {
			"persona": "분석가",
			"instructions": ["감정을 분석하세요."],
			"OUTPUT_FORMAT": {"일일_대화_요약": {"요약": ""}}
		}
	}`)

	prompt, err := LoadReportPrompt(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if prompt.Persona != "분석가" || len(prompt.Instructions) != 1 {
		t.Fatalf("unexpected prompt %+v", prompt)
	}
	if _, ok := prompt.OutputFormat["일일_대화_요약"]; !ok {
		t.Fatal("output format not parsed")
	}
}

func TestLoadReportPromptEmptyInstructionsFails(t *testing.T) {
	path := writeTempFile(t, "report.json", `{"report_analysis_prompt": {"persona": "p"}}`)
	if _, err := LoadReportPrompt(path); err == nil {
		t.Fatal("empty instructions must fail validation")
	}
}
