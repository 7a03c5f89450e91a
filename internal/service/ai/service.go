// Package ai runs every chat-model call in the service: turn replies,
// session distillation, and caregiver report analysis.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/tripot-app/backend/internal/config"
)

const assistantSystemPrompt = "당신은 주어진 규칙과 페르소나를 완벽하게 따르는 AI 어시스턴트입니다."

// Service wraps the compiled chat chain.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the prompt-template → chat-model chain once.
func NewService(ctx context.Context, chatModel model.ChatModel) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{prompt}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{chatModel: chatModel, chain: runnable}, nil
}

func (s *Service) invoke(ctx context.Context, system, userPrompt string) (string, error) {
	response, err := s.chain.Invoke(ctx, map[string]any{
		"system": system,
		"prompt": userPrompt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}
	return response.Content, nil
}

// Reply generates the companion's answer for a fully composed turn prompt.
func (s *Service) Reply(ctx context.Context, turnPrompt string) (string, error) {
	text, err := s.invoke(ctx, assistantSystemPrompt, turnPrompt)
	if err != nil {
		return "", err
	}
	log.Printf("[ai] generated reply length=%d", len(text))
	return text, nil
}

// Summarize distills a session transcript into a 1-2 sentence memory.
// Every proper noun (place and person names) must survive distillation.
func (s *Service) Summarize(ctx context.Context, transcript string) (string, error) {
	summaryPrompt := fmt.Sprintf(`다음 대화 내용에서 사용자의 주요 관심사, 감정, 중요한 정보 등을 1~2 문장의 간결한 기억으로 생성해줘. 규칙: 지명, 인명 등 모든 고유명사는 반드시 포함시켜야 해.

--- 대화 내용 ---
%s
-----------------

핵심 기억:`, transcript)

	summary, err := s.invoke(ctx, assistantSystemPrompt, summaryPrompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

// AnalyzeConversation runs the caregiver report analysis over one day's
// conversation text and returns the parsed JSON object.
func (s *Service) AnalyzeConversation(ctx context.Context, reportPrompt *config.ReportPrompt, conversationText string) (map[string]any, error) {
	if reportPrompt == nil {
		return nil, fmt.Errorf("report prompt document not loaded")
	}
	if strings.TrimSpace(conversationText) == "" {
		return nil, fmt.Errorf("empty conversation text")
	}

	outputFormat, err := json.MarshalIndent(reportPrompt.OutputFormat, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report output format: %w", err)
	}

	system := fmt.Sprintf("%s\n\n### 지시사항\n%s\n\n### 출력 형식\n모든 결과는 아래와 같은 JSON 형식으로만 출력해야 합니다. 추가 설명이나 인사말 등 JSON 외의 텍스트는 절대 포함하지 마세요.\n%s",
		reportPrompt.Persona,
		strings.Join(reportPrompt.Instructions, "\n"),
		string(outputFormat),
	)
	userPrompt := fmt.Sprintf("### 분석할 대화 전문\n---\n%s\n---", conversationText)

	content, err := s.invoke(ctx, system, userPrompt)
	if err != nil {
		return nil, err
	}

	return extractJSONObject(content)
}

// extractJSONObject pulls the first JSON object out of a model response
// that may be wrapped in prose or code fences.
func extractJSONObject(content string) (map[string]any, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object in model response")
	}

	result := make(map[string]any)
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("parse report json: %w", err)
	}
	return result, nil
}
