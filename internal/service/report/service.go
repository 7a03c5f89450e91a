// Package report turns stored daily summaries into the caregiver
// payload and drives the daily report generation batch.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tripot-app/backend/internal/config"
	reportmodel "github.com/tripot-app/backend/internal/model/report"
	"github.com/tripot-app/backend/internal/service/conversation"
)

// Analyzer runs the model-driven report analysis over a day's transcript.
type Analyzer interface {
	AnalyzeConversation(ctx context.Context, reportPrompt *config.ReportPrompt, conversationText string) (map[string]any, error)
}

// Service answers report queries and generates daily summaries.
type Service struct {
	store        *conversation.Store
	analyzer     Analyzer
	reportPrompt *config.ReportPrompt
}

// NewService builds the report service. analyzer and reportPrompt may be
// nil, which disables generation but keeps queries working.
func NewService(store *conversation.Store, analyzer Analyzer, reportPrompt *config.ReportPrompt) *Service {
	return &Service{store: store, analyzer: analyzer, reportPrompt: reportPrompt}
}

// Latest returns the newest caregiver report for the owner, or the
// default payload when no summary exists yet.
func (s *Service) Latest(ctx context.Context, ownerID string) reportmodel.Report {
	summaryJSON, reportDate, err := s.store.LatestSummary(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, conversation.ErrNotFound) {
			log.Printf("[report] summary lookup failed owner=%s: %v", ownerID, err)
		}
		return reportmodel.Default()
	}

	var summary map[string]any
	if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
		log.Printf("[report] stored summary is not valid json owner=%s: %v", ownerID, err)
		return reportmodel.Default()
	}

	return buildReport(summary, reportDate)
}

// GenerateDaily produces and stores a summary for every owner that
// talked on the target date. Failures are per-owner; one bad day of one
// user never blocks the rest.
func (s *Service) GenerateDaily(ctx context.Context, day time.Time) error {
	if s.analyzer == nil || s.reportPrompt == nil {
		return fmt.Errorf("report generation disabled: analyzer or prompt document missing")
	}

	owners, err := s.store.OwnersWithConversationsOn(ctx, day)
	if err != nil {
		return err
	}
	log.Printf("[report] generating daily reports date=%s owners=%d", day.Format("2006-01-02"), len(owners))

	for _, owner := range owners {
		transcript, err := s.store.FetchDailyTranscript(ctx, owner, day)
		if err != nil {
			log.Printf("[report] no transcript owner=%s: %v", owner, err)
			continue
		}

		summary, err := s.analyzer.AnalyzeConversation(ctx, s.reportPrompt, transcript)
		if err != nil {
			log.Printf("[report] analysis failed owner=%s: %v", owner, err)
			continue
		}

		raw, err := json.Marshal(summary)
		if err != nil {
			log.Printf("[report] marshal summary failed owner=%s: %v", owner, err)
			continue
		}

		if err := s.store.SaveSummary(ctx, owner, day, string(raw)); err != nil {
			log.Printf("[report] save summary failed owner=%s: %v", owner, err)
			continue
		}
		log.Printf("[report] summary stored owner=%s", owner)
	}
	return nil
}

// buildReport maps the analysis JSON onto the home-screen payload.
// Section and field names follow the report prompt's output format.
func buildReport(summary map[string]any, reportDate string) reportmodel.Report {
	result := reportmodel.Default()
	result.ReportDate = reportDate

	// Engagement counters and ranking are placeholders until the family
	// app starts reporting contact events.
	result.Stats = reportmodel.Stats{Contact: 12, Visit: 1, QuestionAnswered: 3}
	result.Ranking = []reportmodel.RankingEntry{
		{Name: "첫째 아들", Score: 120},
		{Name: "막내 딸", Score: 95},
		{Name: "둘째 아들", Score: 80},
	}

	if emotion, ok := summary["감정_신체_상태"].(map[string]any); ok {
		overall, _ := emotion["전반적_감정"].(string)
		switch {
		case strings.Contains(overall, "긍정") || strings.Contains(overall, "좋"):
			result.Status.Mood = "좋음 😊"
		case strings.Contains(overall, "부정") || strings.Contains(overall, "우울") || strings.Contains(overall, "슬픔"):
			result.Status.Mood = "우울함 😔"
		default:
			result.Status.Mood = "보통 😐"
		}

		if mentions := stringSlice(emotion["건강_언급"]); len(mentions) > 0 {
			if len(mentions) > 2 {
				mentions = mentions[:2]
			}
			result.Status.Condition = strings.Join(mentions, ", ")
		} else {
			result.Status.Condition = "특별한 언급 없음"
		}
	}

	if daily, ok := summary["일일_대화_요약"].(map[string]any); ok {
		text, _ := daily["요약"].(string)
		keywords := stringSlice(daily["강조 키워드"])
		switch {
		case text != "":
			first := strings.SplitN(text, ".", 2)[0]
			if runes := []rune(first); len(runes) > 30 {
				first = string(runes[:30]) + "..."
			}
			result.Status.LastActivity = first
		case len(keywords) > 0:
			result.Status.LastActivity = keywords[0] + " 관련 대화"
		default:
			result.Status.LastActivity = "일상 생활"
		}
	}

	result.Status.Needs = "특별한 요청 없음"
	if items, ok := summary["요청_물품"].([]any); ok && len(items) > 0 {
		if first, ok := items[0].(map[string]any); ok {
			if name, _ := first["물품"].(string); name != "" {
				result.Status.Needs = name
			}
		}
	}

	return result
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
