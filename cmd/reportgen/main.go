// Command reportgen runs the daily caregiver report batch. It is meant
// to be scheduled (cron) shortly after midnight for the previous day.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/tripot-app/backend/internal/config"
	"github.com/tripot-app/backend/internal/service/ai"
	"github.com/tripot-app/backend/internal/service/conversation"
	reportservice "github.com/tripot-app/backend/internal/service/report"
)

func main() {
	dateFlag := flag.String("date", "", "target date as YYYY-MM-DD (default: yesterday)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	day := time.Now().UTC().AddDate(0, 0, -1)
	if *dateFlag != "" {
		day, err = time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			log.Fatalf("invalid -date value %q: %v", *dateFlag, err)
		}
	}

	reportPrompt, err := config.LoadReportPrompt(cfg.Prompts.ReportPromptPath)
	if err != nil {
		log.Fatalf("report prompt required: %v", err)
	}

	ctx := context.Background()

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Fatalf("chat model required: %v", err)
	}
	aiSvc, err := ai.NewService(ctx, chatModel)
	if err != nil {
		log.Fatalf("failed to initialize AI service: %v", err)
	}

	convStore, err := conversation.Open(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open conversation store: %v", err)
	}
	defer convStore.Close()

	reportSvc := reportservice.NewService(convStore, aiSvc, reportPrompt)
	if err := reportSvc.GenerateDaily(ctx, day); err != nil {
		log.Fatalf("report generation failed: %v", err)
	}
	log.Println("report generation finished")
}
