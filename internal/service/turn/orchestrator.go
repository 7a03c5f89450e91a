// Package turn drives a single conversation exchange from raw audio to
// delivered reply. The pipeline degrades stage by stage: a transcription
// failure produces a canned reply, a memory failure produces a reply
// without memories, a generation failure produces an apology. The
// session itself never dies because one stage did.
package turn

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/tripot-app/backend/internal/config"
	memorymodel "github.com/tripot-app/backend/internal/model/memory"
	"github.com/tripot-app/backend/internal/service/ai"
	"github.com/tripot-app/backend/internal/service/memory"
	"github.com/tripot-app/backend/internal/service/session"
	"github.com/tripot-app/backend/internal/service/speech"
)

// Deployment-fixed Korean responses for degraded stages.
const (
	// boilerplatePhrase marks recognizer hallucinations on silence; any
	// transcript containing it is treated as not understood.
	boilerplatePhrase = "시청해주셔서 감사합니다"

	cannedReply        = "음, 잘 알아듣지 못했어요. 혹시 다시 한번 말씀해주시겠어요?"
	fallbackReply      = "죄송합니다. 잠시 문제가 있었어요. 다시 말씀해 주세요."
	missingPromptReply = "대화 프롬프트 설정 파일을 불러올 수 없어 기본 응답을 드립니다."
)

// Pipeline stages, recorded on the turn span as the furthest stage
// reached before delivery.
const (
	stageDecoding         = "decoding"
	stageTranscribing     = "transcribing"
	stageRetrievingMemory = "retrieving_memory"
	stageComposing        = "composing"
	stageGenerating       = "generating"
	stageDelivered        = "delivered"
)

// Querier retrieves memory candidates for an owner.
type Querier interface {
	Query(ctx context.Context, ownerID string, vector []float32, topK int) ([]memorymodel.Candidate, error)
}

// Generator produces the companion's reply for a composed prompt.
type Generator interface {
	Reply(ctx context.Context, turnPrompt string) (string, error)
}

// Recorder persists a completed exchange.
type Recorder interface {
	SaveTurn(ctx context.Context, ownerID, userMessage, agentMessage string) error
}

// Orchestrator runs the per-turn pipeline. Any dependency may be nil;
// its stage then degrades as documented on ProcessAudio.
type Orchestrator struct {
	transcriber speech.Transcriber
	embedder    memory.Embedder
	querier     Querier
	generator   Generator
	recorder    Recorder
	registry    *session.Registry
	talkPrompt  *config.TalkPrompt

	tracer      trace.Tracer
	turnCounter metric.Int64Counter
}

// NewOrchestrator wires the turn pipeline.
func NewOrchestrator(
	transcriber speech.Transcriber,
	embedder memory.Embedder,
	querier Querier,
	generator Generator,
	recorder Recorder,
	registry *session.Registry,
	talkPrompt *config.TalkPrompt,
	tracer trace.Tracer,
	meter metric.Meter,
) *Orchestrator {
	o := &Orchestrator{
		transcriber: transcriber,
		embedder:    embedder,
		querier:     querier,
		generator:   generator,
		recorder:    recorder,
		registry:    registry,
		talkPrompt:  talkPrompt,
		tracer:      tracer,
	}
	if meter != nil {
		counter, err := meter.Int64Counter("turns_processed_total",
			metric.WithDescription("Conversation turns processed, by outcome"))
		if err != nil {
			log.Printf("[turn] counter init failed: %v", err)
		} else {
			o.turnCounter = counter
		}
	}
	return o
}

// ProcessAudio runs one exchange for the session's owner.
//
// The audio arrives base64-encoded. When decoding or transcription
// fails, when the recognizer returns nothing, or when the transcript is
// recognizer boilerplate, only the canned reply is delivered and the
// transcript is left untouched. Otherwise the turn always completes
// with some agent reply, and both lines are appended together or not
// at all.
func (o *Orchestrator) ProcessAudio(ctx context.Context, sess *session.Session, audioB64 string) {
	ctx, span := o.startSpan(ctx, sess.OwnerID)
	defer span.End()

	start := time.Now()

	span.AddEvent(stageDecoding)
	audio, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		log.Printf("[turn] bad audio payload owner=%s: %v", sess.OwnerID, err)
		o.deliverCanned(ctx, sess, span, stageDecoding)
		return
	}

	span.AddEvent(stageTranscribing)
	userText, err := o.transcribe(ctx, audio)
	if err != nil || notUnderstood(userText) {
		if err != nil {
			log.Printf("[turn] transcription failed owner=%s: %v", sess.OwnerID, err)
		}
		o.deliverCanned(ctx, sess, span, stageTranscribing)
		return
	}
	userText = strings.TrimSpace(userText)
	log.Printf("[turn] transcribed owner=%s length=%d", sess.OwnerID, len(userText))

	span.AddEvent(stageRetrievingMemory)
	memories := o.retrieveMemories(ctx, sess.OwnerID, userText)

	span.AddEvent(stageComposing)
	var agentText string
	if o.talkPrompt == nil {
		log.Printf("[turn] talk prompt unavailable owner=%s, sending default response", sess.OwnerID)
		agentText = missingPromptReply
	} else {
		span.AddEvent(stageGenerating)
		agentText = o.generate(ctx, ai.BuildTurnPrompt(o.talkPrompt, memories, userText))
	}

	if !o.registry.AppendTurn(sess, userText, agentText) {
		log.Printf("[turn] session closed mid-turn owner=%s, dropping exchange", sess.OwnerID)
		o.count(ctx, "session_closed")
		return
	}

	if err := sess.Send(session.TypeUserMessage, userText); err != nil {
		log.Printf("[turn] user message delivery failed owner=%s: %v", sess.OwnerID, err)
	}
	if err := sess.Send(session.TypeAIMessage, agentText); err != nil {
		log.Printf("[turn] reply delivery failed owner=%s: %v", sess.OwnerID, err)
	}

	if o.recorder != nil {
		if err := o.recorder.SaveTurn(ctx, sess.OwnerID, userText, agentText); err != nil {
			log.Printf("[turn] turn persistence failed owner=%s: %v", sess.OwnerID, err)
		}
	}

	span.SetAttributes(
		attribute.String("turn.stage", stageDelivered),
		attribute.Int("turn.memories", len(memories)),
		attribute.Int64("turn.duration_ms", time.Since(start).Milliseconds()),
	)
	o.count(ctx, "completed")
}

func (o *Orchestrator) transcribe(ctx context.Context, audio []byte) (string, error) {
	if o.transcriber == nil {
		return "", &speech.TranscriptionError{Err: errors.New("transcriber unavailable")}
	}
	return o.transcriber.Transcribe(ctx, audio)
}

// notUnderstood reports transcripts that carry no usable speech.
func notUnderstood(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed == "" || strings.Contains(trimmed, boilerplatePhrase)
}

// deliverCanned sends only the canned agent reply. Nothing is appended
// to the transcript and no downstream stage runs. The span records the
// stage the turn actually reached before the short-circuit.
func (o *Orchestrator) deliverCanned(ctx context.Context, sess *session.Session, span trace.Span, stage string) {
	if err := sess.Send(session.TypeAIMessage, cannedReply); err != nil {
		log.Printf("[turn] canned reply delivery failed owner=%s: %v", sess.OwnerID, err)
	}
	span.SetAttributes(attribute.String("turn.stage", stage))
	o.count(ctx, "not_understood")
}

// retrieveMemories embeds the utterance and ranks stored memories.
// Every failure here degrades to an empty memory list.
func (o *Orchestrator) retrieveMemories(ctx context.Context, ownerID, userText string) []string {
	if o.embedder == nil || o.querier == nil {
		return nil
	}

	vector, err := o.embedder.Embed(ctx, userText)
	if err != nil {
		log.Printf("[turn] query embedding failed owner=%s: %v", ownerID, err)
		return nil
	}

	candidates, err := o.querier.Query(ctx, ownerID, vector, memory.DefaultTopK)
	if err != nil {
		log.Printf("[turn] memory query failed owner=%s: %v", ownerID, err)
		return nil
	}

	return memory.Rank(candidates, time.Now())
}

func (o *Orchestrator) generate(ctx context.Context, turnPrompt string) string {
	if o.generator == nil {
		log.Printf("[turn] generator unavailable, sending fallback")
		return fallbackReply
	}
	reply, err := o.generator.Reply(ctx, turnPrompt)
	if err != nil {
		log.Printf("[turn] reply generation failed: %v", err)
		return fallbackReply
	}
	return reply
}

func (o *Orchestrator) startSpan(ctx context.Context, ownerID string) (context.Context, trace.Span) {
	if o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return o.tracer.Start(ctx, "turn.process",
		trace.WithAttributes(attribute.String("turn.owner_id", ownerID)))
}

func (o *Orchestrator) count(ctx context.Context, outcome string) {
	if o.turnCounter == nil {
		return
	}
	o.turnCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
