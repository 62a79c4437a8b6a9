package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/practerview-agent/internal/app/tools"
	"github.com/PabloGalante/practerview-agent/internal/domain"
	"github.com/PabloGalante/practerview-agent/internal/observability"
)

const ratingPrefix = "RATING:"

// ReporterAgent turns the assessor notes into the candidate-facing report
// and saves it through the report tool.
type ReporterAgent struct {
	llm        domain.LLMClient
	reportTool tools.Tool
}

func NewReporterAgent(llm domain.LLMClient, reportTool tools.Tool) *ReporterAgent {
	return &ReporterAgent{
		llm:        llm,
		reportTool: reportTool,
	}
}

func (a *ReporterAgent) Name() string {
	return "reporter"
}

func (a *ReporterAgent) Run(ctx context.Context, in AgentInput) (AgentOutput, error) {
	log := observability.LoggerFromContext(ctx).With("agent", a.Name())
	log.Info("reporter agent running")

	prompt := fmt.Sprintf(
		"You are PracterView's Reporter. The Assessor reviewed the interview.\n"+
			"Write the performance report for the candidate: an overall impression, 2-3 strengths,\n"+
			"2-3 areas to improve and one concrete next step. Speak directly to the candidate.\n"+
			"Start with a single line \"%s strong|mixed|weak\".\n\n"+
			"Assessor notes:\n%s",
		ratingPrefix,
		in.Text,
	)

	reply, err := a.llm.GenerateReply(ctx, prompt, in.ConvCtx)
	if err != nil {
		log.Error("reporter agent error", "error", err)
		return AgentOutput{}, err
	}

	rating, summary := splitRating(reply)
	artifacts := map[string]string{"rating": string(rating)}

	if a.reportTool != nil {
		tctx := tools.ToolContext{
			Room:          string(in.ConvCtx.Room),
			InterviewType: string(in.ConvCtx.InterviewType),
			RequestID:     observability.RequestIDFromContext(ctx),
		}

		input := map[string]any{
			"assessment": in.Text,
			"summary":    summary,
			"rating":     string(rating),
			"items":      len(in.ConvCtx.History),
		}

		res, err := a.reportTool.Call(ctx, tctx, input)
		if err != nil {
			log.Error("report tool failed", "error", err)
			return AgentOutput{}, err
		}
		if id, ok := res["report_id"].(string); ok {
			artifacts["report_id"] = id
		}
	}

	log.Info("reporter agent success", "rating", rating)
	return AgentOutput{
		Reply:          summary,
		UpdatedContext: in.ConvCtx,
		Artifacts:      artifacts,
	}, nil
}

// splitRating pulls the leading rating line off a reporter reply.
func splitRating(reply string) (domain.Rating, string) {
	text := strings.TrimSpace(reply)
	first, rest, _ := strings.Cut(text, "\n")
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(first)), ratingPrefix) {
		return domain.RatingUnscored, text
	}
	label := strings.TrimSpace(first)[len(ratingPrefix):]
	return tools.ParseRating(label), strings.TrimSpace(rest)
}
