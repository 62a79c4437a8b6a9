package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/livekit/protocol/auth"

	"github.com/PabloGalante/practerview-agent/internal/adapters/avatar"
	httpadapter "github.com/PabloGalante/practerview-agent/internal/adapters/http"
	"github.com/PabloGalante/practerview-agent/internal/adapters/livekit"
	"github.com/PabloGalante/practerview-agent/internal/adapters/llm"
	"github.com/PabloGalante/practerview-agent/internal/adapters/realtime"
	memstore "github.com/PabloGalante/practerview-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/practerview-agent/internal/adapters/token"
	"github.com/PabloGalante/practerview-agent/internal/app/credentials"
	"github.com/PabloGalante/practerview-agent/internal/app/dispatch"
	"github.com/PabloGalante/practerview-agent/internal/app/persona"
	"github.com/PabloGalante/practerview-agent/internal/app/report"
	"github.com/PabloGalante/practerview-agent/internal/app/session"
	"github.com/PabloGalante/practerview-agent/internal/config"
	"github.com/PabloGalante/practerview-agent/internal/domain"
	"github.com/PabloGalante/practerview-agent/internal/observability"
)

// agent is the wired process: one dispatcher plus the stores its HTTP API reads.
type agent struct {
	cfg        *config.AgentConfig
	metrics    *observability.Metrics
	dispatcher *dispatch.Dispatcher
	transcript *memstore.TranscriptStore
	reports    *report.Service
}

func buildAgent(ctx context.Context, cfg *config.AgentConfig) (*agent, error) {
	log := observability.Logger()

	if cfg.LiveKit.URL == "" || cfg.LiveKit.APIKey == "" || cfg.LiveKit.APISecret == "" {
		return nil, fmt.Errorf("LIVEKIT_URL, LIVEKIT_API_KEY and LIVEKIT_API_SECRET must be set")
	}

	genaiClient, err := llm.NewGenAIClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Choose between mock and Gemini for reports (useful for dev)
	var reportLLM domain.LLMClient
	if cfg.UseMockLLM {
		log.Info("[LLM] Using MOCK report client")
		reportLLM = llm.NewMockLLM()
	} else {
		log.Info("[LLM] Using Gemini report client", "backend", cfg.Backend, "model", cfg.ReportModel)
		reportLLM = llm.NewGeminiClient(genaiClient, cfg.ReportModel)
	}

	metrics := observability.NewMetrics("practerview")
	signer := token.NewSigner(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.LiveKit.TokenTTL)
	transcripts := memstore.NewTranscriptStore()

	opts := session.Options{
		Personas: persona.NewRegistry(),
		Conversations: realtime.NewFactory(realtime.Options{
			Client: genaiClient,
			Model:  cfg.RealtimeModel,
			Voice:  cfg.Voice,
		}),
		Transcripts: transcripts,
		Metrics:     metrics,
	}
	if cfg.AvatarEnabled {
		// Missing Tavus settings fail each attach; the interview then runs
		// without a face.
		log.Info("[AVATAR] Using Tavus avatar", "replica_id", cfg.ReplicaID)
		opts.Avatar = avatar.NewClient(avatar.Options{
			APIKey:     cfg.TavusAPIKey,
			BaseURL:    cfg.TavusBaseURL,
			ReplicaID:  cfg.ReplicaID,
			PersonaID:  cfg.PersonaID,
			LiveKitURL: cfg.LiveKit.URL,
			Signer:     signer,
		})
	}

	creds := credentials.NewService(credentials.Options{
		Signer:     signer,
		URL:        cfg.LiveKit.URL,
		RoomSuffix: cfg.Rooms.Suffix,
		FixedRoom:  cfg.Rooms.FixedRoom,
	})

	d := dispatch.New(dispatch.Options{
		Connector: livekit.NewConnector(livekit.ConnectorOptions{
			URL:    cfg.LiveKit.URL,
			Signer: signer,
		}),
		Sessions: session.NewController(opts),
		Accept:   creds.Accepts,
		Metrics:  metrics,

		Forget:    transcripts.Drop,
		Retention: cfg.TranscriptRetention,
	})

	return &agent{
		cfg:        cfg,
		metrics:    metrics,
		dispatcher: d,
		transcript: transcripts,
		reports:    report.NewService(reportLLM, transcripts, memstore.NewReportStore()),
	}, nil
}

func (a *agent) handler() http.Handler {
	opts := httpadapter.AgentServerOptions{
		Sessions:    a.dispatcher,
		Transcripts: a.transcript,
		Reports:     a.reports,
		Metrics:     a.metrics,
	}
	if a.cfg.WebhookSkipVerify {
		observability.Logger().Warn("webhook signatures are not verified")
	} else {
		opts.Keys = auth.NewSimpleKeyProvider(a.cfg.LiveKit.APIKey, a.cfg.LiveKit.APISecret)
	}
	return httpadapter.NewAgentServer(opts)
}
