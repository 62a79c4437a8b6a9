package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LLMBackend string

const (
	BackendGemini LLMBackend = "gemini"
	BackendVertex LLMBackend = "vertex"
)

// LiveKit holds the real-time service endpoint and signing credentials.
type LiveKit struct {
	URL       string
	APIKey    string
	APISecret string
	TokenTTL  time.Duration
}

// Rooms decides which rooms belong to interviews.
type Rooms struct {
	Suffix string // "<type><suffix>" when FixedRoom is empty
	// FixedRoom routes every candidate into one room. Deprecated layout,
	// kept for single-room deployments.
	FixedRoom string
}

type IssuerConfig struct {
	Port     string
	LogLevel string

	LiveKit LiveKit
	Rooms   Rooms

	ParticipantName string
}

type AgentConfig struct {
	Addr     string
	LogLevel string

	LiveKit LiveKit
	Rooms   Rooms

	// Realtime speech-to-speech model
	Backend       LLMBackend
	GoogleAPIKey  string
	GCPProjectID  string
	GCPLocation   string
	RealtimeModel string
	Voice         string

	// Text model for interview reports
	ReportModel string
	UseMockLLM  bool

	// Avatar (optional)
	AvatarEnabled bool
	TavusAPIKey   string
	TavusBaseURL  string
	ReplicaID     string
	PersonaID     string

	WebhookSkipVerify bool

	// TranscriptRetention is how long a room's transcript is kept after its
	// session ends.
	TranscriptRetention time.Duration
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// LoadDotEnv loads KEY=VALUE pairs from the given files. Missing files are
// skipped and variables already set in the environment win.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

func loadLiveKit() LiveKit {
	// Missing values are not an error here; they fail when a token is signed.
	return LiveKit{
		URL:       getEnv("LIVEKIT_URL", ""),
		APIKey:    getEnv("LIVEKIT_API_KEY", ""),
		APISecret: getEnv("LIVEKIT_API_SECRET", ""),
		TokenTTL:  getDurationEnv("PRACTERVIEW_TOKEN_TTL", 6*time.Hour),
	}
}

func loadRooms() Rooms {
	return Rooms{
		Suffix:    getEnv("PRACTERVIEW_ROOM_SUFFIX", "-interview"),
		FixedRoom: getEnv("PRACTERVIEW_FIXED_ROOM", ""),
	}
}

// LoadIssuer reads the credential issuer settings.
func LoadIssuer() *IssuerConfig {
	return &IssuerConfig{
		Port:            getEnv("PORT", "3000"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LiveKit:         loadLiveKit(),
		Rooms:           loadRooms(),
		ParticipantName: getEnv("PRACTERVIEW_PARTICIPANT_NAME", "Candidate"),
	}
}

// LoadAgent reads the interview agent settings.
func LoadAgent() *AgentConfig {
	backend := BackendGemini
	if strings.EqualFold(getEnv("PRACTERVIEW_LLM_BACKEND", ""), string(BackendVertex)) {
		backend = BackendVertex
	}

	tavusKey := getEnv("TAVUS_API_KEY", "")

	return &AgentConfig{
		Addr:     getEnv("PRACTERVIEW_AGENT_ADDR", ":8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		LiveKit: loadLiveKit(),
		Rooms:   loadRooms(),

		Backend:       backend,
		GoogleAPIKey:  getEnv("GOOGLE_API_KEY", ""),
		GCPProjectID:  getEnv("PRACTERVIEW_GCP_PROJECT", ""),
		GCPLocation:   getEnv("PRACTERVIEW_GCP_LOCATION", "us-central1"),
		RealtimeModel: getEnv("PRACTERVIEW_REALTIME_MODEL", "gemini-2.5-flash-native-audio-preview-09-2025"),
		Voice:         getEnv("PRACTERVIEW_VOICE", "Aoede"),

		ReportModel: getEnv("PRACTERVIEW_REPORT_MODEL", "gemini-2.5-flash"),
		UseMockLLM:  getBoolEnv("PRACTERVIEW_USE_MOCK_LLM", false),

		// The avatar is on by default whenever a Tavus key is present.
		AvatarEnabled: getBoolEnv("PRACTERVIEW_AVATAR_ENABLED", tavusKey != ""),
		TavusAPIKey:   tavusKey,
		TavusBaseURL:  getEnv("TAVUS_BASE_URL", "https://tavusapi.com"),
		ReplicaID:     getEnv("REPLICA_ID", ""),
		PersonaID:     getEnv("PERSONA_ID", ""),

		WebhookSkipVerify: getBoolEnv("PRACTERVIEW_WEBHOOK_SKIP_VERIFY", false),

		TranscriptRetention: getDurationEnv("PRACTERVIEW_TRANSCRIPT_RETENTION", 24*time.Hour),
	}
}
