package domain

import "context"

// Participant is a remote member of a media room.
type Participant interface {
	Identity() ParticipantIdentity
	Metadata() string
	Kind() ParticipantKind
}

// Room is the agent's connection to one media room.
// Callbacks may be invoked from transport goroutines.
type Room interface {
	Name() RoomName
	LocalIdentity() ParticipantIdentity
	RemoteParticipants() []Participant
	OnParticipantJoined(fn func(Participant))
	OpenAudio(ctx context.Context, opts AudioOptions) (AudioStream, error)
	Disconnect()
}

// AudioOptions configures the room audio bridge.
type AudioOptions struct {
	InputSampleRate  int
	OutputSampleRate int

	// NoiseProfile picks the suppression mode per remote participant.
	NoiseProfile func(Participant) NoiseProfile

	// OutputDestination, when set, receives the agent's speech as a PCM
	// data stream instead of the agent's own audio track.
	OutputDestination ParticipantIdentity
}

// AudioStream carries PCM between the room and a conversation.
type AudioStream interface {
	Frames() <-chan AudioFrame
	Write(samples []int16) error
	// Flush marks the end of the agent's current utterance.
	Flush()
	// ClearOutput drops queued outbound audio (barge-in).
	ClearOutput()
	// Done is closed when the stream is closed or the room is left.
	Done() <-chan struct{}
	Close() error
}

// RoomConnector joins rooms on behalf of the agent.
type RoomConnector interface {
	Connect(ctx context.Context, room RoomName) (Room, error)
}

// ConversationConfig is bound to a conversation when it starts.
type ConversationConfig struct {
	Instructions string
	NoiseProfile func(Participant) NoiseProfile
	// Speaker is the participant that voices the agent, such as an avatar.
	// Empty means the agent speaks on its own track.
	Speaker ParticipantIdentity
}

// Conversation is a speech-to-speech session with a realtime model.
type Conversation interface {
	OnItemAdded(fn func(TranscriptItem))
	Start(ctx context.Context, room Room, cfg ConversationConfig) error
	GenerateReply(ctx context.Context, instructions string) error
	// Done is closed once the model or the room ends the conversation.
	Done() <-chan struct{}
	Err() error
	Close() error
}

// ConversationFactory creates one Conversation per session.
type ConversationFactory interface {
	NewConversation() Conversation
}

// AvatarHandle controls an attached avatar renderer.
type AvatarHandle interface {
	// Identity is the avatar's participant in the room.
	Identity() ParticipantIdentity
	Close(ctx context.Context) error
}

// Avatar attaches a video avatar that speaks for the agent in a room.
type Avatar interface {
	Attach(ctx context.Context, room Room) (AvatarHandle, error)
}

// AccessRequest describes the grants embedded in a room token.
type AccessRequest struct {
	Identity   ParticipantIdentity
	Name       string
	Metadata   string
	Room       RoomName
	Kind       ParticipantKind
	Attributes map[string]string
	Agent      bool
}

// TokenSigner mints signed room access tokens.
type TokenSigner interface {
	Sign(req AccessRequest) (string, error)
}

// LLMClient defines how the core application interacts with a text LLM service.
type LLMClient interface {
	GenerateReply(ctx context.Context, prompt string, convCtx ConversationContext) (string, error)
}

// ConversationContext gives the LLM minimal context about an interview.
type ConversationContext struct {
	Room          RoomName
	InterviewType InterviewType
	History       []TranscriptItem
}

// TranscriptStore keeps conversation items per room for the process lifetime.
type TranscriptStore interface {
	AppendItem(item TranscriptItem) error
	ItemsByRoom(room RoomName, limit int) ([]TranscriptItem, error)
}
