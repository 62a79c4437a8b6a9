package domain

import "time"

// InterviewType selects which interviewer persona governs a session.
type InterviewType string

// DefaultInterviewType is used whenever no valid type was observed.
const DefaultInterviewType InterviewType = "default"

type RoomName string
type ParticipantIdentity string

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// ParticipantKind tells how a remote participant reached the room.
type ParticipantKind string

const (
	KindStandard ParticipantKind = "standard"
	KindSIP      ParticipantKind = "sip"
	KindAgent    ParticipantKind = "agent"
	KindOther    ParticipantKind = "other"
)

// NoiseProfile is the noise suppression mode applied to a participant's audio.
type NoiseProfile string

const (
	NoiseProfileGeneral   NoiseProfile = "bvc"           // browsers, mobile apps
	NoiseProfileTelephony NoiseProfile = "bvc_telephony" // SIP callers
)

// SessionState is the lifecycle position of a session.
type SessionState string

const (
	StateAwaitingPersona       SessionState = "awaiting_persona"
	StatePersonaResolved       SessionState = "persona_resolved"
	StateAvatarAttachAttempted SessionState = "avatar_attach_attempted"
	StateConversationStarted   SessionState = "conversation_started"
	StateGreetingSent          SessionState = "greeting_sent"
)

type Timestamp = time.Time
