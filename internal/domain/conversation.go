package domain

// TranscriptItem is one message of a conversation (candidate or interviewer).
type TranscriptItem struct {
	Room      RoomName
	Author    Role
	Text      string
	CreatedAt Timestamp
}

// SessionInfo is the externally visible status of a session.
type SessionInfo struct {
	Room          RoomName
	InterviewType InterviewType
	State         SessionState
	StartedAt     Timestamp
}

// Credential is a signed room-join token plus the details a client needs
// to connect.
type Credential struct {
	Token    string
	URL      string
	Identity ParticipantIdentity
	Name     string
	Type     InterviewType
	Room     RoomName

	// FixedRoom is true when the room comes from deployment config instead
	// of the interview type.
	FixedRoom bool
}

// AudioFrame is a chunk of mono PCM16 audio.
type AudioFrame struct {
	Participant ParticipantIdentity
	SampleRate  int
	Samples     []int16
}
