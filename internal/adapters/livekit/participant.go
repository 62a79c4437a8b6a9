package livekit

import (
	lksdk "github.com/livekit/server-sdk-go/v2"

	"github.com/PabloGalante/practerview-agent/internal/domain"
)

// participant adapts a LiveKit remote participant to domain.Participant.
type participant struct {
	rp *lksdk.RemoteParticipant
}

func (p participant) Identity() domain.ParticipantIdentity {
	return domain.ParticipantIdentity(p.rp.Identity())
}

func (p participant) Metadata() string {
	return p.rp.Metadata()
}

func (p participant) Kind() domain.ParticipantKind {
	return kindOf(p.rp.Kind())
}

func kindOf(k lksdk.ParticipantKind) domain.ParticipantKind {
	switch k {
	case lksdk.ParticipantStandard:
		return domain.KindStandard
	case lksdk.ParticipantSIP:
		return domain.KindSIP
	case lksdk.ParticipantAgent:
		return domain.KindAgent
	default:
		return domain.KindOther
	}
}
