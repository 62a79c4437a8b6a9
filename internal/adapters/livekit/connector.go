package livekit

import (
	"context"
	"fmt"

	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"

	"github.com/PabloGalante/practerview-agent/internal/domain"
	"github.com/PabloGalante/practerview-agent/internal/observability"
)

const DefaultAgentIdentity = "practerview-agent"

type ConnectorOptions struct {
	URL    string
	Signer domain.TokenSigner
	// Identity is the agent's participant identity in every room.
	Identity string
	Name     string
}

// Connector joins rooms as the interview agent.
type Connector struct {
	url      string
	signer   domain.TokenSigner
	identity string
	name     string
}

func NewConnector(opts ConnectorOptions) *Connector {
	identity := opts.Identity
	if identity == "" {
		identity = DefaultAgentIdentity
	}
	name := opts.Name
	if name == "" {
		name = "Interviewer"
	}
	return &Connector{
		url:      opts.URL,
		signer:   opts.Signer,
		identity: identity,
		name:     name,
	}
}

func (c *Connector) Connect(ctx context.Context, name domain.RoomName) (domain.Room, error) {
	if c.url == "" {
		return nil, fmt.Errorf("LIVEKIT_URL is not set")
	}

	tok, err := c.signer.Sign(domain.AccessRequest{
		Identity: domain.ParticipantIdentity(c.identity),
		Name:     c.name,
		Room:     name,
		Kind:     domain.KindAgent,
		Agent:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("sign agent token: %w", err)
	}

	room := newRoom(ctx, name)
	cb := &lksdk.RoomCallback{
		OnParticipantConnected: room.participantConnected,
		OnDisconnected: func() {
			observability.LoggerFromContext(ctx).Info("disconnected from room")
			room.disconnected()
		},
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed: room.trackSubscribed,
			OnTrackUnsubscribed: func(_ *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, _ *lksdk.RemoteParticipant) {
				room.trackUnsubscribed(pub)
			},
		},
	}

	lk, err := lksdk.ConnectToRoomWithToken(c.url, tok, cb)
	if err != nil {
		return nil, fmt.Errorf("connect to room %s: %w", name, err)
	}
	room.lk = lk

	observability.LoggerFromContext(ctx).Info("connected to room", "identity", c.identity)
	return room, nil
}
