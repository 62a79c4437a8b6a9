// Package livekit connects the agent to LiveKit rooms.
package livekit

import (
	"context"
	"fmt"
	"sync"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"

	"github.com/PabloGalante/practerview-agent/internal/domain"
	"github.com/PabloGalante/practerview-agent/internal/observability"
)

type remoteTrack struct {
	track *webrtc.TrackRemote
	p     domain.Participant
}

// Room implements domain.Room over an lksdk.Room.
type Room struct {
	name domain.RoomName
	lk   *lksdk.Room
	ctx  context.Context

	mu       sync.Mutex
	onJoin   []func(domain.Participant)
	tracks   map[string]remoteTrack
	audio    *audioStream
	localPub *lksdk.LocalTrackPublication
}

func newRoom(ctx context.Context, name domain.RoomName) *Room {
	return &Room{
		name:   name,
		ctx:    ctx,
		tracks: make(map[string]remoteTrack),
	}
}

func (r *Room) Name() domain.RoomName {
	return r.name
}

func (r *Room) LocalIdentity() domain.ParticipantIdentity {
	return domain.ParticipantIdentity(r.lk.LocalParticipant.Identity())
}

func (r *Room) RemoteParticipants() []domain.Participant {
	remotes := r.lk.GetRemoteParticipants()
	out := make([]domain.Participant, 0, len(remotes))
	for _, rp := range remotes {
		out = append(out, participant{rp: rp})
	}
	return out
}

func (r *Room) OnParticipantJoined(fn func(domain.Participant)) {
	r.mu.Lock()
	r.onJoin = append(r.onJoin, fn)
	r.mu.Unlock()
}

// OpenAudio starts reading every accepted remote microphone track and routes
// the agent's speech either to its own published track or, when
// opts.OutputDestination is set, to that participant as a PCM data stream.
// Only one stream can be open at a time.
func (r *Room) OpenAudio(ctx context.Context, opts domain.AudioOptions) (domain.AudioStream, error) {
	r.mu.Lock()
	if r.audio != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("audio already open for room %s", r.name)
	}
	r.mu.Unlock()

	var (
		out audioOutput
		pub *lksdk.LocalTrackPublication
	)
	if opts.OutputDestination != "" {
		out = newAvatarOutput(ctx, string(opts.OutputDestination), opts.OutputSampleRate, r.lk.LocalParticipant)
		observability.LoggerFromContext(ctx).Info("agent audio routed to participant",
			"participant", opts.OutputDestination)
	} else {
		track, err := newTrackOutput(opts.OutputSampleRate)
		if err != nil {
			return nil, err
		}
		pub, err = r.publishVoice(track.provider)
		if err != nil {
			track.close()
			return nil, err
		}
		out = track
	}
	stream := newAudioStream(ctx, opts, out)

	r.mu.Lock()
	r.audio = stream
	r.localPub = pub
	existing := make([]remoteTrack, 0, len(r.tracks))
	for _, t := range r.tracks {
		existing = append(existing, t)
	}
	r.mu.Unlock()

	stream.onClose = func() {
		r.mu.Lock()
		if r.audio == stream {
			r.audio = nil
		}
		pub := r.localPub
		r.localPub = nil
		r.mu.Unlock()
		if pub != nil {
			_ = r.lk.LocalParticipant.UnpublishTrack(pub.SID())
		}
	}

	for _, t := range existing {
		stream.readTrack(t.track, t.p)
	}
	return stream, nil
}

func (r *Room) publishVoice(provider *sampleProvider) (*lksdk.LocalTrackPublication, error) {
	track, err := lksdk.NewLocalSampleTrack(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("create local track: %w", err)
	}
	if err := track.StartWrite(provider, func() {}); err != nil {
		return nil, fmt.Errorf("start track writer: %w", err)
	}

	pub, err := r.lk.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
		Name:   "interviewer-voice",
		Source: livekit.TrackSource_MICROPHONE,
	})
	if err != nil {
		return nil, fmt.Errorf("publish agent track: %w", err)
	}
	return pub, nil
}

func (r *Room) Disconnect() {
	r.mu.Lock()
	stream := r.audio
	r.mu.Unlock()
	if stream != nil {
		_ = stream.Close()
	}
	r.lk.Disconnect()
}

// disconnected ends the open audio stream when the agent leaves the room.
func (r *Room) disconnected() {
	r.mu.Lock()
	stream := r.audio
	r.mu.Unlock()
	if stream != nil {
		_ = stream.Close()
	}
}

func (r *Room) participantConnected(rp *lksdk.RemoteParticipant) {
	p := participant{rp: rp}
	observability.LoggerFromContext(r.ctx).Info("participant connected",
		"participant", p.Identity(), "kind", p.Kind())

	r.mu.Lock()
	handlers := append([]func(domain.Participant){}, r.onJoin...)
	r.mu.Unlock()

	for _, fn := range handlers {
		fn(p)
	}
}

// acceptAudioTrack keeps the model listening to people only: other agents,
// including an avatar speaking for this one, and screen-share audio are skipped.
func acceptAudioTrack(kind domain.ParticipantKind, source livekit.TrackSource) bool {
	return kind != domain.KindAgent && source == livekit.TrackSource_MICROPHONE
}

func (r *Room) trackSubscribed(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if track.Kind() != webrtc.RTPCodecTypeAudio {
		return
	}
	p := participant{rp: rp}
	log := observability.LoggerFromContext(r.ctx)
	if !acceptAudioTrack(p.Kind(), pub.Source()) {
		log.Debug("ignoring audio track",
			"participant", p.Identity(), "kind", p.Kind(), "source", pub.Source().String())
		return
	}
	log.Info("audio track subscribed", "participant", p.Identity(), "track", pub.SID())

	r.mu.Lock()
	r.tracks[pub.SID()] = remoteTrack{track: track, p: p}
	stream := r.audio
	r.mu.Unlock()

	if stream != nil {
		stream.readTrack(track, p)
	}
}

func (r *Room) trackUnsubscribed(pub *lksdk.RemoteTrackPublication) {
	r.mu.Lock()
	delete(r.tracks, pub.SID())
	r.mu.Unlock()
}
