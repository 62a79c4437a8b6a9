// Package session drives one interview conversation from persona selection
// through the opening greeting.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PabloGalante/practerview-agent/internal/app/persona"
	"github.com/PabloGalante/practerview-agent/internal/domain"
	"github.com/PabloGalante/practerview-agent/internal/observability"
)

type Options struct {
	Personas      *persona.Registry
	Conversations domain.ConversationFactory
	// Avatar is optional; nil skips the attach step.
	Avatar      domain.Avatar
	Transcripts domain.TranscriptStore
	Metrics     *observability.Metrics
	Greeting    string
}

type Controller struct {
	personas      *persona.Registry
	conversations domain.ConversationFactory
	avatar        domain.Avatar
	transcripts   domain.TranscriptStore
	metrics       *observability.Metrics
	greeting      string
	now           func() time.Time
}

func NewController(opts Options) *Controller {
	personas := opts.Personas
	if personas == nil {
		personas = persona.NewRegistry()
	}
	greeting := opts.Greeting
	if greeting == "" {
		greeting = persona.GreetingInstructions
	}
	return &Controller{
		personas:      personas,
		conversations: opts.Conversations,
		avatar:        opts.Avatar,
		transcripts:   opts.Transcripts,
		metrics:       opts.Metrics,
		greeting:      greeting,
		now:           time.Now,
	}
}

// Session is the per-room context: bound persona, conversation and avatar.
type Session struct {
	mu     sync.Mutex
	info   domain.SessionInfo
	conv   domain.Conversation
	avatar domain.AvatarHandle
	slot   *persona.Slot

	typeBound bool
}

// Info returns the externally visible status. Avatar outcomes are not part of it.
func (s *Session) Info() domain.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

func (s *Session) setState(st domain.SessionState) {
	s.mu.Lock()
	s.info.State = st
	s.mu.Unlock()
}

// bound reports whether the interview type has been fixed for the conversation.
func (s *Session) bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typeBound
}

// Wait blocks until the conversation ends or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.conv.Done():
		return s.conv.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears down the avatar (if any) and the conversation.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	avatar := s.avatar
	s.avatar = nil
	s.mu.Unlock()

	if avatar != nil {
		if err := avatar.Close(ctx); err != nil {
			observability.LoggerFromContext(ctx).Warn("avatar close failed", "error", err)
		}
	}
	return s.conv.Close()
}

// Start resolves the persona for room, attaches the avatar when configured,
// starts the conversation and sends the greeting. Only conversation start and
// greeting failures are returned.
func (c *Controller) Start(ctx context.Context, room domain.Room) (*Session, error) {
	ctx = observability.WithRoom(ctx, string(room.Name()))
	log := observability.LoggerFromContext(ctx)

	conv := c.conversations.NewConversation()
	s := &Session{
		conv: conv,
		slot: persona.NewSlot(),
		info: domain.SessionInfo{
			Room:          room.Name(),
			InterviewType: domain.DefaultInterviewType,
			State:         domain.StateAwaitingPersona,
			StartedAt:     c.now(),
		},
	}

	conv.OnItemAdded(func(item domain.TranscriptItem) {
		c.recordItem(ctx, room.Name(), item)
	})

	// The agent may join first; later joins overwrite the candidate type.
	// Registered before the scan so no join is missed in between.
	room.OnParticipantJoined(func(p domain.Participant) {
		t, err := s.slot.Observe(p.Metadata())
		if err != nil {
			log.Debug("ignoring participant metadata", "participant", p.Identity(), "reason", err)
			return
		}
		if s.bound() {
			log.Info("participant joined after conversation start, persona unchanged",
				"participant", p.Identity(), "type", t)
			return
		}
		log.Info("participant joined with type", "participant", p.Identity(), "type", t)
	})

	// Already-present participants: the first one carrying a type wins,
	// unless a join has been observed meanwhile.
	for _, p := range room.RemoteParticipants() {
		t, err := s.slot.Seed(p.Metadata())
		if errors.Is(err, persona.ErrAlreadyObserved) {
			break
		}
		if err != nil {
			continue
		}
		log.Info("found existing participant with type", "participant", p.Identity(), "type", t)
		break
	}
	s.setState(domain.StatePersonaResolved)

	var speaker domain.ParticipantIdentity
	if c.avatar != nil {
		handle, err := c.avatar.Attach(ctx, room)
		if err != nil {
			log.Warn("avatar failed to start", "error", err)
			if c.metrics != nil {
				c.metrics.AvatarFailures.Inc()
			}
		} else {
			s.mu.Lock()
			s.avatar = handle
			s.mu.Unlock()
			speaker = handle.Identity()
		}
	}
	s.setState(domain.StateAvatarAttachAttempted)

	// The persona is fixed here; later observations do not reach the model.
	interviewType := c.personas.Resolve(s.slot.Current())
	s.mu.Lock()
	s.info.InterviewType = interviewType
	s.typeBound = true
	s.mu.Unlock()

	err := conv.Start(ctx, room, domain.ConversationConfig{
		Instructions: c.personas.Template(interviewType),
		NoiseProfile: SelectNoiseProfile,
		Speaker:      speaker,
	})
	if err != nil {
		c.abort(ctx, s)
		return nil, fmt.Errorf("start conversation: %w", err)
	}
	s.setState(domain.StateConversationStarted)
	if c.metrics != nil {
		c.metrics.PersonaSelected.WithLabelValues(string(interviewType)).Inc()
	}
	log.Info("conversation started", "type", interviewType)

	if err := conv.GenerateReply(ctx, c.greeting); err != nil {
		c.abort(ctx, s)
		return nil, fmt.Errorf("send greeting: %w", err)
	}
	s.setState(domain.StateGreetingSent)
	if c.metrics != nil {
		c.metrics.SessionsStarted.WithLabelValues(string(interviewType)).Inc()
	}

	return s, nil
}

func (c *Controller) abort(ctx context.Context, s *Session) {
	if c.metrics != nil {
		c.metrics.SessionsFailed.Inc()
	}
	_ = s.Close(ctx)
}

func (c *Controller) recordItem(ctx context.Context, room domain.RoomName, item domain.TranscriptItem) {
	if item.Text == "" {
		return
	}
	if item.Room == "" {
		item.Room = room
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = c.now()
	}

	log := observability.LoggerFromContext(ctx)
	switch item.Author {
	case domain.RoleAgent:
		log.Info("Agent: " + item.Text)
	default:
		log.Info("User: " + item.Text)
	}

	if c.metrics != nil {
		c.metrics.TranscriptItems.WithLabelValues(string(item.Author)).Inc()
	}
	if c.transcripts != nil {
		if err := c.transcripts.AppendItem(item); err != nil {
			log.Error("failed to append transcript item", "error", err)
		}
	}
}

// SelectNoiseProfile uses telephony suppression for SIP callers and the
// general profile for everyone else.
func SelectNoiseProfile(p domain.Participant) domain.NoiseProfile {
	if p != nil && p.Kind() == domain.KindSIP {
		return domain.NoiseProfileTelephony
	}
	return domain.NoiseProfileGeneral
}
