// Package credentials issues room-join credentials for interview candidates.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/PabloGalante/practerview-agent/internal/domain"
)

var ErrInvalidType = errors.New("interview type must match [A-Za-z0-9_-]{1,64}")

var typePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

const DefaultRoomSuffix = "-interview"

type Options struct {
	Signer domain.TokenSigner
	URL    string

	// RoomSuffix is appended to the interview type to name the room.
	RoomSuffix string
	// FixedRoom, when set, sends every candidate to the same room.
	FixedRoom       string
	ParticipantName string
}

type Service struct {
	signer     domain.TokenSigner
	url        string
	suffix     string
	fixedRoom  domain.RoomName
	name       string
	identities func() string
}

type IssueInput struct {
	Type string
}

func NewService(opts Options) *Service {
	suffix := opts.RoomSuffix
	if suffix == "" {
		suffix = DefaultRoomSuffix
	}
	name := opts.ParticipantName
	if name == "" {
		name = "Candidate"
	}
	return &Service{
		signer:     opts.Signer,
		url:        opts.URL,
		suffix:     suffix,
		fixedRoom:  domain.RoomName(opts.FixedRoom),
		name:       name,
		identities: newIdentity,
	}
}

func newIdentity() string {
	return "user-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// RoomFor returns the room a candidate of type t is sent to.
func (s *Service) RoomFor(t domain.InterviewType) domain.RoomName {
	if s.fixedRoom != "" {
		return s.fixedRoom
	}
	return domain.RoomName(string(t) + s.suffix)
}

// Accepts reports whether room is one this deployment hands out, so the
// agent joins exactly the rooms candidates are sent to.
func (s *Service) Accepts(room domain.RoomName) bool {
	if s.fixedRoom != "" && room == s.fixedRoom {
		return true
	}
	r := string(room)
	return len(r) > len(s.suffix) && strings.HasSuffix(r, s.suffix)
}

// Issue signs a credential for a fresh candidate identity. An empty type
// means the default persona.
func (s *Service) Issue(ctx context.Context, in IssueInput) (*domain.Credential, error) {
	label := strings.TrimSpace(in.Type)
	if label == "" {
		label = string(domain.DefaultInterviewType)
	}
	if !typePattern.MatchString(label) {
		return nil, ErrInvalidType
	}
	t := domain.InterviewType(label)

	meta, err := json.Marshal(map[string]string{"type": label})
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	identity := domain.ParticipantIdentity(s.identities())
	room := s.RoomFor(t)

	tok, err := s.signer.Sign(domain.AccessRequest{
		Identity: identity,
		Name:     s.name,
		Metadata: string(meta),
		Room:     room,
		Kind:     domain.KindStandard,
	})
	if err != nil {
		return nil, err
	}

	return &domain.Credential{
		Token:     tok,
		URL:       s.url,
		Identity:  identity,
		Name:      s.name,
		Type:      t,
		Room:      room,
		FixedRoom: s.fixedRoom != "",
	}, nil
}
