// Package avatar attaches a Tavus video avatar to an interview room.
package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PabloGalante/practerview-agent/internal/domain"
	"github.com/PabloGalante/practerview-agent/internal/observability"
)

const (
	DefaultBaseURL = "https://tavusapi.com"

	// Identity is the participant identity the avatar joins with.
	Identity = "tavus-avatar-agent"
	Name     = "Tavus Avatar"

	// PublishOnBehalfAttribute links the avatar's tracks to the agent.
	PublishOnBehalfAttribute = "lk.publish_on_behalf"
)

var (
	ErrMissingAPIKey  = errors.New("tavus api key is not set")
	ErrMissingReplica = errors.New("tavus replica id is not set")
)

type Options struct {
	APIKey    string
	BaseURL   string
	ReplicaID string
	PersonaID string

	// LiveKitURL is handed to Tavus so the renderer can join the room.
	LiveKitURL string
	Signer     domain.TokenSigner

	HTTPClient *http.Client
}

// Client creates and ends Tavus conversations bound to LiveKit rooms.
type Client struct {
	opts Options
	http *http.Client
}

// NewClient never fails; a missing API key or replica surfaces on Attach.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{opts: opts, http: hc}
}

type conversationProperties struct {
	LiveKitWSURL     string `json:"livekit_ws_url"`
	LiveKitRoomToken string `json:"livekit_room_token"`
}

type createConversationRequest struct {
	ReplicaID        string                 `json:"replica_id"`
	PersonaID        string                 `json:"persona_id,omitempty"`
	ConversationName string                 `json:"conversation_name,omitempty"`
	Properties       conversationProperties `json:"properties"`
}

type createConversationResponse struct {
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
}

// Attach implements domain.Avatar. The avatar joins with its own agent token
// and publishes on behalf of the room's local participant.
func (c *Client) Attach(ctx context.Context, room domain.Room) (domain.AvatarHandle, error) {
	switch {
	case c.opts.APIKey == "":
		return nil, ErrMissingAPIKey
	case c.opts.ReplicaID == "":
		return nil, ErrMissingReplica
	}

	token, err := c.opts.Signer.Sign(domain.AccessRequest{
		Identity: Identity,
		Name:     Name,
		Room:     room.Name(),
		Kind:     domain.KindAgent,
		Agent:    true,
		Attributes: map[string]string{
			PublishOnBehalfAttribute: string(room.LocalIdentity()),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mint avatar token: %w", err)
	}

	var out createConversationResponse
	err = c.post(ctx, "/v2/conversations", createConversationRequest{
		ReplicaID:        c.opts.ReplicaID,
		PersonaID:        c.opts.PersonaID,
		ConversationName: string(room.Name()),
		Properties: conversationProperties{
			LiveKitWSURL:     c.opts.LiveKitURL,
			LiveKitRoomToken: token,
		},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("create tavus conversation: %w", err)
	}
	if out.ConversationID == "" {
		return nil, errors.New("create tavus conversation: empty conversation id")
	}

	observability.LoggerFromContext(ctx).Info("avatar attached",
		"conversation_id", out.ConversationID, "replica_id", c.opts.ReplicaID)
	return &handle{client: c, conversationID: out.ConversationID}, nil
}

func (c *Client) endConversation(ctx context.Context, id string) error {
	if err := c.post(ctx, "/v2/conversations/"+url.PathEscape(id)+"/end", nil, nil); err != nil {
		return fmt.Errorf("end tavus conversation %s: %w", id, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.opts.APIKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			if msg := errResp.Message + errResp.Error; msg != "" {
				return fmt.Errorf("tavus api error (%d): %s", resp.StatusCode, msg)
			}
		}
		return fmt.Errorf("tavus api error: %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type handle struct {
	client         *Client
	conversationID string
}

func (h *handle) Identity() domain.ParticipantIdentity {
	return Identity
}

// Close ends the Tavus conversation; the renderer then leaves the room.
func (h *handle) Close(ctx context.Context) error {
	return h.client.endConversation(ctx, h.conversationID)
}
