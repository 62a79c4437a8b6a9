// Package realtime bridges room audio to the Gemini Live speech-to-speech API.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"github.com/PabloGalante/practerview-agent/internal/domain"
	"github.com/PabloGalante/practerview-agent/internal/observability"
)

const (
	DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	DefaultVoice = "Aoede"

	InputSampleRate  = 16000
	OutputSampleRate = 24000
)

var (
	ErrNotStarted     = errors.New("conversation not started")
	ErrClosed         = errors.New("conversation closed")
	ErrAlreadyStarted = errors.New("conversation already started")

	// errEnded stops the pumps when the server or the room ends the
	// conversation without a failure.
	errEnded = errors.New("conversation ended")
)

// liveSession is the part of *genai.Session the conversation uses.
type liveSession interface {
	SendRealtimeInput(genai.LiveRealtimeInput) error
	Receive() (*genai.LiveServerMessage, error)
	Close() error
}

type connectFunc func(ctx context.Context, model string, cfg *genai.LiveConnectConfig) (liveSession, error)

type Options struct {
	Client *genai.Client
	Model  string
	Voice  string
	// Temperature of zero leaves the model default.
	Temperature float32
}

// Factory creates Gemini Live conversations sharing one genai client.
type Factory struct {
	opts    Options
	connect connectFunc
}

func NewFactory(opts Options) *Factory {
	client := opts.Client
	return newFactory(opts, func(ctx context.Context, model string, cfg *genai.LiveConnectConfig) (liveSession, error) {
		s, err := client.Live.Connect(ctx, model, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

func newFactory(opts Options, connect connectFunc) *Factory {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Voice == "" {
		opts.Voice = DefaultVoice
	}
	return &Factory{opts: opts, connect: connect}
}

// NewConversation implements domain.ConversationFactory.
func (f *Factory) NewConversation() domain.Conversation {
	return &Conversation{
		opts:    f.opts,
		connect: f.connect,
		done:    make(chan struct{}),
	}
}

// Conversation is one Live API session wired to a room's audio.
type Conversation struct {
	opts    Options
	connect connectFunc

	mu      sync.Mutex
	onItem  func(domain.TranscriptItem)
	sess    liveSession
	cancel  context.CancelFunc
	started bool
	closed  bool
	err     error

	// gorilla websocket allows a single concurrent writer.
	writeMu sync.Mutex

	done     chan struct{}
	doneOnce sync.Once
}

func (c *Conversation) OnItemAdded(fn func(domain.TranscriptItem)) {
	c.mu.Lock()
	c.onItem = fn
	c.mu.Unlock()
}

// Start opens the room audio, connects the Live session with the persona as
// system instruction and runs the audio pumps until the conversation ends.
func (c *Conversation) Start(ctx context.Context, room domain.Room, cfg domain.ConversationConfig) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.started:
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	log := observability.LoggerFromContext(ctx)

	audio, err := room.OpenAudio(ctx, domain.AudioOptions{
		InputSampleRate:   InputSampleRate,
		OutputSampleRate:  OutputSampleRate,
		NoiseProfile:      cfg.NoiseProfile,
		OutputDestination: cfg.Speaker,
	})
	if err != nil {
		return fmt.Errorf("open room audio: %w", err)
	}

	sess, err := c.connect(ctx, c.opts.Model, c.liveConfig(cfg.Instructions))
	if err != nil {
		_ = audio.Close()
		return fmt.Errorf("connect live session: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.sess = sess
	c.cancel = cancel
	closed := c.closed
	c.mu.Unlock()
	if closed {
		cancel()
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return c.sendAudio(gctx, audio) })
	g.Go(func() error { return c.receive(gctx, room.Name(), audio) })
	g.Go(func() error {
		// Receive only returns once the socket is closed.
		<-gctx.Done()
		_ = sess.Close()
		return nil
	})

	go func() {
		err := g.Wait()
		cancel()
		_ = audio.Close()
		if errors.Is(err, errEnded) {
			err = nil
		}
		if err != nil {
			log.Error("live session failed", "error", err)
		} else {
			log.Info("live session ended")
		}
		c.finish(err)
	}()

	log.Info("live session connected", "model", c.opts.Model, "voice", c.opts.Voice)
	return nil
}

func (c *Conversation) liveConfig(instructions string) *genai.LiveConnectConfig {
	cfg := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SystemInstruction:  genai.NewContentFromText(instructions, genai.RoleUser),
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.opts.Voice},
			},
		},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if c.opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(c.opts.Temperature)
	}
	return cfg
}

// GenerateReply asks the model to speak, following instructions.
func (c *Conversation) GenerateReply(_ context.Context, instructions string) error {
	c.mu.Lock()
	sess, closed := c.sess, c.closed
	c.mu.Unlock()

	switch {
	case closed:
		return ErrClosed
	case sess == nil:
		return ErrNotStarted
	}
	if err := c.send(sess, genai.LiveRealtimeInput{Text: instructions}); err != nil {
		return fmt.Errorf("send instructions: %w", err)
	}
	return nil
}

func (c *Conversation) Done() <-chan struct{} { return c.done }

func (c *Conversation) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close stops the pumps. Done is closed once they have exited.
func (c *Conversation) Close() error {
	c.mu.Lock()
	c.closed = true
	cancel := c.cancel
	c.mu.Unlock()

	if cancel == nil {
		c.finish(nil)
		return nil
	}
	cancel()
	return nil
}

func (c *Conversation) finish(err error) {
	c.doneOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *Conversation) send(sess liveSession, in genai.LiveRealtimeInput) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return sess.SendRealtimeInput(in)
}

func (c *Conversation) sendAudio(ctx context.Context, audio domain.AudioStream) error {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	frames := audio.Frames()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-audio.Done():
			return errEnded
		case f, ok := <-frames:
			if !ok {
				return errEnded
			}
			if len(f.Samples) == 0 {
				continue
			}
			rate := f.SampleRate
			if rate == 0 {
				rate = InputSampleRate
			}
			err := c.send(sess, genai.LiveRealtimeInput{Audio: &genai.Blob{
				Data:     pcmToBytes(f.Samples),
				MIMEType: fmt.Sprintf("audio/pcm;rate=%d", rate),
			}})
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("send audio: %w", err)
			}
		}
	}
}

func (c *Conversation) receive(ctx context.Context, room domain.RoomName, audio domain.AudioStream) error {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	log := observability.LoggerFromContext(ctx)
	tr := &transcriber{room: room, emit: c.emit}

	for {
		msg, err := sess.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		if msg.GoAway != nil {
			log.Warn("live session going away", "time_left", msg.GoAway.TimeLeft)
			tr.flushAll()
			return errEnded
		}

		sc := msg.ServerContent
		if sc == nil {
			continue
		}
		if sc.Interrupted {
			audio.ClearOutput()
			tr.flushAgent()
		}
		if sc.InputTranscription != nil {
			tr.user(sc.InputTranscription.Text, sc.InputTranscription.Finished)
		}
		if sc.ModelTurn != nil {
			tr.flushUser()
			for _, part := range sc.ModelTurn.Parts {
				if part == nil || part.InlineData == nil {
					continue
				}
				if !strings.HasPrefix(part.InlineData.MIMEType, "audio/pcm") {
					continue
				}
				if err := audio.Write(bytesToPCM(part.InlineData.Data)); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return fmt.Errorf("write room audio: %w", err)
				}
			}
		}
		if sc.OutputTranscription != nil {
			tr.flushUser()
			tr.agent(sc.OutputTranscription.Text, sc.OutputTranscription.Finished)
		}
		if sc.TurnComplete {
			audio.Flush()
			tr.flushAll()
		}
	}
}

func (c *Conversation) emit(item domain.TranscriptItem) {
	c.mu.Lock()
	fn := c.onItem
	c.mu.Unlock()
	if fn != nil {
		fn(item)
	}
}

// transcriber joins streamed transcription chunks into one item per turn.
// It is only used from the receive goroutine.
type transcriber struct {
	room     domain.RoomName
	emit     func(domain.TranscriptItem)
	userBuf  strings.Builder
	agentBuf strings.Builder
}

func (t *transcriber) user(text string, finished bool) {
	t.userBuf.WriteString(text)
	if finished {
		t.flushUser()
	}
}

func (t *transcriber) agent(text string, finished bool) {
	t.agentBuf.WriteString(text)
	if finished {
		t.flushAgent()
	}
}

func (t *transcriber) flushUser() {
	t.flush(&t.userBuf, domain.RoleUser)
}

func (t *transcriber) flushAgent() {
	t.flush(&t.agentBuf, domain.RoleAgent)
}

func (t *transcriber) flushAll() {
	t.flushUser()
	t.flushAgent()
}

func (t *transcriber) flush(buf *strings.Builder, author domain.Role) {
	text := strings.TrimSpace(buf.String())
	buf.Reset()
	if text == "" {
		return
	}
	t.emit(domain.TranscriptItem{Room: t.room, Author: author, Text: text})
}
