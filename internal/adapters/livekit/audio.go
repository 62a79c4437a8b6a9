package livekit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hraban/opus"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/PabloGalante/practerview-agent/internal/domain"
	"github.com/PabloGalante/practerview-agent/internal/observability"
)

const (
	frameDuration = 20 * time.Millisecond
	// maxOpusFrame bounds one decoded packet: 120 ms at 48 kHz.
	maxOpusFrame = 5760
	// outboundQueue holds about ten seconds of 20 ms frames.
	outboundQueue = 500
)

var ErrStreamClosed = errors.New("audio stream closed")

// samplesPerFrame returns how many mono samples fit in one 20 ms frame.
func samplesPerFrame(rate int) int {
	return rate * int(frameDuration/time.Millisecond) / 1000
}

// sampleProvider feeds encoded Opus frames to a LocalTrack. The SDK paces
// writes by each sample's Duration.
type sampleProvider struct {
	queue chan []byte

	mu     sync.Mutex
	closed bool
}

func newSampleProvider() *sampleProvider {
	return &sampleProvider{queue: make(chan []byte, outboundQueue)}
}

func (p *sampleProvider) NextSample(ctx context.Context) (media.Sample, error) {
	select {
	case <-ctx.Done():
		return media.Sample{}, ctx.Err()
	case data, ok := <-p.queue:
		if !ok {
			return media.Sample{}, io.EOF
		}
		return media.Sample{Data: data, Duration: frameDuration}, nil
	}
}

func (p *sampleProvider) OnBind() error   { return nil }
func (p *sampleProvider) OnUnbind() error { return nil }

func (p *sampleProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	return nil
}

func (p *sampleProvider) push(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrStreamClosed
	}
	select {
	case p.queue <- frame:
		return nil
	default:
		return fmt.Errorf("outbound audio queue full")
	}
}

// drain drops every queued frame.
func (p *sampleProvider) drain() {
	for {
		select {
		case <-p.queue:
		default:
			return
		}
	}
}

// audioOutput plays the agent's PCM at the output rate.
type audioOutput interface {
	write(samples []int16) error
	flush()
	clear()
	close()
}

// trackOutput encodes PCM into 20 ms Opus frames for the agent's own track.
type trackOutput struct {
	rate     int
	provider *sampleProvider

	mu      sync.Mutex
	encoder *opus.Encoder
	pending []int16
}

func newTrackOutput(rate int) (*trackOutput, error) {
	enc, err := opus.NewEncoder(rate, 1, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	return &trackOutput{rate: rate, provider: newSampleProvider(), encoder: enc}, nil
}

// write keeps a trailing partial frame until the next call or flush.
func (o *trackOutput) write(samples []int16) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = append(o.pending, samples...)
	if err := o.encodeFrames(); err != nil {
		return err
	}
	if len(o.pending) == 0 {
		o.pending = nil
	}
	return nil
}

// flush pads the trailing partial frame with silence and queues it.
func (o *trackOutput) flush() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.pending) == 0 {
		return
	}
	n := samplesPerFrame(o.rate)
	o.pending = append(o.pending, make([]int16, n-len(o.pending)%n)...)
	_ = o.encodeFrames()
	o.pending = nil
}

func (o *trackOutput) encodeFrames() error {
	n := samplesPerFrame(o.rate)
	buf := make([]byte, 4000)
	for len(o.pending) >= n {
		written, err := o.encoder.Encode(o.pending[:n], buf)
		if err != nil {
			return fmt.Errorf("opus encode: %w", err)
		}
		frame := make([]byte, written)
		copy(frame, buf[:written])
		if err := o.provider.push(frame); err != nil {
			return err
		}
		o.pending = o.pending[n:]
	}
	return nil
}

func (o *trackOutput) clear() {
	o.mu.Lock()
	o.pending = nil
	o.mu.Unlock()
	o.provider.drain()
}

func (o *trackOutput) close() {
	_ = o.provider.Close()
}

// audioStream bridges room tracks and a conversation. Inbound audio from every
// accepted remote participant is decoded, gated and sent to Frames; outbound
// PCM goes to the output. Frames is never closed: track readers block in
// ReadRTP, so they stop on the next packet after Close.
type audioStream struct {
	opts   domain.AudioOptions
	frames chan domain.AudioFrame
	out    audioOutput

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	onClose   func()
}

func newAudioStream(ctx context.Context, opts domain.AudioOptions, out audioOutput) *audioStream {
	ctx, cancel := context.WithCancel(ctx)
	return &audioStream{
		opts:   opts,
		frames: make(chan domain.AudioFrame, 64),
		out:    out,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *audioStream) Frames() <-chan domain.AudioFrame {
	return s.frames
}

// Write queues PCM at the output rate.
func (s *audioStream) Write(samples []int16) error {
	if s.ctx.Err() != nil {
		return ErrStreamClosed
	}
	return s.out.write(samples)
}

func (s *audioStream) Flush() {
	if s.ctx.Err() != nil {
		return
	}
	s.out.flush()
}

func (s *audioStream) ClearOutput() {
	s.out.clear()
}

func (s *audioStream) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *audioStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.out.close()
		if s.onClose != nil {
			s.onClose()
		}
	})
	return nil
}

// readTrack decodes one remote audio track until it ends or the stream closes.
func (s *audioStream) readTrack(track *webrtc.TrackRemote, p domain.Participant) {
	if s.ctx.Err() != nil {
		return
	}
	go func() {
		log := observability.LoggerFromContext(s.ctx).With("participant", p.Identity())
		dec, err := opus.NewDecoder(s.opts.InputSampleRate, 1)
		if err != nil {
			log.Error("failed to create opus decoder", "error", err)
			return
		}

		profile := domain.NoiseProfileGeneral
		if s.opts.NoiseProfile != nil {
			profile = s.opts.NoiseProfile(p)
		}
		gate := newNoiseGate(profile)
		log.Info("reading participant audio", "noise_profile", profile)

		pcm := make([]int16, maxOpusFrame)
		for {
			if s.ctx.Err() != nil {
				return
			}
			pkt, _, err := track.ReadRTP()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					log.Warn("audio track read failed", "error", err)
				}
				return
			}
			if len(pkt.Payload) == 0 {
				continue
			}

			n, err := dec.Decode(pkt.Payload, pcm)
			if err != nil || n == 0 {
				continue
			}

			samples := make([]int16, n)
			copy(samples, pcm[:n])
			gate.Process(samples)

			select {
			case s.frames <- domain.AudioFrame{
				Participant: p.Identity(),
				SampleRate:  s.opts.InputSampleRate,
				Samples:     samples,
			}:
			case <-s.ctx.Done():
				return
			}
		}
	}()
}
