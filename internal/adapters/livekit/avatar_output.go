package livekit

import (
	"context"
	"encoding/binary"
	"strconv"
	"sync"
	"time"

	lksdk "github.com/livekit/server-sdk-go/v2"

	"github.com/PabloGalante/practerview-agent/internal/observability"
)

// Data stream protocol spoken by LiveKit avatar workers.
const (
	AudioStreamTopic  = "lk.audio_stream"
	ClearBufferMethod = "lk.clear_buffer"

	clearBufferTimeout = 8 * time.Second
)

// byteSink is the part of *lksdk.ByteStreamWriter the avatar output uses.
type byteSink interface {
	Write(data []byte, onDone *func())
	Close()
}

// avatarOutput streams the agent's PCM to a remote avatar participant, which
// renders it as its own audio and video. Each utterance is one byte stream.
type avatarOutput struct {
	ctx         context.Context
	dest        string
	attrs       map[string]string
	open        func(lksdk.StreamBytesOptions) byteSink
	clearBuffer func(lksdk.PerformRpcParams) error

	mu     sync.Mutex
	w      byteSink
	closed bool
}

func newAvatarOutput(ctx context.Context, dest string, rate int, lp *lksdk.LocalParticipant) *avatarOutput {
	return &avatarOutput{
		ctx:   ctx,
		dest:  dest,
		attrs: map[string]string{"sample_rate": strconv.Itoa(rate), "num_channels": "1"},
		open: func(opts lksdk.StreamBytesOptions) byteSink {
			return lp.StreamBytes(opts)
		},
		clearBuffer: func(params lksdk.PerformRpcParams) error {
			_, err := lp.PerformRpc(params)
			return err
		},
	}
}

func (o *avatarOutput) write(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrStreamClosed
	}
	if o.w == nil {
		attrs := make(map[string]string, len(o.attrs))
		for k, v := range o.attrs {
			attrs[k] = v
		}
		o.w = o.open(lksdk.StreamBytesOptions{
			Topic:                 AudioStreamTopic,
			DestinationIdentities: []string{o.dest},
			Attributes:            attrs,
		})
	}
	o.w.Write(pcmBytes(samples), nil)
	return nil
}

// flush ends the current utterance's stream.
func (o *avatarOutput) flush() {
	o.mu.Lock()
	w := o.w
	o.w = nil
	o.mu.Unlock()
	if w != nil {
		w.Close()
	}
}

// clear ends the current stream and tells the avatar to drop what it has
// buffered. The RPC runs in the background.
func (o *avatarOutput) clear() {
	o.flush()

	o.mu.Lock()
	closed := o.closed
	o.mu.Unlock()
	if closed {
		return
	}

	timeout := clearBufferTimeout
	params := lksdk.PerformRpcParams{
		DestinationIdentity: o.dest,
		Method:              ClearBufferMethod,
		ResponseTimeout:     &timeout,
	}
	go func() {
		if err := o.clearBuffer(params); err != nil {
			observability.LoggerFromContext(o.ctx).Warn("avatar clear buffer failed",
				"avatar", o.dest, "error", err)
		}
	}()
}

func (o *avatarOutput) close() {
	o.flush()
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
}

// pcmBytes encodes samples as 16-bit little-endian PCM.
func pcmBytes(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}
