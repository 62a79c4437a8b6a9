package realtime

import "encoding/binary"

// pcmToBytes packs mono PCM16 samples little-endian, the layout the Live API
// expects for audio/pcm input.
func pcmToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// bytesToPCM unpacks little-endian PCM16. A trailing odd byte is dropped.
func bytesToPCM(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}
