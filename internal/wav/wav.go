// Package wav renders raw sample buffers as minimal RIFF/WAVE containers.
package wav

import (
	"encoding/binary"
	"math"
)

const (
	headerSize    = 44
	channels      = 1
	bitsPerSample = 16
)

// Encode builds a mono 16-bit PCM WAVE buffer from samples in [-1, 1].
// Out-of-range samples are clamped, never rejected. Zero samples yield a
// header-only buffer.
func Encode(samples []float64, sampleRate int) []byte {
	dataSize := len(samples) * (bitsPerSample / 8)
	buf := make([]byte, headerSize+dataSize)

	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], channels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(math.Round(s * 32767))
		binary.LittleEndian.PutUint16(buf[headerSize+2*i:], uint16(v))
	}
	return buf
}

// Silence builds a WAVE buffer of zero-valued samples covering the given
// duration. Treated downstream as ordinary audio data.
func Silence(seconds float64, sampleRate int) []byte {
	n := int(math.Round(seconds * float64(sampleRate)))
	if n < 0 {
		n = 0
	}
	return Encode(make([]float64, n), sampleRate)
}
