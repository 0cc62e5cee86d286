package wav

import (
	"bytes"
	"encoding/binary"
	"testing"

	audiowav "github.com/go-audio/wav"
)

func TestEncodeLengthAndHeader(t *testing.T) {
	const n = 1600
	buf := Encode(make([]float64, n), 16000)
	if len(buf) != 44+2*n {
		t.Fatalf("expected %d bytes, got %d", 44+2*n, len(buf))
	}
	declared := binary.LittleEndian.Uint32(buf[40:44])
	if declared != 2*n {
		t.Fatalf("declared data size %d, want %d", declared, 2*n)
	}

	dec := audiowav.NewDecoder(bytes.NewReader(buf))
	dec.ReadInfo()
	if !dec.IsValidFile() {
		t.Fatal("decoder rejected encoded buffer")
	}
	if dec.NumChans != 1 || dec.BitDepth != 16 || dec.SampleRate != 16000 {
		t.Fatalf("unexpected format: chans=%d depth=%d rate=%d", dec.NumChans, dec.BitDepth, dec.SampleRate)
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode pcm: %v", err)
	}
	if len(pcm.Data) != n {
		t.Fatalf("expected %d samples, got %d", n, len(pcm.Data))
	}
}

func TestEncodeClampsAndScales(t *testing.T) {
	buf := Encode([]float64{2.0, -3.0, 0.5, 0}, 22050)
	samples := buf[44:]
	got := []int16{
		int16(binary.LittleEndian.Uint16(samples[0:])),
		int16(binary.LittleEndian.Uint16(samples[2:])),
		int16(binary.LittleEndian.Uint16(samples[4:])),
		int16(binary.LittleEndian.Uint16(samples[6:])),
	}
	want := []int16{32767, -32767, 16384, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestEncodeEmptyInput(t *testing.T) {
	buf := Encode(nil, 16000)
	if len(buf) != 44 {
		t.Fatalf("expected header-only buffer, got %d bytes", len(buf))
	}
	if binary.LittleEndian.Uint32(buf[40:44]) != 0 {
		t.Fatal("expected zero declared data size")
	}
}

func TestSilenceDuration(t *testing.T) {
	buf := Silence(0.3, 16000)
	wantSamples := 4800
	if len(buf) != 44+2*wantSamples {
		t.Fatalf("expected %d bytes, got %d", 44+2*wantSamples, len(buf))
	}
	for _, b := range buf[44:] {
		if b != 0 {
			t.Fatal("silence buffer must be all zero samples")
		}
	}
}
