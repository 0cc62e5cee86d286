package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
)

type execEngine struct {
	cmd []string
	mu  sync.Mutex
}

type execRequest struct {
	Text  string          `json:"text"`
	Style json.RawMessage `json:"style"`
	Steps int             `json:"steps"`
	Speed float64         `json:"speed"`
}

type execResponse struct {
	SamplesBase64 string  `json:"samples_base64"`
	Duration      float64 `json:"duration"`
	SampleRate    int     `json:"sample_rate"`
}

// NewExecEngine runs the synthesis engine as a subprocess per phrase,
// speaking JSON over stdin/stdout. Calls are serialized; the engine process
// is assumed to hold exclusive model state.
func NewExecEngine(command string) (Engine, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	return &execEngine{cmd: args}, nil
}

func (e *execEngine) Ready() bool { return true }

func (e *execEngine) Synthesize(ctx context.Context, req Request) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	input, err := json.Marshal(execRequest{
		Text:  req.Text,
		Style: req.Style.Data,
		Steps: req.Steps,
		Speed: req.Speed,
	})
	if err != nil {
		return Result{}, err
	}

	base := e.cmd[0]
	args := append([]string{}, e.cmd[1:]...)
	cmd := exec.CommandContext(ctx, base, args...)
	cmd.Stdin = bytes.NewReader(input)
	output, err := cmd.Output()
	if err != nil {
		return Result{}, fmt.Errorf("tts exec command failed: %w", err)
	}

	var resp execResponse
	if err := json.Unmarshal(output, &resp); err != nil {
		return Result{}, fmt.Errorf("decode tts exec response: %w", err)
	}
	return decodeResult(resp.SamplesBase64, resp.Duration, resp.SampleRate)
}

// decodeResult unpacks base64 little-endian float32 samples into a Result.
func decodeResult(samplesBase64 string, duration float64, sampleRate int) (Result, error) {
	raw, err := base64.StdEncoding.DecodeString(samplesBase64)
	if err != nil {
		return Result{}, fmt.Errorf("decode samples: %w", err)
	}
	if len(raw)%4 != 0 {
		return Result{}, fmt.Errorf("sample payload not float32 aligned: %d bytes", len(raw))
	}
	if sampleRate <= 0 {
		return Result{}, fmt.Errorf("engine returned sample rate %d", sampleRate)
	}
	samples := make([]float64, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[4*i:])
		samples[i] = float64(math.Float32frombits(bits))
	}
	return Result{Samples: samples, Duration: duration, SampleRate: sampleRate}, nil
}
