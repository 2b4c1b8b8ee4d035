package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type LocalConfig struct {
	PiperBinPath string // default: piper
	ModelPath    string // .onnx voice model, required
}

// LocalTTS runs the Piper binary; the voice is fixed by the model file.
type LocalTTS struct {
	cfg LocalConfig
}

func NewLocalTTS(cfg LocalConfig) *LocalTTS {
	if cfg.PiperBinPath == "" {
		cfg.PiperBinPath = "piper"
	}
	return &LocalTTS{cfg: cfg}
}

func (l *LocalTTS) Name() string { return "local-piper" }

func (l *LocalTTS) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	if l.cfg.ModelPath == "" {
		return nil, fmt.Errorf("piper model path is required (set TTS_LOCAL_PIPER_MODEL)")
	}

	cmd := exec.CommandContext(ctx, l.cfg.PiperBinPath, "--model", l.cfg.ModelPath, "--output_file", "-")
	cmd.Stdin = strings.NewReader(Clip(req.Input))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("piper failed: %w (stderr: %s)", err, stderr.String())
	}

	return &SynthesisResult{Audio: stdout.Bytes(), ContentType: ContentTypeWAV}, nil
}
