package stt

// NewLocalSTT points the Whisper client at a local whisper.cpp server started
// with its OpenAI compatible endpoint, e.g. ./server -m ggml-base.bin --port 8178.
func NewLocalSTT(baseURL string) *OpenAISTT {
	if baseURL == "" {
		baseURL = "http://localhost:8178/v1"
	}
	s := NewOpenAISTT(OpenAIConfig{BaseURL: baseURL})
	s.name = "local-whisper"
	return s
}
