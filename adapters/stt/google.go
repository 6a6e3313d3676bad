// Package stt provides an optional local transcriber backed by Google
// Cloud Speech-to-Text. It runs alongside the agent's own transcription
// and only feeds the user side of the transcript.
package stt

import (
	"context"
	"fmt"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/leviathanch/Google-Companion/domain/repositories"
	"github.com/leviathanch/Google-Companion/internal/audio"
)

// GoogleTranscriber streams microphone PCM to a long-running recognize
// stream and reports final utterances through the callback given to
// Start.
type GoogleTranscriber struct {
	language string
	logger   *zap.Logger

	mu     sync.Mutex
	client *speech.Client
	stream speechpb.Speech_StreamingRecognizeClient
	closed bool
}

var _ repositories.Transcriber = (*GoogleTranscriber)(nil)

func NewGoogleTranscriber(language string, logger *zap.Logger) *GoogleTranscriber {
	if language == "" {
		language = "en-US"
	}
	return &GoogleTranscriber{language: language, logger: logger}
}

// Start opens the speech client and the recognize stream, then consumes
// results in the background until the stream dies or Close is called.
func (g *GoogleTranscriber) Start(ctx context.Context, onFinal func(text string)) error {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create speech client: %w", err)
	}

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz: audio.CaptureRate,
					LanguageCode:    g.language,
				},
				InterimResults: false,
			},
		},
	}); err != nil {
		_ = stream.CloseSend()
		client.Close()
		return fmt.Errorf("failed to send streaming config: %w", err)
	}

	g.mu.Lock()
	g.client = client
	g.stream = stream
	g.closed = false
	g.mu.Unlock()

	go g.receiveResults(stream, onFinal)
	return nil
}

// Feed forwards one PCM frame to the recognizer. Frames arriving after
// Close are silently dropped.
func (g *GoogleTranscriber) Feed(pcm []byte) error {
	g.mu.Lock()
	stream := g.stream
	closed := g.closed
	g.mu.Unlock()
	if closed || stream == nil {
		return nil
	}
	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: pcm,
		},
	}); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}
	return nil
}

func (g *GoogleTranscriber) receiveResults(stream speechpb.Speech_StreamingRecognizeClient, onFinal func(text string)) {
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			g.mu.Lock()
			closed := g.closed
			g.mu.Unlock()
			if !closed {
				g.logger.Warn("Speech recognition stream ended", zap.Error(err))
			}
			return
		}
		for _, result := range resp.Results {
			if result.IsFinal && len(result.Alternatives) > 0 {
				onFinal(result.Alternatives[0].Transcript)
			}
		}
	}
}

// Close ends the recognize stream and releases the client.
func (g *GoogleTranscriber) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	stream := g.stream
	client := g.client
	g.stream = nil
	g.client = nil
	g.mu.Unlock()

	if stream != nil {
		_ = stream.CloseSend()
	}
	if client != nil {
		return client.Close()
	}
	return nil
}
