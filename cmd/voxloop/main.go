package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	pipeline "github.com/voxloop/voxloop-core/core"
	"github.com/voxloop/voxloop-core/core/audio/portaudio"
	"github.com/voxloop/voxloop-core/core/llms/openai"
	deepgramstt "github.com/voxloop/voxloop-core/core/speechtotext/deepgram"
	deepgramtts "github.com/voxloop/voxloop-core/core/texttospeech/deepgram"
	"github.com/voxloop/voxloop-core/internal/config"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	captureClient, err := portaudio.NewCaptureClient(cfg.Audio.CaptureBufferSize)
	if err != nil {
		log.Fatalf("Failed to initialize audio capture: %v", err)
	}
	defer captureClient.Close()

	playbackClient, err := portaudio.NewPlaybackClient(cfg.Audio.PlaybackBufferSize)
	if err != nil {
		log.Fatalf("Failed to initialize audio playback: %v", err)
	}
	defer portaudio.Terminate()

	textToSpeechClient, err := deepgramtts.NewTextToSpeechClient(ctx, deepgramtts.VoiceAsteriaEN)
	if err != nil {
		log.Fatalf("Failed to initialize text-to-speech: %v", err)
	}

	orchestrator := pipeline.NewOrchestrator(
		pipeline.WithAudioInput(captureClient),
		pipeline.WithAudioOutput(playbackClient),
		pipeline.WithSpeechToText(deepgramstt.NewTranscriptionClient()),
		pipeline.WithTextToSpeech(textToSpeechClient),
		pipeline.WithStreamingLLM(openai.NewClient(cfg.OpenAI.APIKey, openai.WithModel(cfg.OpenAI.Model))),
		pipeline.WithSystemPrompt(cfg.Agent.SystemPrompt),
		pipeline.WithMaxTurns(cfg.Agent.MaxTurns),
	)

	log.Println("Listening. Press Ctrl+C to exit.")
	if err := orchestrator.Run(ctx,
		pipeline.WithTranscriptionCallback(func(transcript string) {
			if transcript != "" {
				log.Printf("You: %s", transcript)
			}
		}),
		pipeline.WithTurnRetiredCallback(func(turn pipeline.Turn) {
			if turn.Response != "" {
				log.Printf("Agent: %s", turn.Response)
			}
		}),
	); err != nil {
		log.Fatalf("Pipeline stopped: %v", err)
	}
}
