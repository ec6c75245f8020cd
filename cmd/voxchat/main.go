// Command voxchat is a terminal voice chat client. It drives a full session
// through the microphone and speakers, with typed input as a fallback.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	session "github.com/voxloop/vox-core/core"
	"github.com/voxloop/vox-core/core/audio/miniaudio"
	"github.com/voxloop/vox-core/core/backend"
	backenddeepgram "github.com/voxloop/vox-core/core/backend/deepgram"
	"github.com/voxloop/vox-core/core/backend/httpapi"
	speechdeepgram "github.com/voxloop/vox-core/core/speech/deepgram"
)

func main() {
	_ = godotenv.Load()

	apiURL := flag.String("api-url", "https://api.voxloop.ai", "conversational backend base URL")
	voice := flag.String("voice", "", "voice to request from the backend")
	deepgramSTT := flag.Bool("deepgram-stt", false, "transcribe through Deepgram instead of the backend")
	flag.Parse()

	if err := run(*apiURL, *voice, *deepgramSTT); err != nil {
		fmt.Fprintln(os.Stderr, "voxchat:", err)
		os.Exit(1)
	}
}

func run(apiURL, voice string, deepgramSTT bool) error {
	audioClient, err := miniaudio.NewClient()
	if err != nil {
		return fmt.Errorf("failed to set up audio: %w", err)
	}

	api := httpapi.NewClient(apiURL)

	orchestratorOpts := []session.OrchestratorOption{
		session.WithCaptureDevice(audioClient),
		session.WithAudioOutput(audioClient),
		session.WithTranscriber(api),
		session.WithResponder(api),
	}
	if deepgramSTT {
		orchestratorOpts = append(orchestratorOpts,
			session.WithTranscriber(backenddeepgram.NewTranscriptionClient()),
		)
	}
	if voice != "" {
		orchestratorOpts = append(orchestratorOpts,
			session.WithRespondOptions(backend.WithVoice(voice)),
		)
	}

	// Deepgram synthesis covers replies that come back without audio.
	if _, ok := os.LookupEnv("DEEPGRAM_API_KEY"); ok {
		synthesizer, err := speechdeepgram.NewClient(speechdeepgram.VoiceAsteria)
		if err != nil {
			return fmt.Errorf("failed to set up speech synthesis: %w", err)
		}
		orchestratorOpts = append(orchestratorOpts, session.WithSynthesizer(synthesizer))
	}

	orchestrator := session.NewOrchestrator(orchestratorOpts...)
	defer orchestrator.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	program := tea.NewProgram(newModel(orchestrator), tea.WithAltScreen())

	orchestrator.Orchestrate(ctx,
		session.WithStateChangedCallback(func(state session.State) {
			program.Send(stateMsg(state))
		}),
		session.WithConversationUpdatedCallback(func(entries []session.ConversationEntry) {
			program.Send(conversationMsg(entries))
		}),
		session.WithErrorCallback(func(message string) {
			program.Send(errorMsg(message))
		}),
	)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal client failed: %w", err)
	}
	return nil
}
