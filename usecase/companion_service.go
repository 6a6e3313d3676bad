// Package usecase composes the session pipeline with its adapters.
package usecase

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/leviathanch/Google-Companion/domain/entities"
	"github.com/leviathanch/Google-Companion/domain/repositories"
	"github.com/leviathanch/Google-Companion/internal/monitor"
	"github.com/leviathanch/Google-Companion/internal/session"
	"github.com/leviathanch/Google-Companion/internal/telemetry"
)

const levelInterval = 100 * time.Millisecond

// CompanionService is the application face of the voice session: the API
// layer calls it, the monitor hub observes it.
type CompanionService struct {
	controller *session.SessionController
	hub        *monitor.Hub
	ring       *telemetry.LogRing
	logger     *zap.Logger

	stopLevels context.CancelFunc
}

// Deps carries everything the service composes over.
type Deps struct {
	Clock          clock.Clock
	NewTransport   session.TransportFactory
	Source         repositories.AudioSource
	Sink           repositories.AudioSink
	Capabilities   repositories.Capabilities
	SideEffects    repositories.SideEffects
	TranscriptSink repositories.TranscriptSink
	Transcriber    repositories.Transcriber
	Setup          entities.SessionSetup
	Hub            *monitor.Hub
	Ring           *telemetry.LogRing
	Metrics        *telemetry.Metrics
	Logger         *zap.Logger
}

func NewCompanionService(deps Deps) *CompanionService {
	dispatcher := session.NewToolDispatcher(deps.Metrics, deps.Logger)

	controller := session.NewSessionController(
		deps.Clock,
		deps.NewTransport,
		deps.Source,
		deps.Sink,
		dispatcher,
		deps.TranscriptSink,
		deps.Setup,
		session.Options{
			Transcriber: deps.Transcriber,
			Grounding:   deps.Hub,
			Listener:    deps.Hub,
		},
		deps.Metrics,
		deps.Logger,
	)
	session.RegisterCapabilities(dispatcher, deps.Capabilities, deps.SideEffects)

	svc := &CompanionService{
		controller: controller,
		hub:        deps.Hub,
		ring:       deps.Ring,
		logger:     deps.Logger,
	}

	levelCtx, cancel := context.WithCancel(context.Background())
	svc.stopLevels = cancel
	go svc.publishLevels(levelCtx, deps.Clock)

	return svc
}

// Controller exposes the session controller for transport wiring that has
// to happen after construction.
func (s *CompanionService) Controller() *session.SessionController {
	return s.controller
}

// Connect starts a voice session.
func (s *CompanionService) Connect(ctx context.Context) error {
	return s.controller.Connect(ctx)
}

// Disconnect ends the current session, if any.
func (s *CompanionService) Disconnect() error {
	return s.controller.Disconnect()
}

// State reports the session lifecycle state.
func (s *CompanionService) State() entities.SessionState {
	return s.controller.State()
}

// SendText injects typed input into the live conversation.
func (s *CompanionService) SendText(text string) error {
	return s.controller.SendText(text)
}

// Logs returns the buffered recent log entries.
func (s *CompanionService) Logs() []entities.LogEntry {
	if s.ring == nil {
		return nil
	}
	return s.ring.Snapshot()
}

// Shutdown disconnects and stops the level publisher.
func (s *CompanionService) Shutdown() {
	s.stopLevels()
	if err := s.controller.Disconnect(); err != nil {
		s.logger.Warn("Disconnect during shutdown failed", zap.Error(err))
	}
}

// publishLevels streams the playback level to the monitor hub while audio
// is playing, so the UI can animate without polling.
func (s *CompanionService) publishLevels(ctx context.Context, clk clock.Clock) {
	ticker := clk.Ticker(levelInterval)
	defer ticker.Stop()

	wasSpeaking := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			speaking := s.controller.IsSpeaking()
			if !speaking && !wasSpeaking {
				continue
			}
			analyser := s.controller.Analyser()
			s.hub.BroadcastLevel(analyser.Volume(), analyser.Bands())
			wasSpeaking = speaking
		}
	}
}
