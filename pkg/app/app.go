// Package app wires the full pipeline together: video and sensor
// ingest, classification, cooldown, aggregation, announcement,
// persistence and the dashboard API.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/visionaid/go-visionaid/internal/config"
	"github.com/visionaid/go-visionaid/internal/log"
	"github.com/visionaid/go-visionaid/pkg/alert"
	"github.com/visionaid/go-visionaid/pkg/announcer"
	"github.com/visionaid/go-visionaid/pkg/api"
	"github.com/visionaid/go-visionaid/pkg/audio"
	"github.com/visionaid/go-visionaid/pkg/detection"
	"github.com/visionaid/go-visionaid/pkg/hub"
	"github.com/visionaid/go-visionaid/pkg/proximity"
	"github.com/visionaid/go-visionaid/pkg/safety"
	"github.com/visionaid/go-visionaid/pkg/sensors"
	"github.com/visionaid/go-visionaid/pkg/store"
	"github.com/visionaid/go-visionaid/pkg/tts"
	"github.com/visionaid/go-visionaid/pkg/video"
	"github.com/visionaid/go-visionaid/pkg/voicecmd"
)

// sceneSummaryEvery is how many inference cycles pass between
// persisted scene summaries.
const sceneSummaryEvery = 6

// FrameSource supplies the latest camera frame.
type FrameSource interface {
	CaptureJPEG() ([]byte, error)
}

// App owns every component and their lifecycle.
type App struct {
	cfg *config.Config

	store    *store.Store
	classes  *detection.ClassFilter
	detector detection.Detector

	frames      FrameSource
	videoClient *video.Client

	cooldown *proximity.Cooldown
	agg      *alert.Aggregator

	safetySet    *safety.Set
	safetyPoller *safety.Poller
	piClient     *sensors.Client
	sensorSource sensors.Source
	piHealth     *sensors.Health
	envCache     *sensors.EnvCache

	provider  tts.Provider
	sink      audio.Sink
	announcer *announcer.Announcer

	recognizer voicecmd.Recognizer
	voiceTask  *voicecmd.Task

	alertHub  *hub.Hub
	statusHub *hub.Hub
	server    *api.Server

	persistCh chan persistItem

	sceneMu sync.Mutex
	scene   []proximity.Event
	cycles  int
}

// Option overrides a component, mainly for tests.
type Option func(*App)

// WithDetector substitutes the object detector.
func WithDetector(d detection.Detector) Option {
	return func(a *App) { a.detector = d }
}

// WithFrameSource substitutes the camera frame source.
func WithFrameSource(fs FrameSource) Option {
	return func(a *App) { a.frames = fs }
}

// WithSensorSource substitutes the Pi sensor source.
func WithSensorSource(src sensors.Source) Option {
	return func(a *App) { a.sensorSource = src }
}

// WithVoiceProvider substitutes the speech synthesis provider.
func WithVoiceProvider(p tts.Provider) Option {
	return func(a *App) { a.provider = p }
}

// WithAudioSink substitutes the audio output.
func WithAudioSink(s audio.Sink) Option {
	return func(a *App) { a.sink = s }
}

// WithRecognizer substitutes the speech recognizer.
func WithRecognizer(r voicecmd.Recognizer) Option {
	return func(a *App) { a.recognizer = r }
}

// New builds the application from config. The class list must load;
// the pipeline cannot classify without it.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		piHealth:  &sensors.Health{},
		persistCh: make(chan persistItem, 256),
	}
	for _, opt := range opts {
		opt(a)
	}

	classes, err := detection.LoadClasses(cfg.ClassesPath)
	if err != nil {
		return nil, err
	}
	a.classes = classes

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a.store = st

	if a.detector == nil {
		yoloCfg := detection.DefaultYOLOConfig()
		yoloCfg.ModelPath = cfg.ModelPath
		yoloCfg.ConfidenceThresh = float32(cfg.ConfidenceThresh)
		det, err := detection.NewYOLO(yoloCfg)
		if err != nil {
			st.Close()
			return nil, err
		}
		a.detector = det
	}

	if a.frames == nil {
		a.videoClient = video.NewClient(cfg.StreamURL)
		a.frames = a.videoClient
	}

	a.piClient = sensors.NewClient(cfg.PiBaseURL)
	if a.sensorSource == nil {
		a.sensorSource = a.piClient
	}
	a.envCache = sensors.NewEnvCache(3 * cfg.EnvPollEvery)

	if a.provider == nil {
		if cfg.TTSAPIKey == "" {
			st.Close()
			return nil, fmt.Errorf("app: %w", tts.ErrNoAPIKey)
		}
		provider, err := tts.NewElevenLabs(
			tts.WithAPIKey(cfg.TTSAPIKey),
			tts.WithVoice(cfg.TTSVoice),
		)
		if err != nil {
			st.Close()
			return nil, err
		}
		a.provider = provider
	}
	if a.sink == nil {
		a.sink = audio.NewALSAPlayer()
	}

	cooldownOpts := []proximity.CooldownOption{proximity.WithWindow(cfg.CooldownWindow)}
	if cfg.EscalationBypass {
		cooldownOpts = append(cooldownOpts, proximity.WithEscalationBypass())
	}
	a.cooldown = proximity.NewCooldown(cooldownOpts...)

	a.agg = alert.NewAggregator()
	a.agg.Tap = func(al alert.Alert) {
		a.persist(persistItem{kind: itemAlert, al: al})
	}

	a.safetySet = safety.NewSet(func(tr safety.Transition) {
		a.agg.Publish(alert.NewSafety(tr.Message(), tr.At))
		if a.statusHub != nil {
			a.statusHub.Publish("safety", a.safetySet.ByKind(tr.Kind).Status())
		}
	})
	a.safetyPoller = safety.NewPoller(a.sensorSource, a.safetySet, a.piHealth, cfg.SafetyPollEvery)

	a.alertHub = hub.New("alerts")
	a.statusHub = hub.New("status")

	a.announcer = announcer.New(a.agg, a.provider, a.sink)
	a.announcer.OnAnnounced = func(al alert.Alert) {
		a.alertHub.Publish("alert", map[string]interface{}{
			"id":        al.ID,
			"category":  string(al.Category),
			"severity":  al.Severity.String(),
			"message":   al.Message,
			"object":    al.Object,
			"direction": al.Direction,
			"timestamp": al.Timestamp,
		})
	}

	if a.recognizer == nil && cfg.STTBaseURL != "" {
		a.recognizer = voicecmd.NewWSRecognizer(cfg.STTBaseURL, cfg.STTAPIKey)
	}
	if a.recognizer != nil {
		handler := &voicecmd.Handler{
			DescribeScene: a.DescribeScene,
			SystemStatus:  a.systemStatus,
		}
		a.voiceTask = voicecmd.NewTask(a.recognizer, handler, a.announcer, a.store)
	}

	a.server = api.NewServer(api.Deps{
		Store:     a.store,
		Safety:    a.safetySet,
		Pi:        a.piClient,
		PiHealth:  a.piHealth,
		EnvCache:  a.envCache,
		AlertHub:  a.alertHub,
		StatusHub: a.statusHub,
	})

	return a, nil
}

// Run starts every component and blocks until the context is
// cancelled or the API server fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sessionID, err := a.store.StartSession(ctx)
	if err != nil {
		return err
	}
	log.Info("session started", "session_id", sessionID)

	var wg sync.WaitGroup
	start := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}

	start(a.alertHub.Run)
	start(a.statusHub.Run)
	if a.videoClient != nil {
		start(a.videoClient.Run)
	}
	start(a.safetyPoller.Run)
	start(a.runEnvPoller)
	start(a.announcer.Run)
	if a.voiceTask != nil {
		start(a.voiceTask.Run)
	}
	start(a.runInference)
	start(a.runPersist)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.server.Listen(a.cfg.APIPort)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		runErr = err
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		log.Warn("api shutdown failed", "error", err)
	}
	wg.Wait()
	return runErr
}

// Close releases every component and ends the open session.
func (a *App) Close() error {
	if a.recognizer != nil {
		a.recognizer.Close()
	}
	if a.provider != nil {
		a.provider.Close()
	}
	if a.sink != nil {
		a.sink.Close()
	}
	if a.detector != nil {
		a.detector.Close()
	}
	return a.store.Close()
}

// runInference captures, detects, classifies and publishes on a
// fixed cadence.
func (a *App) runInference(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.InferenceEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runCycle()
		}
	}
}

// runCycle processes one frame. Every classified detection is
// persisted; Far-zone events stop there, the rest pass through the
// cooldown before publication.
func (a *App) runCycle() {
	frame, err := a.frames.CaptureJPEG()
	if err != nil {
		log.Debug("no frame for inference cycle", "error", err)
		return
	}

	dets, err := a.detector.Detect(frame)
	if err != nil {
		log.Warn("detection failed", "error", err)
		return
	}
	dets = a.classes.Filter(dets)

	events := make([]proximity.Event, 0, len(dets))
	for _, d := range dets {
		ev := proximity.Classify(d)
		events = append(events, ev)
		a.persist(persistItem{kind: itemDetection, det: d, ev: ev})

		if ev.Zone == proximity.ZoneFar {
			continue
		}
		if a.cooldown.Admit(ev) {
			a.agg.Publish(alert.FromProximity(ev))
		}
	}

	a.setScene(events)

	a.cycles++
	if a.cycles%sceneSummaryEvery == 0 {
		summary := a.DescribeScene()
		a.persist(persistItem{kind: itemScene, summary: summary, objects: len(events)})
		a.statusHub.Publish("scene", map[string]interface{}{
			"summary": summary,
			"objects": len(events),
		})
	}
}

// runEnvPoller refreshes the environmental cache.
func (a *App) runEnvPoller(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.EnvPollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pollCtx, cancel := context.WithTimeout(ctx, a.cfg.PollTimeout)
			reading, err := a.sensorSource.Environment(pollCtx)
			cancel()
			if err != nil {
				log.Debug("environmental poll failed", "error", err)
				continue
			}
			a.envCache.Set(reading)
			a.statusHub.Publish("environmental", reading)
		}
	}
}

func (a *App) systemStatus() string {
	if a.piHealth.Degraded() {
		return "monitoring active, but the sensor unit is unreachable"
	}
	return "all systems running"
}
