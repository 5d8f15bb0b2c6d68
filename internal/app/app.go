// Package app wires all hearth subsystems into a running assistant.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems from the config and the provider set, Run executes the main
// listening loop, and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithDeviceStore,
// WithToolSession, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hearthd/hearth/internal/capture"
	"github.com/hearthd/hearth/internal/config"
	"github.com/hearthd/hearth/internal/dialogue"
	"github.com/hearthd/hearth/internal/executor"
	"github.com/hearthd/hearth/internal/homegraph"
	"github.com/hearthd/hearth/internal/intent"
	"github.com/hearthd/hearth/internal/observe"
	"github.com/hearthd/hearth/internal/router"
	"github.com/hearthd/hearth/internal/sched"
	"github.com/hearthd/hearth/internal/wake"
	"github.com/hearthd/hearth/pkg/audio"
	"github.com/hearthd/hearth/pkg/provider/llm"
	"github.com/hearthd/hearth/pkg/provider/stt"
	"github.com/hearthd/hearth/pkg/provider/tts"
	"github.com/hearthd/hearth/pkg/provider/vad"
	"github.com/hearthd/hearth/pkg/provider/wakeword"
)

// defaultFrameMillis is assumed when the config does not specify a frame
// duration. Used only to convert the pre-roll window into a frame count.
const defaultFrameMillis = 30

// defaultHandoffDelay is the pause between releasing the audio device after
// playback and re-arming capture.
const defaultHandoffDelay = 150 * time.Millisecond

// Spoken fallbacks for collaborator failures. Every turn ends in speech.
const (
	deviceFailureSpeech  = "Sorry, something went wrong with the microphone."
	transcribeFailSpeech = "Sorry, I didn't catch that. Could you try again?"
)

// Providers holds one interface value per pipeline collaborator. All fields
// are required; main.go populates them from the config.
type Providers struct {
	Input  audio.InputDevice
	Output audio.OutputDevice
	Wake   wakeword.Scorer
	VAD    vad.Classifier
	STT    stt.Transcriber
	TTS    tts.Synthesizer
	LLM    llm.Provider
}

// validate reports the first missing provider slot.
func (p *Providers) validate() error {
	switch {
	case p == nil:
		return errors.New("providers are required")
	case p.Input == nil:
		return errors.New("input device is required")
	case p.Output == nil:
		return errors.New("output device is required")
	case p.Wake == nil:
		return errors.New("wake scorer is required")
	case p.VAD == nil:
		return errors.New("vad classifier is required")
	case p.STT == nil:
		return errors.New("stt transcriber is required")
	case p.TTS == nil:
		return errors.New("tts synthesizer is required")
	case p.LLM == nil:
		return errors.New("llm provider is required")
	}
	return nil
}

// App owns all subsystem lifetimes and runs the hearth voice loop.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Injectable collaborators — nil means New builds one from the config.
	store     homegraph.Store
	schedules executor.ScheduleStore
	session   executor.ToolSession
	metrics   *observe.Metrics
	logger    *slog.Logger

	// Subsystems — initialised in New.
	gate      *wake.Gate
	recorder  *capture.Recorder
	scheduler *sched.Scheduler
	registry  *executor.Registry
	dlg       *dialogue.Manager
	router    *router.Router
	guard     *audio.Guard

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithDeviceStore injects a device registry store instead of loading one from
// the configured YAML file.
func WithDeviceStore(s homegraph.Store) Option {
	return func(a *App) { a.store = s }
}

// WithScheduleStore injects a street-sweeping schedule store instead of
// building one from the inline config rules.
func WithScheduleStore(s executor.ScheduleStore) Option {
	return func(a *App) { a.schedules = s }
}

// WithToolSession injects the home-control MCP session. Without one, device
// commands are refused as unsupported.
func WithToolSession(s executor.ToolSession) Option {
	return func(a *App) { a.session = s }
}

// WithMetrics injects a metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go. Use Option functions to inject doubles for any
// subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if err := providers.validate(); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init device registry: %w", err)
	}

	a.scheduler = sched.New(sched.WithLogger(a.logger))

	if err := a.initExecutors(); err != nil {
		return nil, fmt.Errorf("app: init executors: %w", err)
	}

	a.initDialogue()
	a.initCapture()
	a.guard = audio.NewGuard(defaultHandoffDelay)

	return a, nil
}

// initStore loads the device registry from the configured YAML file unless a
// store was injected.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	store := homegraph.NewMemStore()
	a.store = store

	if a.cfg.Registry.Path == "" {
		a.logger.Warn("no device registry configured; entity resolution will find nothing")
		return nil
	}

	reg, err := homegraph.LoadRegistryFile(a.cfg.Registry.Path)
	if err != nil {
		return err
	}
	n, err := homegraph.ImportRegistry(ctx, store, reg)
	if err != nil {
		return err
	}
	a.logger.Info("imported device registry", "path", a.cfg.Registry.Path, "devices", n)
	return nil
}

// initExecutors builds the action registry: home control (when an MCP session
// is available), the parking schedule, and background timers.
func (a *App) initExecutors() error {
	a.registry = executor.NewRegistry()

	if a.session != nil {
		var hcOpts []executor.HomeControlOption
		if a.cfg.MCP.Tool != "" {
			hcOpts = append(hcOpts, executor.WithToolName(a.cfg.MCP.Tool))
		}
		hcOpts = append(hcOpts, executor.WithHomeControlLogger(a.logger))
		hc := executor.NewHomeControl(a.session, a.store, hcOpts...)
		a.registry.Register(hc,
			intent.ActionTurnOn,
			intent.ActionTurnOff,
			intent.ActionActivateScene,
			intent.ActionDeviceQuery,
		)
	} else {
		a.logger.Warn("no home-control session; device commands will be refused")
	}

	if a.schedules == nil {
		rules, err := sweepRules(a.cfg.Parking.Rules)
		if err != nil {
			return err
		}
		a.schedules = executor.NewMemScheduleStore(rules)
	}
	parking := executor.NewParking(a.schedules, executor.WithParkingLogger(a.logger))
	a.registry.Register(parking, intent.ActionParkingCheck)

	timer := executor.NewTimer(a.scheduler, executor.WithTimerLogger(a.logger))
	a.registry.Register(timer, intent.ActionSetTimer)

	return nil
}

// initDialogue builds the intent resolver, the dialogue manager, and the
// three-tier router.
func (a *App) initDialogue() {
	index := intent.NewEntityIndex(a.store)

	var resolverOpts []intent.ResolverOption
	var dlgOpts []dialogue.Option
	if t := a.cfg.Dialogue.AcceptThreshold; t > 0 {
		resolverOpts = append(resolverOpts, intent.WithAcceptThreshold(t))
		dlgOpts = append(dlgOpts, dialogue.WithAcceptThreshold(t))
	}
	if n := a.cfg.Dialogue.MaxFollowups; n > 0 {
		dlgOpts = append(dlgOpts, dialogue.WithMaxFollowups(n))
	}
	dlgOpts = append(dlgOpts, dialogue.WithLogger(a.logger))

	resolver := intent.NewResolver(index, resolverOpts...)
	a.dlg = dialogue.NewManager(a.registry, index, dlgOpts...)
	a.router = router.New(router.NewPatternMatcher(), resolver, a.dlg, a.providers.LLM,
		router.WithLogger(a.logger),
		router.WithMetrics(a.metrics),
	)
}

// initCapture builds the wake gate and the utterance recorder from the config.
func (a *App) initCapture() {
	var gateOpts []wake.Option
	if t := a.cfg.Wake.Threshold; t > 0 {
		gateOpts = append(gateOpts, wake.WithThreshold(t))
	}
	if n := a.cfg.Wake.CooldownFrames; n > 0 {
		gateOpts = append(gateOpts, wake.WithCooldownFrames(n))
	}
	gateOpts = append(gateOpts, wake.WithLogger(a.logger))
	a.gate = wake.NewGate(a.providers.Wake, gateOpts...)

	frameMillis := a.cfg.Audio.FrameMillis
	if frameMillis <= 0 {
		frameMillis = defaultFrameMillis
	}

	var recOpts []capture.RecorderOption
	if ms := a.cfg.Capture.PreRollMillis; ms > 0 {
		recOpts = append(recOpts, capture.WithPreRollFrames((ms+frameMillis-1)/frameMillis))
	}
	if n := a.cfg.Capture.StartFrames; n > 0 {
		recOpts = append(recOpts, capture.WithStartFrames(n))
	}
	if n := a.cfg.Capture.StopFrames; n > 0 {
		recOpts = append(recOpts, capture.WithStopFrames(n))
	}
	if ms := a.cfg.Capture.MaxDurationMillis; ms > 0 {
		recOpts = append(recOpts, capture.WithMaxDuration(time.Duration(ms)*time.Millisecond))
	}
	if ms := a.cfg.Capture.NoSpeechTimeoutMillis; ms > 0 {
		recOpts = append(recOpts, capture.WithNoSpeechTimeout(time.Duration(ms)*time.Millisecond))
	} else if ms < 0 {
		recOpts = append(recOpts, capture.WithNoSpeechTimeout(0))
	}
	recOpts = append(recOpts, capture.WithRecorderLogger(a.logger))
	a.recorder = capture.NewRecorder(a.providers.VAD, recOpts...)
}

// Dialogue exposes the dialogue manager, mainly for health and admin
// introspection.
func (a *App) Dialogue() *dialogue.Manager { return a.dlg }

// Run executes the main listening loop and blocks until ctx is cancelled.
//
// The loop is single-threaded by design: one frame at a time flows through
// the wake gate, and a triggered turn runs capture → transcription → routing
// → speech to completion before listening resumes. Timer events are announced
// between frames.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("assistant listening")
	events := a.scheduler.Events()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			a.announce(ctx, ev)
			continue
		default:
		}

		frame, err := a.providers.Input.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warn("frame read failed while idle", "error", err)
			continue
		}
		a.recorder.Observe(frame)

		// A pending follow-up keeps the microphone hot: the wake gate is
		// bypassed and the user's answer is captured directly.
		if a.dlg.WakeBypass() {
			a.turn(ctx, true)
			continue
		}

		if ev, ok := a.gate.Feed(frame); ok {
			a.logger.Info("wake phrase detected", "confidence", ev.Confidence)
			a.metrics.WakeEvents.Add(ctx, 1)
			a.turn(ctx, false)
		}
	}
}

// turn runs one full exchange: capture the utterance, transcribe it, route it
// through the response tiers, and speak the reply.
func (a *App) turn(ctx context.Context, followup bool) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "hearth.turn")
	defer span.End()

	release, err := a.guard.Acquire(ctx, followup)
	if err != nil {
		return
	}
	defer release()
	defer a.gate.Reset()

	utterance, err := a.recorder.Capture(ctx, a.providers.Input)
	switch {
	case errors.Is(err, capture.ErrNoSpeech):
		if followup {
			if resp := a.dlg.Expire(); resp.Speech != "" {
				a.metrics.ActiveFollowups.Add(ctx, -1)
				a.speak(ctx, resp.Speech)
			}
		}
		return
	case errors.Is(err, capture.ErrDeviceFailure):
		a.metrics.RecordProviderError(ctx, "device")
		a.logger.Error("capture device failed", "error", err)
		a.speak(ctx, deviceFailureSpeech)
		return
	case err != nil:
		// Context cancellation; the loop exits on the next iteration.
		return
	}
	a.metrics.CaptureDuration.Record(ctx, utterance.Duration().Seconds())

	sttStart := time.Now()
	transcript, err := a.providers.STT.Transcribe(ctx, utterance)
	a.metrics.STTDuration.Record(ctx, time.Since(sttStart).Seconds())
	if err != nil {
		a.metrics.RecordProviderError(ctx, "stt")
		a.logger.Error("transcription failed", "error", err)
		a.speak(ctx, transcribeFailSpeech)
		return
	}
	a.logger.Info("utterance transcribed",
		"text", transcript.Text, "audio_duration", utterance.Duration())

	modeBefore := a.dlg.Mode()
	timersBefore := a.scheduler.Active()

	resp := a.router.Route(ctx, transcript.Text)

	a.recordTurnMetrics(ctx, resp, modeBefore, timersBefore)
	a.speak(ctx, resp.Speech)
	a.metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
}

// recordTurnMetrics derives follow-up and timer gauge movements from the
// state transitions the routed turn caused.
func (a *App) recordTurnMetrics(ctx context.Context, resp dialogue.Response, modeBefore dialogue.Mode, timersBefore int) {
	if resp.Asked {
		a.metrics.RecordFollowupQuestion(ctx, a.dlg.PendingSlot())
	}
	modeAfter := a.dlg.Mode()
	if modeBefore != modeAfter {
		if modeAfter == dialogue.ModeAwaitingFollowup {
			a.metrics.ActiveFollowups.Add(ctx, 1)
		} else {
			a.metrics.ActiveFollowups.Add(ctx, -1)
		}
	}
	if delta := a.scheduler.Active() - timersBefore; delta != 0 {
		a.metrics.ActiveTimers.Add(ctx, int64(delta))
	}
}

// speak synthesises text and plays it on the output device. Failures are
// logged, never propagated — there is no one to propagate them to.
func (a *App) speak(ctx context.Context, text string) {
	if text == "" {
		return
	}
	start := time.Now()
	pcm, rate, err := a.providers.TTS.Synthesize(ctx, text)
	a.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		a.metrics.RecordProviderError(ctx, "tts")
		a.logger.Error("speech synthesis failed", "error", err, "text", text)
		return
	}
	if err := a.providers.Output.Play(ctx, pcm, rate); err != nil {
		a.logger.Warn("playback failed", "error", err)
	}
}

// announce speaks a fired timer.
func (a *App) announce(ctx context.Context, ev sched.Event) {
	a.logger.Info("timer fired", "id", ev.ID, "label", ev.Label)
	a.metrics.ActiveTimers.Add(ctx, -1)

	release, err := a.guard.Acquire(ctx, false)
	if err != nil {
		return
	}
	defer release()

	text := "Your timer is done."
	if ev.Label != "" {
		text = fmt.Sprintf("Your timer for %s is done.", ev.Label)
	}
	a.speak(ctx, text)
}

// Shutdown stops the scheduler and waits for in-flight timer bookkeeping. It
// respects the context deadline.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		a.logger.Info("shutting down")
		err = a.scheduler.Shutdown(ctx)
	})
	return err
}

// sweepRules converts inline config rules to the executor's schedule type.
func sweepRules(rules []config.SweepRuleConfig) ([]executor.SweepRule, error) {
	out := make([]executor.SweepRule, 0, len(rules))
	for _, r := range rules {
		wd, err := config.ParseWeekday(r.Weekday)
		if err != nil {
			return nil, err
		}
		out = append(out, executor.SweepRule{
			Location: r.Location,
			Side:     r.Side,
			Weekday:  wd,
			Hour:     r.Hour,
		})
	}
	return out, nil
}
