package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okorolev/tolmach/internal/audio"
	"github.com/okorolev/tolmach/internal/recognition"
	"github.com/okorolev/tolmach/internal/translation"
	"github.com/okorolev/tolmach/pkg/logger"
)

// State is the pipeline lifecycle state
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Config represents the pipeline configuration
type Config struct {
	SampleRate       int
	SegmentDuration  time.Duration
	SilenceThreshold float64
	QueueCapacity    int
	PopTimeout       time.Duration
	ShutdownTimeout  time.Duration
}

// Pipeline coordinates the capture producer, recognition worker and
// translation worker. It owns the two bounded queues between them and the
// stats collector. Stages run on their own goroutines and communicate only
// through the queues; cancellation is cooperative via a shared context that
// every worker observes at least once per pop timeout.
type Pipeline struct {
	cfg        Config
	source     audio.Source
	recognizer recognition.Engine
	translator translation.Engine
	stats      *Stats
	logger     *logger.Logger

	mu          sync.Mutex
	state       State
	startedAt   time.Time
	cancel      context.CancelFunc
	wg          *sync.WaitGroup
	audioQ      *Queue[AudioChunk]
	transcriptQ *Queue[recognition.TranscriptSegment]

	sinkMu sync.RWMutex
	sinks  []Sink
}

// New creates a pipeline wired to the given collaborators. The engines are
// constructed elsewhere and owned by the pipeline for its lifetime; no global
// engine state exists.
func New(cfg Config, source audio.Source, recognizer recognition.Engine, translator translation.Engine, log *logger.Logger) *Pipeline {
	if cfg.SegmentDuration <= 0 {
		cfg.SegmentDuration = 4 * time.Second
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 20
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	return &Pipeline{
		cfg:        cfg,
		source:     source,
		recognizer: recognizer,
		translator: translator,
		stats:      NewStats(),
		logger:     log.Named("pipeline"),
	}
}

// Subscribe registers a sink. Sinks receive every completed item on the
// translation worker's goroutine, in delivery order. Must be called before
// Start.
func (p *Pipeline) Subscribe(sink Sink) {
	p.sinkMu.Lock()
	p.sinks = append(p.sinks, sink)
	p.sinkMu.Unlock()
}

// State returns the current lifecycle state
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Uptime returns how long the pipeline has been running, 0 when stopped
func (p *Pipeline) Uptime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateRunning {
		return 0
	}
	return time.Since(p.startedAt)
}

// Stats returns a snapshot of the pipeline counters
func (p *Pipeline) Stats() Snapshot {
	return p.stats.Snapshot()
}

// Start warms up the translator, acquires the capture source and launches the
// three stage workers. A no-op when the pipeline is already running. Any
// failure here is fatal: the error is returned and the pipeline stays stopped.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateStopped {
		p.mu.Unlock()
		p.logger.Info("Start ignored, pipeline not stopped", logger.String("state", p.state.String()))
		return nil
	}
	p.state = StateStarting
	p.mu.Unlock()

	fail := func(err error) error {
		p.mu.Lock()
		p.state = StateStopped
		p.mu.Unlock()
		return err
	}

	// Throwaway request so the first real segment does not pay the model's
	// cold-start latency. An unreachable translation service is a startup
	// failure, not something to discover mid-session.
	if err := p.translator.WarmUp(ctx); err != nil {
		return fail(fmt.Errorf("translation warm-up failed: %w", err))
	}

	if err := p.source.Start(); err != nil {
		return fail(fmt.Errorf("failed to start capture source: %w", err))
	}

	runCtx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	p.cancel = cancel
	p.wg = &sync.WaitGroup{}
	p.audioQ = NewQueue[AudioChunk](p.cfg.QueueCapacity)
	p.transcriptQ = NewQueue[recognition.TranscriptSegment](p.cfg.QueueCapacity)
	p.startedAt = time.Now().UTC()
	p.state = StateRunning

	p.wg.Add(3)
	go p.producer(runCtx, p.wg, p.audioQ)
	go p.recognitionWorker(runCtx, p.wg, p.audioQ, p.transcriptQ)
	go p.translationWorker(runCtx, p.wg, p.transcriptQ)
	p.mu.Unlock()

	p.logger.Info("Pipeline running",
		logger.Duration("segment_duration", p.cfg.SegmentDuration),
		logger.Int("queue_capacity", p.cfg.QueueCapacity))

	return nil
}

// Stop cancels the workers, stops the capture source, drains both queues so
// no worker is left blocked, and waits for the workers within the shutdown
// bound. A no-op when the pipeline is already stopped. Shutdown is best
// effort: a worker missing the join bound is reported as a warning, never an
// error.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.state == StateStopped || p.state == StateStopping {
		p.mu.Unlock()
		return
	}
	p.state = StateStopping
	cancel := p.cancel
	wg := p.wg
	audioQ := p.audioQ
	transcriptQ := p.transcriptQ
	p.mu.Unlock()

	p.logger.Info("Stopping pipeline")

	if cancel != nil {
		cancel()
	}
	p.source.Stop()

	// Unblock any worker waiting past its pop timeout
	if audioQ != nil {
		audioQ.Drain()
	}
	if transcriptQ != nil {
		transcriptQ.Drain()
	}

	if wg != nil {
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(p.cfg.ShutdownTimeout):
			p.logger.Warn("Workers did not exit within shutdown bound",
				logger.Duration("timeout", p.cfg.ShutdownTimeout))
		}
	}

	p.logFinalStats()

	p.mu.Lock()
	p.state = StateStopped
	p.cancel = nil
	p.wg = nil
	p.mu.Unlock()
}

// producer snapshots the capture buffer on a fixed cadence, filters silence
// and feeds the audio queue. It never blocks on the downstream stages.
func (p *Pipeline) producer(ctx context.Context, wg *sync.WaitGroup, audioQ *Queue[AudioChunk]) {
	defer wg.Done()

	ticker := time.NewTicker(p.cfg.SegmentDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			samples := p.source.GetAndClearBuffer()
			if len(samples) == 0 {
				continue
			}

			// Silence never reaches recognition
			if audio.RMS(samples) < p.cfg.SilenceThreshold {
				continue
			}

			p.stats.IncCaptured()
			chunk := AudioChunk{Samples: samples, CapturedAt: time.Now().UTC()}
			if audioQ.Push(chunk) {
				p.stats.IncDropped()
				p.logger.Debug("Audio queue full, evicted oldest chunk")
			}
		}
	}
}

// recognitionWorker transcribes audio chunks into transcript segments. A
// failed chunk is skipped; the loop never terminates because of one bad
// chunk.
func (p *Pipeline) recognitionWorker(ctx context.Context, wg *sync.WaitGroup, audioQ *Queue[AudioChunk], transcriptQ *Queue[recognition.TranscriptSegment]) {
	defer wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		chunk, ok := audioQ.Pop(p.cfg.PopTimeout)
		if !ok {
			continue
		}

		segments, err := p.recognizer.Transcribe(ctx, chunk.Samples)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("Recognition failed, skipping chunk", logger.Error(err))
			continue
		}

		// The whole chunk's processing time is attributed to its first segment
		var elapsed time.Duration
		if len(segments) > 0 {
			elapsed = segments[0].ProcessingTime
		}
		p.stats.IncTranscribed(elapsed)

		for _, seg := range segments {
			if transcriptQ.Push(seg) {
				p.stats.IncDropped()
				p.logger.Debug("Transcript queue full, evicted oldest segment")
			}
		}
	}
}

// translationWorker translates transcript segments and delivers the completed
// items to the sinks. Translation failure never drops the transcript: the
// item goes out with the translation absent.
func (p *Pipeline) translationWorker(ctx context.Context, wg *sync.WaitGroup, transcriptQ *Queue[recognition.TranscriptSegment]) {
	defer wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		seg, ok := transcriptQ.Pop(p.cfg.PopTimeout)
		if !ok {
			continue
		}

		p.stats.IncTranslationAttempted()
		item := Item{Transcript: seg, CreatedAt: time.Now().UTC()}

		result, err := p.translator.Translate(ctx, seg.Text, seg.Language)
		switch {
		case err == nil:
			item.Translation = result
			p.stats.IncTranslated(result.ProcessingTime)
		case errors.Is(err, translation.ErrUnsupportedLanguage):
			p.logger.Debug("Unrecognized language tag, passing transcript through",
				logger.String("language", seg.Language))
		default:
			if ctx.Err() == nil {
				p.logger.Warn("Translation failed, delivering transcript only", logger.Error(err))
			}
		}

		p.deliver(item)
	}
}

// deliver hands an item to every registered sink, synchronously and in order
func (p *Pipeline) deliver(item Item) {
	p.sinkMu.RLock()
	sinks := p.sinks
	p.sinkMu.RUnlock()

	for _, sink := range sinks {
		sink.Deliver(item)
	}
}

// logFinalStats emits the closing statistics snapshot
func (p *Pipeline) logFinalStats() {
	snap := p.stats.Snapshot()
	p.logger.Info("Pipeline statistics",
		logger.Int64("chunks_captured", snap.ChunksCaptured),
		logger.Int64("chunks_transcribed", snap.ChunksTranscribed),
		logger.Int64("chunks_translated", snap.ChunksTranslated),
		logger.Int64("chunks_dropped", snap.ChunksDropped),
		logger.Duration("avg_recognition_time", snap.AvgRecognitionTime),
		logger.Duration("avg_translation_time", snap.AvgTranslationTime),
		logger.Float64("coverage", snap.Coverage))
}
