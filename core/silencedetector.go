package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/voxloop/vox-core/core/events"
)

const (
	defaultSilenceThreshold  = 0.05
	defaultSustainedDuration = 2 * time.Second
	defaultSampleInterval    = 100 * time.Millisecond
)

// SilenceWindowConfig parameterizes one silence detection run. It is
// immutable while the detector runs; reconfiguration requires a stopped
// detector.
type SilenceWindowConfig struct {
	// Threshold is the normalized level below which a sample counts as
	// quiet. Zero makes every sample loud, so the detector never fires.
	Threshold float64
	// SustainedDuration is how long the level must stay below Threshold
	// before the speech-ended edge fires. Zero fires on the transition
	// sample itself.
	SustainedDuration time.Duration
	// SampleInterval is the cadence at which the level source is read.
	SampleInterval time.Duration
}

func DefaultSilenceWindowConfig() SilenceWindowConfig {
	return SilenceWindowConfig{
		Threshold:         defaultSilenceThreshold,
		SustainedDuration: defaultSustainedDuration,
		SampleInterval:    defaultSampleInterval,
	}
}

func (c SilenceWindowConfig) withDefaults() SilenceWindowConfig {
	if c.SampleInterval <= 0 {
		c.SampleInterval = defaultSampleInterval
	}
	return c
}

type levelState int

const (
	levelQuiet levelState = iota
	levelLoud
)

// silenceDetector decides, from a periodic sequence of level samples, when
// the user has stopped talking. It emits at most one speech-ended edge per
// run and one speech-resumed edge per quiet-to-loud transition.
//
// The sustained-silence window is evaluated inside the sample handler, so a
// sample arriving on the same tick the window closes is always processed as
// the level transition first: sampling owns the authoritative tick.
type silenceDetector struct {
	source    LevelSource
	emitEvent eventEmitter

	mu      sync.Mutex
	config  SilenceWindowConfig
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// Sampling state, touched only from the sampling loop (or from tests
	// driving samples directly on a stopped detector).
	level      levelState
	armed      bool
	quietTicks int
	triggered  oneShotGate
}

func newSilenceDetector(source LevelSource, config SilenceWindowConfig, emitEvent eventEmitter) *silenceDetector {
	if emitEvent == nil {
		emitEvent = noopEventEmitter
	}

	return &silenceDetector{
		source:    source,
		config:    config.withDefaults(),
		emitEvent: emitEvent,
	}
}

// Start begins sampling. It is a no-op on a detector that is already
// running; otherwise it re-initializes the run state to quiet and
// untriggered.
func (d *silenceDetector) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}

	d.level = levelQuiet
	d.armed = false
	d.quietTicks = 0
	d.triggered.Reset()

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running = true
	interval := d.config.SampleInterval
	done := d.done
	d.mu.Unlock()

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.sample(d.source())
			}
		}
	}()
}

// Stop cancels the sampling loop but preserves the last-known level state
// until the next Start re-initializes it.
func (d *silenceDetector) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}

	d.running = false
	cancel := d.cancel
	done := d.done
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	<-done
}

func (d *silenceDetector) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Reconfigure replaces the window. Only legal while stopped.
func (d *silenceDetector) Reconfigure(config SilenceWindowConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("cannot reconfigure a running detector")
	}

	d.config = config.withDefaults()
	return nil
}

// sample processes one level reading.
func (d *silenceDetector) sample(level float64) {
	if level < d.config.Threshold {
		d.quietSample()
		return
	}
	d.loudSample()
}

func (d *silenceDetector) quietSample() {
	if d.level == levelLoud {
		d.level = levelQuiet
		d.armed = true
		d.quietTicks = 0
	}

	if !d.armed {
		// Quiet since the start of the run: nothing ever armed the
		// window, only the loud-to-quiet transition does.
		return
	}

	d.quietTicks++
	if time.Duration(d.quietTicks)*d.config.SampleInterval >= d.config.SustainedDuration {
		d.fireSpeechEnded()
	}
}

func (d *silenceDetector) loudSample() {
	if d.level == levelLoud {
		return
	}

	d.level = levelLoud
	d.armed = false
	d.quietTicks = 0
	d.emitEvent(events.NewSpeechResumed())
}

func (d *silenceDetector) fireSpeechEnded() {
	if !d.triggered.Fire() {
		return
	}

	d.emitEvent(events.NewSpeechEnded())
}
