package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// ErrNoBuffer is returned when Play is called without audio.
var ErrNoBuffer = errors.New("no audio buffer to play")

const endPollInterval = 10 * time.Millisecond

// Handle identifies one graph instance. The zero Handle is never issued.
type Handle uint64

// Stats counts graph lifecycles. Created-Destroyed is always 0 or 1.
type Stats struct {
	Created   int
	Destroyed int
}

// Live returns the number of graphs currently alive.
func (s Stats) Live() int {
	return s.Created - s.Destroyed
}

type graph struct {
	id        Handle
	mu        sync.Mutex
	buffer    *Buffer
	rate      *beep.Resampler
	baseRatio float64
	gain      *effects.Volume
	player    Player
	onEnded   func()
	stopped   bool
}

func (g *graph) halted() bool {
	return g.stopped
}

func (g *graph) isStopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}

func (g *graph) setVolume(v float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gain.Volume = volumeToPower(v)
	g.gain.Silent = v <= 0.01
}

func (g *graph) setSpeed(s float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rate.SetRatio(g.baseRatio * s)
}

// Controller owns the single active graph and the current volume and
// speed settings.
type Controller struct {
	out    Output
	logger *log.Logger

	mu     sync.Mutex
	active *graph
	nextID Handle
	volume float64
	speed  float64
	stats  Stats
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l *log.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// NewController creates a controller that plays through out.
func NewController(out Output, opts ...ControllerOption) *Controller {
	c := &Controller{
		out:    out,
		logger: log.Default(),
		volume: DefaultVolume,
		speed:  DefaultSpeed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Play builds a graph for buf with the current settings and starts it,
// releasing any previous graph first. onEnded runs once, on its own
// goroutine, when the audio finishes on its own. It never runs after Stop.
func (c *Controller) Play(buf *Buffer, onEnded func()) (Handle, error) {
	if buf == nil || buf.Len() == 0 {
		return 0, ErrNoBuffer
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		c.releaseLocked(c.active)
	}

	c.nextID++
	g := &graph{
		id:      c.nextID,
		buffer:  buf,
		onEnded: onEnded,
	}
	g.baseRatio = float64(buf.Format().SampleRate) / float64(c.out.SampleRate())
	g.rate = beep.ResampleRatio(resampleQuality, g.baseRatio*c.speed, buf.streamer())
	g.gain = &effects.Volume{
		Streamer: g.rate,
		Base:     2,
		Volume:   volumeToPower(c.volume),
		Silent:   c.volume <= 0.01,
	}

	reader := &pcmReader{
		mu:       &g.mu,
		streamer: g.gain,
		halted:   g.halted,
		onDrained: func() {
			go c.awaitEnd(g)
		},
	}
	player, err := c.out.NewPlayer(reader)
	if err != nil {
		return 0, fmt.Errorf("open audio player: %w", err)
	}
	g.player = player
	c.active = g
	c.stats.Created++

	c.logger.Debug("Audio: graph started",
		"handle", g.id,
		"duration", buf.Duration().Round(time.Millisecond),
		"decoded", humanize.Bytes(uint64(buf.Size())),
		"volume", c.volume,
		"speed", c.speed)

	player.Play()
	return g.id, nil
}

// Stop releases the graph identified by h. Stopping a graph that already
// ended, was replaced, or never existed does nothing.
func (c *Controller) Stop(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil || c.active.id != h {
		return
	}
	c.releaseLocked(c.active)
}

// StopActive releases whatever graph is active.
func (c *Controller) StopActive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.releaseLocked(c.active)
	}
}

func (c *Controller) releaseLocked(g *graph) {
	g.mu.Lock()
	g.stopped = true
	g.mu.Unlock()

	if err := g.player.Close(); err != nil {
		c.logger.Warn("Audio: closing player failed", "handle", g.id, "error", err)
	}
	g.buffer = nil
	c.active = nil
	c.stats.Destroyed++
	c.logger.Debug("Audio: graph released", "handle", g.id)
}

// awaitEnd waits for the output to play out what it buffered and then
// reports natural completion, unless the graph was stopped meanwhile.
func (c *Controller) awaitEnd(g *graph) {
	ticker := time.NewTicker(endPollInterval)
	defer ticker.Stop()
	for g.player.IsPlaying() {
		if g.isStopped() {
			return
		}
		<-ticker.C
	}

	c.mu.Lock()
	if c.active != g || g.isStopped() {
		c.mu.Unlock()
		return
	}
	c.releaseLocked(g)
	c.mu.Unlock()

	c.logger.Debug("Audio: graph ended", "handle", g.id)
	if g.onEnded != nil {
		g.onEnded()
	}
}

// SetVolume stores volume as the current setting and applies it to the
// active graph, if any.
func (c *Controller) SetVolume(volume float64) {
	volume = ClampVolume(volume)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = volume
	if c.active != nil {
		c.active.setVolume(volume)
	}
}

// SetSpeed stores speed as the current setting and applies it to the
// active graph, if any.
func (c *Controller) SetSpeed(speed float64) {
	speed = ClampSpeed(speed)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = speed
	if c.active != nil {
		c.active.setSpeed(speed)
	}
}

// Volume returns the current volume setting.
func (c *Controller) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Speed returns the current speed setting.
func (c *Controller) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Active returns the handle of the live graph.
func (c *Controller) Active() (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return 0, false
	}
	return c.active.id, true
}

// Stats returns graph lifecycle counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// volumeToPower maps a linear 0..1 volume onto the base-2 exponent used
// by effects.Volume.
func volumeToPower(v float64) float64 {
	if v <= 0.01 {
		return -10
	}
	return math.Log2(v)
}
