// SPDX-License-Identifier: MIT
package diag

import (
	"sync"
	"time"

	applog "visualizer/internal/log"
)

// averagesSource is satisfied by *beat.Detector.
type averagesSource interface {
	Averages() (short, medium, long float64)
}

// confidenceSource is satisfied by *tempo.Tracker.
type confidenceSource interface {
	Confidence() float64
	PhaseError() float64
}

// sender is satisfied by *udp.UDPSender; a plain []byte sink.
type sender interface {
	Send(data []byte) error
}

// broadcaster is satisfied by anything implementing internal/transport's
// Transport interface (e.g. *transport.WebSocketTransport); sends structured
// values rather than raw bytes.
type broadcaster interface {
	Send(data any) error
}

// Sources bundles the live analysis state a Publisher samples on each tick.
type Sources struct {
	Energy     func() float64 // current short-term bass energy, e.g. dsp.Chain.Energy.Last
	Averages   averagesSource
	Confidence confidenceSource
	IsBeat     func() bool // reports whether a beat was emitted on the most recent block
}

// Publisher periodically samples Sources, builds a Record, and fans it out
// to an optional UDP sender and/or an optional WebSocket broadcaster.
// Mirrors internal/transport/udp.UDPPublisher's ticker/goroutine/Stop shape.
type Publisher struct {
	sources  Sources
	udp      sender
	ws       broadcaster
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sequenceNum uint32
}

// NewPublisher creates a Publisher. Either udp or ws (or both) may be nil to
// disable that transport. If interval is <= 0, it defaults to ~30Hz.
func NewPublisher(sources Sources, interval time.Duration, udp sender, ws broadcaster) *Publisher {
	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("diag.Publisher: invalid interval, defaulting to %s", interval)
	}
	return &Publisher{sources: sources, interval: interval, udp: udp, ws: ws}
}

// Start begins the periodic publish loop. Safe to call more than once;
// later calls are no-ops while already running.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("diag.Publisher: Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.buildAndSend()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publish loop to terminate and waits for it to exit. Safe
// to call more than once.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// Close implements io.Closer.
func (p *Publisher) Close() error {
	return p.Stop()
}

func (p *Publisher) buildAndSend() {
	short, _, long := p.sources.Averages.Averages()

	rec := Record{
		Energy:        float32(p.sources.Energy()),
		ShortAvg:      float32(short),
		LongAvg:       float32(long),
		IsBeat:        boolToUint32(p.sources.IsBeat()),
		BPMConfidence: float32(p.sources.Confidence.Confidence()),
		PhaseError:    float32(p.sources.Confidence.PhaseError()),
	}

	p.sequenceNum++

	if p.udp != nil {
		packet, err := rec.Encode(p.sequenceNum, time.Now().UnixNano())
		if err != nil {
			applog.Errorf("diag.Publisher: encode error: %v", err)
		} else if err := p.udp.Send(packet); err != nil {
			applog.Debugf("diag.Publisher: udp send error: %v", err)
		}
	}

	if p.ws != nil {
		if err := p.ws.Send(rec); err != nil {
			applog.Debugf("diag.Publisher: websocket send error: %v", err)
		}
	}
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
