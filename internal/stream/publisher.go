// Package stream publishes a running simulation to a socket.io server so an
// external dashboard can follow it. Events:
//
//	run_started   {"scene", "contact_model", "dt", "t_end", "segments"}
//	sample        SamplePayload
//	run_finished  {"steps", "metrics"}
package stream

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sync"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
	"go.uber.org/zap"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/results"
)

const (
	EventRunStarted  = "run_started"
	EventSample      = "sample"
	EventRunFinished = "run_finished"

	connectTimeout = 10 * time.Second
)

// SamplePayload is the wire form of one sample. Positions are [x, y, z].
type SamplePayload struct {
	Time        float64      `json:"time"`
	Step        int          `json:"step"`
	GuideForce  float64      `json:"guide_force"`
	MaxTension  float64      `json:"max_tension"`
	MaxJointGap float64      `json:"max_joint_gap"`
	Tip         [3]float64   `json:"tip"`
	Segments    [][3]float64 `json:"segments"`
}

func payloadOf(s results.SimulationSample) SamplePayload {
	p := SamplePayload{
		Time:        s.Time,
		Step:        s.Step,
		GuideForce:  s.GuideForce,
		MaxTension:  s.MaxTension(),
		MaxJointGap: s.MaxJointGap,
		Tip:         triple(s.Tip),
		Segments:    make([][3]float64, len(s.Yarn.SegmentPositions)),
	}
	for i, v := range s.Yarn.SegmentPositions {
		p.Segments[i] = triple(v)
	}
	return p
}

func triple(v geom.Vec3) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// Publisher implements runner.Observer. Every sample the runner records is
// forwarded unless Every thins them out.
type Publisher struct {
	// Every forwards one sample in Every; values below 2 forward all.
	Every int

	emit   func(event string, payload any)
	close  func()
	logger *zap.Logger

	mu   sync.Mutex
	seen int
	sent int
}

func newPublisher(emit func(string, any), closeFn func(), logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if closeFn == nil {
		closeFn = func() {}
	}
	return &Publisher{emit: emit, close: closeFn, logger: logger}
}

// Dial connects to the socket.io server at rawURL (namespace taken from
// ns, "/" when empty) over websocket and waits for the handshake.
func Dial(ctx context.Context, rawURL, ns string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse publish url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("publish url %q needs a scheme and host", rawURL)
	}
	if ns == "" {
		ns = "/"
	}

	opts := socket.DefaultOptions()
	if u.Path != "" {
		opts.SetPath(u.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(fmt.Sprintf("%s://%s", u.Scheme, u.Host), opts)
	io := manager.Socket(ns, opts)

	connected := make(chan error, 1)
	report := func(err error) {
		select {
		case connected <- err:
		default:
		}
	}
	io.Once(types.EventName("connect"), func(...any) {
		report(nil)
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("socket.io connect failed")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = fmt.Errorf("socket.io connect failed: %w", e)
			}
		}
		report(err)
	})
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, err
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, ctx.Err()
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("socket.io connect to %s timed out after %s", rawURL, connectTimeout)
	}

	logger.Info("publishing samples", zap.String("url", rawURL), zap.String("namespace", ns))
	return newPublisher(
		func(event string, payload any) { io.Emit(event, payload) },
		func() { io.Disconnect() },
		logger,
	), nil
}

// Start announces a run.
func (p *Publisher) Start(sc *config.Scenario) {
	p.emit(EventRunStarted, map[string]any{
		"scene":         sc.Scene,
		"contact_model": string(sc.Simulation.ContactModel),
		"dt":            sc.Simulation.Dt,
		"t_end":         sc.Simulation.TEnd,
		"segments":      sc.Yarn.SegmentCount,
	})
}

func (p *Publisher) OnSample(s results.SimulationSample) {
	p.mu.Lock()
	n := p.seen
	p.seen++
	forward := p.Every < 2 || n%p.Every == 0
	if forward {
		p.sent++
	}
	p.mu.Unlock()

	if forward {
		p.emit(EventSample, payloadOf(s))
	}
}

// Finish reports the end of a run. Non-finite metrics are left out.
func (p *Publisher) Finish(res *results.SimulationResult) {
	metrics := make(map[string]float64, len(res.Metrics))
	for k, v := range res.Metrics {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			metrics[k] = v
		}
	}
	p.emit(EventRunFinished, map[string]any{"steps": res.StepsTaken, "metrics": metrics})
}

// Sent is the number of sample events emitted so far.
func (p *Publisher) Sent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}

func (p *Publisher) Close() {
	p.logger.Debug("closing sample stream", zap.Int("sent", p.Sent()))
	p.close()
}
