package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ayusman/airbot/internal/gesture"
)

// Result describes what Dispatch did with a gesture.
type Result struct {
	Gesture  gesture.Gesture `json:"gesture"`
	Action   Action          `json:"action,omitempty"`
	Decision Decision        `json:"decision"`
	At       time.Time       `json:"at"`

	// Err is the emitter's failure, if any. The dispatch still counts for
	// debouncing.
	Err error `json:"-"`
}

// Dispatched reports whether an action was emitted.
func (r Result) Dispatched() bool {
	return r.Decision.Accepted
}

// Dispatcher owns the debounce state for one control session and emits
// actions for accepted gestures. It is safe for concurrent use: the
// cooldown check and state update happen under one lock.
type Dispatcher struct {
	config  Config
	emitter Emitter
	log     *ActionLog

	mu    sync.Mutex
	state State

	obsMu     sync.RWMutex
	observers []func(Result)
}

// NewDispatcher creates a Dispatcher. A nil emitter drops actions silently.
func NewDispatcher(config Config, emitter Emitter) *Dispatcher {
	if config.Policy == "" {
		config.Policy = PolicyCooldownOnly
	}
	if emitter == nil {
		emitter = EmitterFunc(func(context.Context, Action) error { return nil })
	}
	return &Dispatcher{
		config:  config,
		emitter: emitter,
		log:     NewActionLog(LogCapacity),
	}
}

// Config returns the debounce configuration.
func (d *Dispatcher) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config
}

// Reconfigure replaces the debounce configuration. The App only calls it
// between sessions, so one session always sees a single configuration.
func (d *Dispatcher) Reconfigure(config Config) {
	if config.Policy == "" {
		config.Policy = PolicyCooldownOnly
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config = config
}

// Log returns the bounded action log.
func (d *Dispatcher) Log() *ActionLog {
	return d.log
}

// OnDispatch registers fn to be called after every accepted dispatch.
func (d *Dispatcher) OnDispatch(fn func(Result)) {
	if fn == nil {
		return
	}
	d.obsMu.Lock()
	defer d.obsMu.Unlock()
	d.observers = append(d.observers, fn)
}

// Snapshot returns the current debounce state.
func (d *Dispatcher) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Reset returns the dispatcher to its initial state.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = State{}
}

// Dispatch debounces g at time now and, if accepted, emits its action once.
// Emitter failures are reported in Result.Err and never roll back the state.
func (d *Dispatcher) Dispatch(ctx context.Context, g gesture.Gesture, now time.Time) Result {
	d.mu.Lock()
	next, decision := Decide(g, now, d.state, d.config)
	d.state = next
	d.mu.Unlock()

	res := Result{Gesture: g, Decision: decision, At: now}
	if !decision.Accepted {
		return res
	}

	res.Action = ActionFor(g)
	if err := d.emitter.Emit(ctx, res.Action); err != nil {
		res.Err = err
		log.Printf("Error performing action %s for %s: %v", res.Action, g, err)
	} else {
		log.Printf("Dispatched %s (%s)", g, res.Action)
	}

	entry := LogEntry{Time: now, Gesture: g, Action: res.Action}
	if res.Err != nil {
		entry.Err = res.Err.Error()
	}
	d.log.Append(entry)

	d.obsMu.RLock()
	observers := d.observers
	d.obsMu.RUnlock()
	for _, fn := range observers {
		fn(res)
	}

	return res
}
