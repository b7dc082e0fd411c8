// Package chatbot implements the guided lead-capture conversation behind the site's
// chat widget: a linear sequence of questions, validated answers and one relay
// submission at the end.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/optimumsoft/optimumsoft-web/internal/gateway"
	"github.com/optimumsoft/optimumsoft-web/pkg/logging"
)

var (
	// ErrInvalidAnswer is wrapped by every ValidationError.
	ErrInvalidAnswer = errors.New("chatbot: invalid answer")
	// ErrNotAccepting is returned when the current step takes no input.
	ErrNotAccepting = errors.New("chatbot: not accepting input")
	// ErrPromptPending is returned when the question for the current step is not shown yet.
	ErrPromptPending = errors.New("chatbot: prompt not shown yet")
	// ErrClosed is returned when the widget is not open.
	ErrClosed = errors.New("chatbot: conversation closed")
)

// ValidationError reports an answer rejected by the step's rule.
type ValidationError struct {
	Step Step
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("chatbot: invalid %s", e.Step)
}

// Unwrap lets callers match ErrInvalidAnswer.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidAnswer
}

// Speaker identifies who produced a transcript entry.
type Speaker string

const (
	SpeakerBot  Speaker = "bot"
	SpeakerUser Speaker = "user"
)

// Entry is one transcript line.
type Entry struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Lead is the contact record accumulated across steps.
type Lead struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Complete reports whether every field has been collected.
func (l Lead) Complete() bool {
	return l.Name != "" && l.Email != "" && l.Phone != "" && l.Message != ""
}

// State is a point-in-time copy of the conversation.
type State struct {
	Step         Step    `json:"step"`
	Lead         Lead    `json:"lead"`
	Transcript   []Entry `json:"transcript"`
	PendingInput string  `json:"pending_input,omitempty"`
	Open         bool    `json:"open"`
	Submitting   bool    `json:"submitting"`
	Typing       bool    `json:"typing"`
	PromptShown  bool    `json:"prompt_shown"`
}

// EventKind classifies engine notifications.
type EventKind string

const (
	EventMessage EventKind = "message"
	EventTyping  EventKind = "typing"
	EventStep    EventKind = "step"
	EventReset   EventKind = "reset"
)

// Event is pushed to the listener after every state change.
type Event struct {
	Kind   EventKind
	Entry  Entry
	Step   Step
	Typing bool
}

// Listener receives engine events in the order the state changes happened. It is never
// called with the engine lock held and never called concurrently.
type Listener func(Event)

// Submitter relays a finished lead.
type Submitter interface {
	Submit(ctx context.Context, sub gateway.Submission) error
}

// Observer records answer outcomes, typically as metrics.
type Observer interface {
	ObserveAnswer(step string, accepted bool)
}

// Pacing holds the delays that stagger bot messages. They have no correctness role.
type Pacing struct {
	Greeting      time.Duration
	FirstQuestion time.Duration
	Typing        time.Duration
	NextQuestion  time.Duration
	Submit        time.Duration
}

// DefaultPacing mirrors the widget's conversational rhythm.
func DefaultPacing() Pacing {
	return Pacing{
		Greeting:      500 * time.Millisecond,
		FirstQuestion: 1500 * time.Millisecond,
		Typing:        800 * time.Millisecond,
		NextQuestion:  1000 * time.Millisecond,
		Submit:        500 * time.Millisecond,
	}
}

// NoPacing delivers every message without delay.
func NoPacing() Pacing {
	return Pacing{}
}

// Scheduler runs fn after d. Implementations must not call fn synchronously.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// Option configures an Engine.
type Option func(*Engine)

// WithPacing overrides the message delays.
func WithPacing(p Pacing) Option {
	return func(e *Engine) { e.pacing = p }
}

// WithScheduler replaces the timer source.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) {
		if s != nil {
			e.sched = s
		}
	}
}

// WithListener registers the event sink.
func WithListener(l Listener) Option {
	return func(e *Engine) { e.listener = l }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver records answer outcomes.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithClock overrides the transcript timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithContext sets the base context for submissions the engine starts on its own.
func WithContext(ctx context.Context) Option {
	return func(e *Engine) {
		if ctx != nil {
			e.baseCtx = ctx
		}
	}
}

// WithSubmitTimeout bounds each relay attempt.
func WithSubmitTimeout(d time.Duration) Option {
	return func(e *Engine) { e.submitTimeout = d }
}

// WithOptimisticAck shows the "team will contact you" acknowledgement as soon as the
// submission starts instead of after the relay confirms it.
func WithOptimisticAck() Option {
	return func(e *Engine) { e.optimisticAck = true }
}

// Engine drives one widget's conversation. It is safe for concurrent use.
//
// Every deferred callback captures the generation it was scheduled in and does nothing
// once Reset has moved the engine to a newer generation.
type Engine struct {
	submitter     Submitter
	pacing        Pacing
	sched         Scheduler
	listener      Listener
	logger        *logging.Logger
	observer      Observer
	now           func() time.Time
	baseCtx       context.Context
	submitTimeout time.Duration
	optimisticAck bool

	mu          sync.Mutex
	gen         uint64
	open        bool
	started     bool
	step        Step
	lead        Lead
	transcript  []Entry
	pending     string
	promptShown bool
	submitting  bool
	typing      int
	timerSeq    uint64
	timers      map[uint64]func() bool
	outbox      []Event
	delivering  bool
}

// New creates an engine in the greeting step.
func New(submitter Submitter, opts ...Option) *Engine {
	e := &Engine{
		submitter:     submitter,
		pacing:        DefaultPacing(),
		sched:         timeScheduler{},
		logger:        logging.Default(),
		now:           time.Now,
		baseCtx:       context.Background(),
		submitTimeout: 30 * time.Second,
		step:          StepGreeting,
		timers:        make(map[uint64]func() bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open starts the conversation the first time the widget opens. Opening an already
// open engine does nothing.
func (e *Engine) Open() {
	e.mu.Lock()
	if e.open {
		e.mu.Unlock()
		return
	}
	e.open = true
	var events []Event
	if e.step == StepGreeting && !e.started {
		e.started = true
		events = append(events, e.sayLocked(e.pacing.Greeting, greetingText, nil)...)
		e.scheduleLocked(e.pacing.Greeting+e.pacing.FirstQuestion, func() []Event {
			return e.askLocked(StepName, 0)
		})
	}
	e.queueLocked(events)
	e.mu.Unlock()
	e.deliver()
}

// SetPending records the text the visitor is typing for the active step.
func (e *Engine) SetPending(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.step.AcceptsInput() {
		e.pending = text
	}
}

// Pending returns the unsubmitted text.
func (e *Engine) Pending() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// SubmitAnswer validates the trimmed answer for the current step. On success the value
// is stored, the step advances and the next question is scheduled; the message step
// instead moves to submitting and schedules the relay submission. A rejected answer
// leaves the lead and step untouched and schedules a retry prompt.
func (e *Engine) SubmitAnswer(raw string) (Step, error) {
	e.mu.Lock()
	step := e.step
	switch {
	case !e.open:
		e.mu.Unlock()
		return step, ErrClosed
	case !step.AcceptsInput():
		e.mu.Unlock()
		return step, ErrNotAccepting
	case !e.promptShown:
		e.mu.Unlock()
		return step, ErrPromptPending
	}

	value := strings.TrimSpace(raw)
	if !Validate(step, value) {
		e.pending = raw
		e.queueLocked(e.sayLocked(0, retryText, nil))
		e.mu.Unlock()
		e.observe(step, false)
		e.deliver()
		e.logger.Debug("chatbot: answer rejected", "step", step)
		return step, &ValidationError{Step: step}
	}

	switch step {
	case StepName:
		e.lead.Name = value
	case StepEmail:
		e.lead.Email = value
	case StepPhone:
		e.lead.Phone = value
	case StepMessage:
		e.lead.Message = value
	}
	e.pending = ""
	events := []Event{e.appendLocked(SpeakerUser, value)}

	nextStep, _ := step.Next()
	if nextStep == StepSubmitting {
		e.step = StepSubmitting
		e.promptShown = false
		events = append(events, Event{Kind: EventStep, Step: StepSubmitting})
		e.scheduleSubmitLocked(e.pacing.Submit)
	} else {
		e.step = nextStep
		e.promptShown = false
		events = append(events, Event{Kind: EventStep, Step: nextStep})
		events = append(events, e.askLocked(nextStep, e.pacing.NextQuestion)...)
	}
	e.queueLocked(events)
	e.mu.Unlock()

	e.observe(step, true)
	e.deliver()
	return nextStep, nil
}

// Submit relays the collected lead. It returns false without doing anything while an
// attempt is in flight, after completion, or while the lead is incomplete. It blocks
// until the relay answers.
func (e *Engine) Submit(ctx context.Context) (started bool) {
	return e.submit(ctx, false)
}

// submit runs one attempt. The paced submission scheduled by the message answer passes
// scheduled=true and only runs while the engine is still waiting in StepSubmitting, so
// it never retries an attempt that already settled.
func (e *Engine) submit(ctx context.Context, scheduled bool) (started bool) {
	e.mu.Lock()
	if !e.open || e.submitting || !e.lead.Complete() ||
		(e.step != StepMessage && e.step != StepSubmitting) ||
		(scheduled && e.step != StepSubmitting) {
		e.mu.Unlock()
		return false
	}
	e.submitting = true
	e.step = StepSubmitting
	e.promptShown = false
	gen := e.gen
	sub := e.lead.Submission()
	events := []Event{{Kind: EventStep, Step: StepSubmitting}}
	if e.optimisticAck {
		events = append(events, e.appendLocked(SpeakerBot, ackText))
	}
	e.queueLocked(events)
	e.mu.Unlock()
	e.deliver()

	if ctx == nil {
		ctx = e.baseCtx
	}
	if e.submitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.submitTimeout)
		defer cancel()
	}

	started = true
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: submitter panic: %v", gateway.ErrSubmissionFailed, r)
		}
		e.settle(gen, err)
	}()
	err = e.submitter.Submit(ctx, sub)
	return started
}

// settle clears the in-flight flag and applies the outcome of one attempt.
func (e *Engine) settle(gen uint64, err error) {
	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		e.logger.Debug("chatbot: submission settled after reset", "error", err)
		return
	}
	e.submitting = false
	var events []Event
	if err == nil {
		e.step = StepComplete
		events = append(events, Event{Kind: EventStep, Step: StepComplete})
		if !e.optimisticAck {
			events = append(events, e.appendLocked(SpeakerBot, ackText))
		}
	} else {
		e.step = StepMessage
		e.promptShown = true
		events = append(events, e.appendLocked(SpeakerBot, failureText))
		events = append(events, Event{Kind: EventStep, Step: StepMessage})
	}
	e.queueLocked(events)
	e.mu.Unlock()

	if err != nil {
		e.logger.Warn("chatbot: lead submission failed", "error", err)
	} else {
		e.logger.Info("chatbot: lead submitted")
	}
	e.deliver()
}

// Reset clears the conversation and closes the widget. Pending callbacks are stopped
// and any that already fired are ignored.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.gen++
	for id, stop := range e.timers {
		stop()
		delete(e.timers, id)
	}
	e.open = false
	e.started = false
	e.step = StepGreeting
	e.lead = Lead{}
	e.transcript = nil
	e.pending = ""
	e.promptShown = false
	e.submitting = false
	e.typing = 0
	e.queueLocked([]Event{{Kind: EventReset, Step: StepGreeting}})
	e.mu.Unlock()
	e.deliver()
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	transcript := make([]Entry, len(e.transcript))
	copy(transcript, e.transcript)
	return State{
		Step:         e.step,
		Lead:         e.lead,
		Transcript:   transcript,
		PendingInput: e.pending,
		Open:         e.open,
		Submitting:   e.submitting,
		Typing:       e.typing > 0,
		PromptShown:  e.promptShown,
	}
}

// Step returns the current step.
func (e *Engine) Step() Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step
}

// Lead returns the collected fields.
func (e *Engine) Lead() Lead {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lead
}

// Transcript returns a copy of the transcript.
func (e *Engine) Transcript() []Entry {
	return e.Snapshot().Transcript
}

// askLocked schedules the question for step after delay; the step's answers are
// accepted once the question has been appended.
func (e *Engine) askLocked(step Step, delay time.Duration) []Event {
	var events []Event
	if e.step != step {
		e.step = step
		e.promptShown = false
		events = append(events, Event{Kind: EventStep, Step: step})
	}
	return append(events, e.sayLocked(delay, Question(step), func() {
		if e.step == step {
			e.promptShown = true
		}
	})...)
}

// sayLocked shows the typing indicator and appends a bot message after delay plus the
// typing pause. shown runs under the lock once the message is in the transcript.
func (e *Engine) sayLocked(delay time.Duration, text string, shown func()) []Event {
	e.typing++
	e.scheduleLocked(delay+e.pacing.Typing, func() []Event {
		if e.typing > 0 {
			e.typing--
		}
		events := []Event{e.appendLocked(SpeakerBot, text)}
		if shown != nil {
			shown()
		}
		if e.typing == 0 {
			events = append(events, Event{Kind: EventTyping, Typing: false})
		}
		return events
	})
	return []Event{{Kind: EventTyping, Typing: true}}
}

func (e *Engine) appendLocked(speaker Speaker, text string) Event {
	entry := Entry{Speaker: speaker, Text: text, Timestamp: e.now()}
	e.transcript = append(e.transcript, entry)
	return Event{Kind: EventMessage, Entry: entry}
}

// scheduleLocked runs fn under the lock after d, unless the generation changed.
func (e *Engine) scheduleLocked(d time.Duration, fn func() []Event) {
	gen := e.gen
	id := e.timerSeq
	e.timerSeq++
	e.timers[id] = e.sched.AfterFunc(d, func() {
		e.mu.Lock()
		if e.gen != gen {
			e.mu.Unlock()
			return
		}
		delete(e.timers, id)
		e.queueLocked(fn())
		e.mu.Unlock()
		e.deliver()
	})
}

func (e *Engine) scheduleSubmitLocked(d time.Duration) {
	gen := e.gen
	id := e.timerSeq
	e.timerSeq++
	e.timers[id] = e.sched.AfterFunc(d, func() {
		e.mu.Lock()
		if e.gen != gen {
			e.mu.Unlock()
			return
		}
		delete(e.timers, id)
		e.mu.Unlock()
		e.submit(e.baseCtx, true)
	})
}

// queueLocked appends events to the outbox in state-change order.
func (e *Engine) queueLocked(events []Event) {
	if e.listener == nil || len(events) == 0 {
		return
	}
	e.outbox = append(e.outbox, events...)
}

// deliver drains the outbox unless another goroutine is already draining it, in which
// case that goroutine picks up the queued events.
func (e *Engine) deliver() {
	e.mu.Lock()
	if e.delivering {
		e.mu.Unlock()
		return
	}
	e.delivering = true
	for len(e.outbox) > 0 {
		batch := e.outbox
		e.outbox = nil
		e.mu.Unlock()
		for _, ev := range batch {
			e.listener(ev)
		}
		e.mu.Lock()
	}
	e.delivering = false
	e.mu.Unlock()
}

func (e *Engine) observe(step Step, accepted bool) {
	if e.observer != nil {
		e.observer.ObserveAnswer(string(step), accepted)
	}
}
