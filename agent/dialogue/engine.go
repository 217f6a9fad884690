// Package dialogue implements the stateful orchestration layer: the workflow
// engine that classifies each user turn, dispatches it to the matching
// responder, and commits the outcome atomically into a value-threaded session
// State.
package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CURENT/pv-curve-llm/agent/config"
	"github.com/CURENT/pv-curve-llm/agent/curve"
	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
	"github.com/CURENT/pv-curve-llm/agent/history"
	"github.com/CURENT/pv-curve-llm/agent/params"
)

// phase names the engine's per-turn states; they drive tracing, not control
// flow, which is the explicit sequence in Process.
type phase string

const (
	phaseAwaiting    phase = "awaiting_turn"
	phaseClassifying phase = "classifying"
	phaseDispatching phase = "dispatching"
	phaseCommitting  phase = "committing"
)

// Options collects the engine's collaborators. Nil optional ports degrade to
// no-ops; Classifier and Responders are required.
type Options struct {
	Classifier ports.Classifier
	Responders map[ports.Label]Responder
	Store      ports.SessionStore // optional write-behind persistence
	Cache      ports.Cache        // optional classification memoization
	Tracer     ports.Tracer       // optional span/event sink
	Clock      func() time.Time   // injectable for deterministic tests
	NewID      func() string      // injectable for deterministic tests
}

// Engine is the workflow state machine. One Engine serves many independent
// sessions; per-session state lives entirely in the State values it returns.
type Engine struct {
	cfg        config.EngineConfig
	history    *history.Context
	classifier ports.Classifier
	responders map[ports.Label]Responder
	store      ports.SessionStore
	cache      ports.Cache
	tracer     ports.Tracer
	now        func() time.Time
	newID      func() string
	secret     string
}

// NewEngine assembles the engine. Missing optional collaborators are replaced
// with no-ops so call sites never nil-check.
func NewEngine(engineCfg config.EngineConfig, historyCfg config.HistoryConfig, opts Options) (*Engine, error) {
	if opts.Classifier == nil {
		return nil, fmt.Errorf("engine requires a classifier")
	}
	if len(opts.Responders) == 0 {
		return nil, fmt.Errorf("engine requires at least one responder")
	}
	if opts.Responders[ports.LabelQuestion] == nil {
		return nil, fmt.Errorf("engine requires a question responder, it is the fallback route")
	}
	e := &Engine{
		cfg:        engineCfg,
		history:    history.NewContext(historyCfg),
		classifier: opts.Classifier,
		responders: opts.Responders,
		store:      opts.Store,
		cache:      opts.Cache,
		tracer:     opts.Tracer,
		now:        opts.Clock,
		newID:      opts.NewID,
		secret:     uuid.NewString(),
	}
	if e.tracer == nil {
		e.tracer = noopTracer{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e, nil
}

// NewState returns a fresh initial session State: empty log, default
// parameter snapshot, no simulation result.
func (e *Engine) NewState() State {
	return e.signed(State{SessionID: e.newID(), Params: params.Default})
}

// ResumeState rebuilds a session State from the persisted log of a previous
// run. Parameters are replayed from the committed changes on each turn, the
// last simulation result is taken from the most recent turn carrying one, and
// the summary is derived fresh. Without a store this is equivalent to
// NewState with the given session ID.
func (e *Engine) ResumeState(ctx context.Context, sessionID string) (State, error) {
	state := State{SessionID: sessionID, Params: params.Default}
	if e.store == nil {
		return e.signed(state), nil
	}

	log, err := e.store.LoadRecent(ctx, sessionID, e.cfg.ResumeTurns)
	if err != nil {
		return State{}, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	current := params.Default
	for _, t := range log {
		if len(t.Changes) > 0 {
			deltas := make(map[string]any, len(t.Changes))
			for _, c := range t.Changes {
				deltas[c.Name] = c.New
			}
			// Replayed changes were validated when committed; a failure here
			// means the stored log predates the current parameter domains,
			// in which case the batch is skipped and defaults stand.
			if next, err := params.NewStoreWith(current).Apply(deltas); err == nil {
				current = next
			}
		}
		if t.Result != nil {
			state.LastResult = t.Result
		}
	}

	state.Params = current
	state.Log = log
	state.Summary = e.history.Summarize(
		e.history.ConversationWindow(log),
		e.history.SimulationWindow(log),
		e.history.ChangedRecently(log))
	return e.signed(state), nil
}

// Process runs one raw input through the full turn cycle and returns the new
// State plus the response text. Every failure from the error taxonomy is
// recovered into a logged turn; the only returned error is ErrForeignState
// for a prior State this engine did not produce.
func (e *Engine) Process(ctx context.Context, rawText string, prior State) (State, string, error) {
	if !e.verify(prior) {
		return prior, "", ErrForeignState
	}

	ctx, finish := e.tracer.StartSpan(ctx, "process_turn", map[string]any{
		"session_id": prior.SessionID,
		"turn_count": prior.TurnCount(),
		"phase":      string(phaseAwaiting),
	})
	defer finish(nil)

	steps, clsErr := e.classify(ctx, rawText, prior)
	if clsErr != nil {
		// Classifier breakage keeps the session alive: commit a synthetic
		// failed turn with no state mutation.
		next, text := e.commitClassifierFailure(ctx, rawText, prior, clsErr)
		return next, text, nil
	}

	next, text := e.dispatchChain(ctx, steps, prior)
	return next, text, nil
}

// classify resolves the raw input into one or more dispatch steps, applying
// the cache, the closed label set, and the low-confidence fallback.
func (e *Engine) classify(ctx context.Context, rawText string, prior State) ([]ports.PlannedStep, error) {
	e.tracer.Event(ctx, "phase", map[string]any{"phase": string(phaseClassifying)})

	recent := classificationContext(prior.Log, e.cfg.ClassifyContextTurns)

	cls, ok := e.cachedClassification(ctx, rawText, recent)
	if !ok {
		var err error
		cls, err = e.classifier.Classify(ctx, rawText, recent)
		if err != nil {
			return nil, &ClassificationFailure{Reason: "classifier call failed", Err: err}
		}
		e.storeClassification(ctx, rawText, recent, cls)
	}

	label := cls.Label
	if !label.Known() || cls.Confidence < e.cfg.MinConfidence {
		e.tracer.Event(ctx, "classification_fallback", map[string]any{
			"label":      string(label),
			"confidence": cls.Confidence,
		})
		return []ports.PlannedStep{{Label: ports.LabelQuestion, Text: rawText}}, nil
	}

	if len(cls.Steps) > 0 {
		steps := make([]ports.PlannedStep, 0, len(cls.Steps))
		for _, s := range cls.Steps {
			if !s.Label.Known() || strings.TrimSpace(s.Text) == "" {
				// A malformed plan is untrustworthy as a whole; route the
				// original text through the top-level label instead.
				return []ports.PlannedStep{{Label: label, Text: rawText}}, nil
			}
			steps = append(steps, s)
		}
		return steps, nil
	}
	return []ports.PlannedStep{{Label: label, Text: rawText}}, nil
}

// dispatchChain runs the planned steps plus any responder follow-ups, bounded
// by MaxChainedTurns, building the whole commit on scratch state. Nothing in
// prior is touched until the complete new State is assembled, so the commit
// is all-or-nothing.
func (e *Engine) dispatchChain(ctx context.Context, steps []ports.PlannedStep, prior State) (State, string) {
	e.tracer.Event(ctx, "phase", map[string]any{"phase": string(phaseDispatching)})

	log := append(make([]ports.Turn, 0, len(prior.Log)+2*len(steps)), prior.Log...)
	current := prior.Params
	lastResult := prior.LastResult

	queue := append([]ports.PlannedStep{}, steps...)
	var replies []string
	dispatched := 0

	for len(queue) > 0 {
		if dispatched >= e.cfg.MaxChainedTurns {
			// Recover the recursion guard into a visible failed turn.
			e.tracer.Event(ctx, "recursion_limit", map[string]any{"dispatched": dispatched})
			text := fmt.Sprintf("Stopped after %d chained steps (%v); remaining steps were dropped.",
				dispatched, ErrRecursionLimit)
			log = append(log, ports.Turn{
				ID: e.newID(), Role: ports.RoleAssistant, Text: text,
				Label: ports.LabelUnclassifiable, Failed: true, CreatedAt: e.now(),
			})
			replies = append(replies, text)
			break
		}
		step := queue[0]
		queue = queue[1:]
		dispatched++

		responder, ok := e.responders[step.Label]
		if !ok {
			responder = e.responders[ports.LabelQuestion]
		}

		// Views are derived fresh per step over the scratch log, so a chained
		// analysis sees the result its generation step just produced.
		view := e.history.Derive(log)
		out, err := responder.Respond(ctx, Request{Text: step.Text, Params: current, History: view})
		if err != nil {
			e.tracer.Event(ctx, "responder_error", map[string]any{"label": string(step.Label), "error": err.Error()})
			out = Outcome{
				Text:   fmt.Sprintf("That request could not be handled: %v. The session state is unchanged.", err),
				Failed: true,
			}
		}

		var changes []ports.ParamChange
		if len(out.Deltas) > 0 {
			applied, applyErr := e.applyDeltas(current, out.Deltas)
			if applyErr != nil {
				// Rejected batch: the turn is still logged, as a failed
				// mutation with the reason surfaced.
				out.Failed = true
				out.Result = nil
				out.FollowUp = nil
				out.Text = fmt.Sprintf("Parameter update rejected: %v. Nothing was changed.", applyErr)
			} else {
				changes = diffParams(current, applied, out.Deltas)
				current = applied
			}
		}
		if out.Result != nil {
			lastResult = out.Result
		}

		at := e.now()
		log = append(log,
			ports.Turn{
				ID: e.newID(), Role: ports.RoleUser, Text: step.Text,
				Label: step.Label, Failed: out.Failed, CreatedAt: at,
			},
			ports.Turn{
				ID: e.newID(), Role: ports.RoleAssistant, Text: out.Text,
				Label: step.Label, Failed: out.Failed,
				Changes: changes, Result: out.Result, CreatedAt: at,
			},
		)
		replies = append(replies, out.Text)

		if out.FollowUp != nil {
			queue = append(queue, *out.FollowUp)
		}
	}

	return e.commit(ctx, prior, log, current, lastResult), strings.Join(replies, "\n\n")
}

// commit assembles and seals the new State and persists the appended turns
// write-behind. Store failures are traced, never surfaced.
func (e *Engine) commit(ctx context.Context, prior State, log []ports.Turn, current params.Set, lastResult *curve.Result) State {
	e.tracer.Event(ctx, "phase", map[string]any{"phase": string(phaseCommitting)})

	next := State{
		SessionID:  prior.SessionID,
		Params:     current,
		Log:        log,
		LastResult: lastResult,
		Summary: e.history.Summarize(
			e.history.ConversationWindow(log),
			e.history.SimulationWindow(log),
			e.history.ChangedRecently(log)),
	}

	if e.store != nil {
		for _, t := range log[len(prior.Log):] {
			if err := e.store.SaveTurn(ctx, next.SessionID, t); err != nil {
				e.tracer.Event(ctx, "store_error", map[string]any{"turn_id": t.ID, "error": err.Error()})
			}
		}
	}

	return e.signed(next)
}

// commitClassifierFailure logs the unclassifiable input with an explanation
// and no state mutation.
func (e *Engine) commitClassifierFailure(ctx context.Context, rawText string, prior State, clsErr error) (State, string) {
	e.tracer.Event(ctx, "classification_error", map[string]any{"error": clsErr.Error()})
	text := fmt.Sprintf("I couldn't interpret that request (%v). Parameters and results are unchanged; please rephrase.", clsErr)

	at := e.now()
	log := append(append(make([]ports.Turn, 0, len(prior.Log)+2), prior.Log...),
		ports.Turn{
			ID: e.newID(), Role: ports.RoleUser, Text: rawText,
			Label: ports.LabelUnclassifiable, Failed: true, CreatedAt: at,
		},
		ports.Turn{
			ID: e.newID(), Role: ports.RoleAssistant, Text: text,
			Label: ports.LabelUnclassifiable, Failed: true, CreatedAt: at,
		},
	)
	return e.commit(ctx, prior, log, prior.Params, prior.LastResult), text
}

// applyDeltas validates and applies a batch against a scratch store seeded
// from the current snapshot; atomicity comes from the store's all-or-nothing
// Apply.
func (e *Engine) applyDeltas(current params.Set, deltas map[string]any) (params.Set, error) {
	store := params.NewStoreWith(current)
	return store.Apply(deltas)
}

// diffParams records old/new pairs for every delta that changed the set.
func diffParams(before, after params.Set, deltas map[string]any) []ports.ParamChange {
	var changes []ports.ParamChange
	for _, name := range params.Names() {
		if _, requested := deltas[name]; !requested {
			continue
		}
		oldV, err := before.Value(name)
		if err != nil {
			continue
		}
		newV, _ := after.Value(name)
		changes = append(changes, ports.ParamChange{Name: name, Old: oldV, New: newV})
	}
	return changes
}

// classificationContext returns only the last n user/assistant exchanges,
// never the full history.
func classificationContext(log []ports.Turn, n int) []ports.Turn {
	want := 2 * n
	if want >= len(log) {
		return append([]ports.Turn{}, log...)
	}
	return append([]ports.Turn{}, log[len(log)-want:]...)
}

// cachedClassification and storeClassification memoize classifier verdicts on
// a digest of the text plus its bounded context.
func (e *Engine) cachedClassification(ctx context.Context, text string, recent []ports.Turn) (ports.Classification, bool) {
	if e.cache == nil || !e.cfg.CacheEnabled {
		return ports.Classification{}, false
	}
	raw, ok := e.cache.Get(ctx, classificationKey(text, recent))
	if !ok {
		return ports.Classification{}, false
	}
	var cls ports.Classification
	if err := json.Unmarshal(raw, &cls); err != nil {
		return ports.Classification{}, false
	}
	e.tracer.Event(ctx, "classification_cache_hit", nil)
	return cls, true
}

func (e *Engine) storeClassification(ctx context.Context, text string, recent []ports.Turn, cls ports.Classification) {
	if e.cache == nil || !e.cfg.CacheEnabled {
		return
	}
	raw, err := json.Marshal(cls)
	if err != nil {
		return
	}
	_ = e.cache.Set(ctx, classificationKey(text, recent), raw, e.cfg.CacheTTLSeconds)
}

// classificationKey is a short deterministic digest (djb2) of the input and
// its context window.
func classificationKey(text string, recent []ports.Turn) string {
	hash := uint32(5381)
	mix := func(s string) {
		for _, r := range s {
			hash = ((hash << 5) + hash) + uint32(r)
		}
	}
	mix(text)
	for _, t := range recent {
		mix("|" + string(t.Role) + ":" + t.Text)
	}
	return fmt.Sprintf("cls:%x", hash)
}

// noopTracer keeps tracing optional without nil checks at call sites.
type noopTracer struct{}

func (noopTracer) StartSpan(ctx context.Context, _ string, _ map[string]any) (context.Context, func(error)) {
	return ctx, func(error) {}
}
func (noopTracer) Event(context.Context, string, map[string]any) {}

var _ ports.Tracer = noopTracer{}
