package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"casewise/internal/audit"
	"casewise/internal/bias"
	"casewise/internal/casefile"
	"casewise/internal/events"
	"casewise/internal/expectations"
	"casewise/internal/fieldcheck"
	"casewise/internal/gaps"
	"casewise/internal/history"
	"casewise/internal/narrative"
	"casewise/internal/payload"
	"casewise/internal/rules"
	"casewise/internal/scoring"
	"casewise/internal/signals"
	"casewise/internal/trace"
)

// Options tune the engine's lifecycle behavior.
type Options struct {
	// DebounceWindow is how long automatic triggers wait so that a burst
	// of artifact changes produces one recompute.
	DebounceWindow time.Duration
	// StaleAfter is how old a snapshot may get before reads mark it stale.
	StaleAfter time.Duration
}

// Engine runs the intelligence pipeline and owns its lifecycle.
type Engine struct {
	cases    *casefile.Store
	signals  *signals.Store
	intel    *Store
	history  *history.Store
	auditLog *audit.Store
	spans    *trace.Store
	hub      *events.Hub

	registry *expectations.Registry
	packs    *rules.Packs
	opts     Options

	mu        sync.Mutex
	pending   map[string]*pendingRun
	completed map[string]time.Time
}

type pendingRun struct {
	timer     *time.Timer
	trigger   string
	actorRole string
	coalesced int
}

// New assembles an engine. hub may be nil when no watchers are served.
func New(cases *casefile.Store, sigStore *signals.Store, intel *Store, hist *history.Store, auditLog *audit.Store, spans *trace.Store, hub *events.Hub, opts Options) *Engine {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = 2 * time.Second
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 60 * time.Minute
	}
	return &Engine{
		cases:     cases,
		signals:   sigStore,
		intel:     intel,
		history:   hist,
		auditLog:  auditLog,
		spans:     spans,
		hub:       hub,
		registry:  expectations.MustLoad(),
		packs:     rules.MustLoad(),
		opts:      opts,
		pending:   map[string]*pendingRun{},
		completed: map[string]time.Time{},
	}
}

// Recompute runs or schedules the pipeline for a case. Manual triggers
// and force bypass the debounce window and run synchronously; automatic
// triggers coalesce into a pending run, and are skipped outright when a
// recompute for the case already completed inside the window.
func (e *Engine) Recompute(ctx context.Context, caseID, trigger, actorRole string, force bool) (*Outcome, error) {
	if force || trigger == "manual" {
		e.cancelPending(caseID)
		return e.runNow(ctx, caseID, trigger, actorRole)
	}

	e.mu.Lock()
	if run, ok := e.pending[caseID]; ok {
		run.coalesced++
		run.trigger = trigger
		e.mu.Unlock()
		e.logAudit(ctx, audit.Entry{
			ActorType: audit.ActorSystem,
			ActorRole: actorRole,
			Action:    audit.ActionRecomputeCoalesced,
			CaseID:    caseID,
			Trigger:   trigger,
			Summary:   "trigger merged into pending recompute",
		})
		return &Outcome{Status: StatusCoalesced}, nil
	}
	if last, ok := e.completed[caseID]; ok && time.Since(last) < e.opts.DebounceWindow {
		e.mu.Unlock()
		e.logAudit(ctx, audit.Entry{
			ActorType: audit.ActorSystem,
			ActorRole: actorRole,
			Action:    audit.ActionRecomputeCoalesced,
			CaseID:    caseID,
			Trigger:   trigger,
			Summary:   "trigger within the debounce window of a completed recompute",
		})
		return &Outcome{Status: StatusCoalesced}, nil
	}

	run := &pendingRun{trigger: trigger, actorRole: actorRole}
	run.timer = time.AfterFunc(e.opts.DebounceWindow, func() {
		e.mu.Lock()
		delete(e.pending, caseID)
		e.mu.Unlock()

		// Detached context: the originating request is long gone.
		if _, err := e.runNow(context.Background(), caseID, run.trigger, run.actorRole); err != nil {
			log.Printf("engine: debounced recompute for %s: %v", caseID, err)
		}
	})
	e.pending[caseID] = run
	e.mu.Unlock()

	return &Outcome{Status: StatusScheduled}, nil
}

// Trigger adapts Recompute to the casefile route callback.
func (e *Engine) Trigger(ctx context.Context, caseID, decisionType, trigger, actorRole string) {
	if _, err := e.Recompute(ctx, caseID, trigger, actorRole, false); err != nil {
		log.Printf("engine: trigger %s for %s: %v", trigger, caseID, err)
	}
}

func (e *Engine) cancelPending(caseID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if run, ok := e.pending[caseID]; ok {
		run.timer.Stop()
		delete(e.pending, caseID)
	}
}

// runNow executes the pipeline. A failure after a prior snapshot exists
// is reported as recovered: the prior snapshot stands and the failure is
// audited.
func (e *Engine) runNow(ctx context.Context, caseID, trigger, actorRole string) (*Outcome, error) {
	ctx, span := e.spans.Start(ctx, "recompute", caseID)
	intel, err := e.compute(ctx, caseID, trigger, actorRole)
	span.End(ctx, err)

	if err != nil {
		e.logAudit(ctx, audit.Entry{
			ActorType: audit.ActorSystem,
			ActorRole: actorRole,
			Action:    audit.ActionRecomputeFailed,
			CaseID:    caseID,
			Trigger:   trigger,
			Summary:   "recompute failed",
			Detail:    err.Error(),
		})

		prior, getErr := e.intel.Get(ctx, caseID)
		if getErr == nil && prior != nil {
			return &Outcome{Status: StatusRecovered, Intelligence: prior}, nil
		}
		return nil, err
	}

	e.mu.Lock()
	e.completed[caseID] = time.Now()
	e.mu.Unlock()

	return &Outcome{Status: StatusComputed, Intelligence: intel}, nil
}

func (e *Engine) compute(ctx context.Context, caseID, trigger, actorRole string) (*Intelligence, error) {
	c, err := e.cases.GetCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("loading case: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("case %s not found", caseID)
	}

	// Read every artifact once; the rest of the pipeline works off this
	// consistent view.
	sub, err := e.cases.GetSubmission(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("loading submission: %w", err)
	}
	atts, err := e.cases.ListAttachments(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("loading attachments: %w", err)
	}
	caseEvents, err := e.cases.ListEvents(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}

	now := time.Now().UTC()
	set := signals.Generate(*c, sub, atts, caseEvents)
	if err := e.signals.ReplaceForCase(ctx, caseID, set); err != nil {
		return nil, fmt.Errorf("persisting signals: %w", err)
	}

	fields := payload.Null()
	if sub != nil {
		fields = sub.Fields
	}
	issues := fieldcheck.Validate(c.DecisionType, fields)

	expected := e.registry.For(c.DecisionType)
	gapSet := gaps.Detect(now, expected, set)
	flags := bias.Detect(now, set)

	ruleResults := e.packs.Evaluate(c.DecisionType, buildRuleDoc(sub, atts, caseEvents))
	rulesConf := rules.Score(ruleResults, sub != nil)
	rulesPassed := 0
	for _, r := range ruleResults {
		if r.Passed {
			rulesPassed++
		}
	}

	score := scoring.Score(set, gapSet, flags, issues)
	story := narrative.Build(c.DecisionType, score, set, gapSet, flags)

	intel := &Intelligence{
		CaseID:             caseID,
		DecisionType:       c.DecisionType,
		ComputedAt:         now,
		CompletenessScore:  completenessScore(set),
		ConfidenceScore:    score.Score,
		ConfidenceBand:     score.Band,
		RulesConfidence:    rulesConf.Score,
		RulesBand:          rulesConf.Band,
		RulesPassed:        rulesPassed,
		RulesTotal:         len(ruleResults),
		Diagnosis:          diagnose(set, score.Score, rulesConf.Score),
		Signals:            set,
		Gaps:               gapSet,
		BiasFlags:          flags,
		FieldIssues:        issues,
		RuleResults:        ruleResults,
		ExplanationFactors: score.Factors,
		Narrative:          story,
		ExecutiveSummary:   story.Headline,
	}

	if err := e.intel.Upsert(ctx, intel); err != nil {
		return nil, err
	}

	snapshot := history.BuildSnapshot(c, sub, atts, caseEvents)
	intelValue, err := intelPayload(intel)
	if err != nil {
		return nil, err
	}
	_, err = e.history.Append(ctx, history.Record{
		CaseID:              caseID,
		ComputedAt:          now,
		ConfidenceScore:     intel.ConfidenceScore,
		ConfidenceBand:      string(intel.ConfidenceBand),
		RulesPassed:         rulesPassed,
		RulesTotal:          len(ruleResults),
		GapCount:            len(gapSet),
		BiasCount:           len(flags),
		Trigger:             trigger,
		ActorRole:           actorRole,
		EvidenceSnapshot:    snapshot.Value(),
		EvidenceHash:        snapshot.Hash(),
		IntelligencePayload: intelValue,
		TraceID:             trace.TraceID(ctx),
		SpanID:              trace.SpanID(ctx),
	})
	if err != nil {
		return nil, err
	}

	e.logAudit(ctx, audit.Entry{
		ActorType: actorType(trigger),
		ActorRole: actorRole,
		Action:    audit.ActionRecomputeCompleted,
		CaseID:    caseID,
		Trigger:   trigger,
		Summary:   fmt.Sprintf("recompute completed: score %.1f (%s)", intel.ConfidenceScore, intel.ConfidenceBand),
	})

	if e.hub != nil {
		e.hub.Publish(events.IntelligenceEvent{
			Type:            "intelligence_updated",
			CaseID:          caseID,
			DecisionType:    c.DecisionType,
			ConfidenceScore: intel.ConfidenceScore,
			ConfidenceBand:  string(intel.ConfidenceBand),
			Trigger:         trigger,
			ComputedAt:      now,
		})
	}

	return intel, nil
}

// GetIntelligence returns the current snapshot with staleness derived
// from its age. Returns nil when the case has never been computed.
func (e *Engine) GetIntelligence(ctx context.Context, caseID string) (*Intelligence, error) {
	intel, err := e.intel.Get(ctx, caseID)
	if err != nil || intel == nil {
		return intel, err
	}
	intel.StaleAfterMinutes = int(e.opts.StaleAfter / time.Minute)
	intel.IsStale = time.Since(intel.ComputedAt) > e.opts.StaleAfter
	return intel, nil
}

func (e *Engine) logAudit(ctx context.Context, entry audit.Entry) {
	if err := e.auditLog.Log(ctx, entry); err != nil {
		log.Printf("engine: audit log: %v", err)
	}
}

// buildRuleDoc assembles the document rule packs evaluate against.
func buildRuleDoc(sub *casefile.Submission, atts []casefile.Attachment, caseEvents []casefile.Event) payload.Value {
	submission := map[string]any{"present": sub != nil}
	if sub != nil {
		submission["fields"] = sub.Fields.ToAny()
	}
	return payload.FromAny(map[string]any{
		"submission": submission,
		"counts": map[string]any{
			"attachments": len(atts),
			"events":      len(caseEvents),
		},
	})
}

func completenessScore(set []signals.Signal) float64 {
	for _, s := range set {
		if s.SignalType == signals.TypeSubmissionCompleteness {
			return s.Strength * 100
		}
	}
	return 0
}

func diagnose(set []signals.Signal, primary, rulesScore float64) string {
	if len(set) == 0 {
		return DiagnosisNoSignals
	}
	if math.Abs(primary-rulesScore) > divergenceLimit {
		return DiagnosisScoreDivergence
	}
	return DiagnosisOK
}

func intelPayload(intel *Intelligence) (payload.Value, error) {
	b, err := json.Marshal(intel)
	if err != nil {
		return payload.Null(), fmt.Errorf("marshalling intelligence payload: %w", err)
	}
	return payload.FromJSON(b), nil
}

func actorType(trigger string) audit.ActorType {
	if trigger == "manual" {
		return audit.ActorUser
	}
	return audit.ActorSystem
}
