// Package audit runs concurrent validations of generated reasoning units.
// Each detected unit gets one independent judgment task; the pool keeps the
// verdict ledger and reports outcomes through hooks so the caller decides
// what a rejection triggers.
package audit

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/thinktwice-ai/thinktwice/internal/completion"
	"github.com/thinktwice-ai/thinktwice/internal/protocol"
)

// Status is the lifecycle of a unit verdict. A verdict transitions from
// Pending to Accepted or Rejected exactly once and never reverts.
type Status int

const (
	Pending Status = iota
	Accepted
	Rejected
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Verdict is the recorded outcome for one unit. Start is the unit's start
// offset in the generation buffer, kept so a takeover can truncate there.
type Verdict struct {
	Unit   int
	Status Status
	Fix    string
	Start  int
}

// Hooks receive audit outcomes. All hooks may be invoked from validation
// goroutines; nil hooks are skipped.
type Hooks struct {
	// OnAccept fires for a genuine parsed OK (not for fail-open accepts).
	OnAccept func(unit int)
	// OnReject fires after a rejected verdict is recorded.
	OnReject func(unit, start int, fix string)
	// OnFailOpen fires when a response had no parseable status and the unit
	// was accepted by policy.
	OnFailOpen func(unit int, response string)
	// OnDropped fires when the judge call itself failed and the unit was
	// removed from the ledger.
	OnDropped func(unit int, err error)
}

// Pool dispatches one judgment task per unit and joins them on demand.
type Pool struct {
	source      completion.Source
	taskContext string
	temperature float32
	hooks       Hooks

	mu       sync.Mutex
	verdicts map[int]Verdict

	group errgroup.Group
}

// NewPool creates a pool that judges units against taskContext.
func NewPool(source completion.Source, taskContext string, temperature float32, hooks Hooks) *Pool {
	return &Pool{
		source:      source,
		taskContext: taskContext,
		temperature: temperature,
		hooks:       hooks,
		verdicts:    make(map[int]Verdict),
	}
}

// Audit records a pending verdict for the unit and spawns its judgment task.
// The task honors ctx: once cancelled it exits without recording a verdict
// or firing hooks.
func (p *Pool) Audit(ctx context.Context, unit protocol.Unit) {
	p.record(Verdict{Unit: unit.Index, Status: Pending, Start: unit.Start})

	p.group.Go(func() error {
		p.judge(ctx, unit)
		return nil
	})
}

// Wait blocks until every spawned task has finished or been cancelled.
func (p *Pool) Wait() {
	// Tasks never return errors; failures are routed through hooks.
	_ = p.group.Wait()
}

// Verdicts returns a copy of the verdict ledger.
func (p *Pool) Verdicts() map[int]Verdict {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[int]Verdict, len(p.verdicts))
	for k, v := range p.verdicts {
		out[k] = v
	}
	return out
}

// FirstRejected returns the rejected verdict with the smallest unit index.
// Completion order is irrelevant: the earliest-discovered failure wins.
func (p *Pool) FirstRejected() (Verdict, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var best Verdict
	found := false
	for _, v := range p.verdicts {
		if v.Status != Rejected {
			continue
		}
		if !found || v.Unit < best.Unit {
			best = v
			found = true
		}
	}
	return best, found
}

func (p *Pool) judge(ctx context.Context, unit protocol.Unit) {
	response, err := p.source.Judge(ctx, protocol.AuditorPrompt, protocol.AuditorRequest(p.taskContext, unit.Body), p.temperature)

	// A task cancelled by a takeover must leave no trace: no verdict, no
	// hook, and certainly no takeover of its own.
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		slog.Warn("audit judgment failed, dropping unit", "unit", unit.Index, "error", err)
		p.drop(unit.Index)
		if p.hooks.OnDropped != nil {
			p.hooks.OnDropped(unit.Index, err)
		}
		return
	}

	j := protocol.ParseJudgment(response)
	switch {
	case !j.Parsed:
		slog.Warn("auditor returned unparseable verdict, failing open", "unit", unit.Index)
		p.record(Verdict{Unit: unit.Index, Status: Accepted, Start: unit.Start})
		if p.hooks.OnFailOpen != nil {
			p.hooks.OnFailOpen(unit.Index, response)
		}
	case j.OK:
		p.record(Verdict{Unit: unit.Index, Status: Accepted, Start: unit.Start})
		if p.hooks.OnAccept != nil {
			p.hooks.OnAccept(unit.Index)
		}
	default:
		p.record(Verdict{Unit: unit.Index, Status: Rejected, Fix: j.Fix, Start: unit.Start})
		if p.hooks.OnReject != nil {
			p.hooks.OnReject(unit.Index, unit.Start, j.Fix)
		}
	}
}

func (p *Pool) record(v Verdict) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.verdicts[v.Unit]; ok && existing.Status != Pending {
		// Verdicts are single-assignment once settled.
		return
	}
	p.verdicts[v.Unit] = v
}

func (p *Pool) drop(unit int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.verdicts, unit)
}
