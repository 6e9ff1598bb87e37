// Package dispatch turns a raw job payload, from whichever transport
// observed it, into a routed stage call. It is the single place the
// socket listener and the poll reconciler both feed into: normalize,
// filter, deduplicate, then act.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/yourorg/acp-seller/internal/domain"
	"github.com/yourorg/acp-seller/internal/ledger"
	"github.com/yourorg/acp-seller/internal/normalize"
)

// StageExecutor is the subset of stage.Executor the dispatcher calls.
type StageExecutor interface {
	Accept(ctx context.Context, job *domain.Job) error
	Deliver(ctx context.Context, job *domain.Job) error
}

// CrossProcessGuard is the subset of ratelimit.Guard the dispatcher
// consults. A nil CrossProcessGuard field disables cross-process
// deduplication entirely; HandleJob then relies on the in-process ledger
// alone.
type CrossProcessGuard interface {
	Claim(ctx context.Context, jobID int64) (bool, error)
	Release(ctx context.Context, jobID int64) error
}

// Dispatcher normalizes, filters, and routes raw job payloads.
type Dispatcher struct {
	Stage  StageExecutor
	Ledger *ledger.Ledger
	Guard  CrossProcessGuard
	Wallet string // lowercased provider address this seller runtime acts as
	Logger *slog.Logger
}

// New builds a Dispatcher bound to a single wallet address. guard may be
// nil when no cross-process deployment is in play.
func New(stage StageExecutor, lg *ledger.Ledger, guard CrossProcessGuard, walletLC string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		Stage:  stage,
		Ledger: lg,
		Guard:  guard,
		Wallet: normalize.Address(walletLC),
		Logger: logger.With("component", "dispatch"),
	}
}

// HandleJob normalizes raw, filters it to jobs this wallet is the provider
// for, deduplicates concurrent stage entry via the ledger's in-flight guard,
// and routes the normalized job to the accept or deliver stage based on its
// phase. source identifies the event's origin for logging only ("socket" or
// "poll").
func (d *Dispatcher) HandleJob(ctx context.Context, raw map[string]any, source string) {
	job := normalize.ParseJob(raw)

	log := d.Logger.With("job_id", job.ID, "source", source, "phase", job.Phase.String())

	if job.ID == 0 {
		log.Warn("dispatch_skip", "reason", "unresolvable_job_id")
		return
	}

	if job.Phase == domain.PhaseUnknown {
		log.Warn("dispatch_skip", "reason", "unresolvable_phase")
		return
	}

	if d.Wallet != "" && job.ProviderAddress != "" && !normalize.AddressesEqual(job.ProviderAddress, d.Wallet) {
		log.Debug("dispatch_skip", "reason", "not_provider")
		return
	}

	if !d.Ledger.TryEnter(job.ID) {
		log.Debug("dispatch_skip", "reason", "already_in_flight")
		return
	}
	defer d.Ledger.Leave(job.ID)

	if d.Guard != nil {
		granted, err := d.Guard.Claim(ctx, job.ID)
		if err != nil {
			log.Warn("dispatch_guard_claim_failed", "err", err)
		} else if !granted {
			log.Debug("dispatch_skip", "reason", "cross_process_claim_denied")
			return
		} else {
			defer func() {
				if rerr := d.Guard.Release(ctx, job.ID); rerr != nil {
					log.Warn("dispatch_guard_release_failed", "err", rerr)
				}
			}()
		}
	}

	log.Info("job_event")

	var err error
	switch job.Phase {
	case domain.PhaseRequest, domain.PhaseNegotiation:
		err = d.Stage.Accept(ctx, job)
	case domain.PhaseTransaction, domain.PhaseEvaluation:
		err = d.Stage.Deliver(ctx, job)
	default:
		// COMPLETED, REJECTED, EXPIRED — valid terminal phases with nothing
		// left for this runtime to do. PhaseUnknown never reaches here.
		log.Debug("dispatch_skip", "reason", "terminal_phase")
		return
	}

	if err != nil {
		log.Error("dispatch_stage_failed", "err", err)
	}
}
