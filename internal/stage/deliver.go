package stage

import (
	"context"
	"fmt"

	"github.com/yourorg/acp-seller/internal/delivery"
	"github.com/yourorg/acp-seller/internal/domain"
	"github.com/yourorg/acp-seller/internal/normalize"
	"github.com/yourorg/acp-seller/internal/retry"
)

// Deliver runs the deliver stage for job: resolve the offering, execute the
// handler, and deliver its result. Handler execution failures are never
// retried, since handlers may have non-idempotent side effects;
// they propagate to the caller, which logs and leaves the job for the poll
// reconciler to re-observe.
func (e *Executor) Deliver(ctx context.Context, job *domain.Job) error {
	log := e.Logger.With("job_id", job.ID)

	if job.HasDeliverable() {
		e.Ledger.MarkDelivered(job.ID)
		log.Info("deliver_short_circuit", "reason", "deliverable_already_present")
		return nil
	}
	if e.Ledger.Stage(job.ID).Delivered {
		log.Info("deliver_short_circuit", "reason", "ledger_delivered")
		return nil
	}

	offeringName, ok := normalize.ResolveOfferingName(job)
	if !ok {
		log.Warn("deliver_skip", "reason", "unresolvable_offering_name")
		return nil
	}

	requirements := normalize.ResolveServiceRequirements(job)

	cfg, handlers, err := e.Offerings.LoadOffering(offeringName)
	if err != nil {
		log.Warn("deliver_skip", "reason", "offering_load_failed", "offering", offeringName, "err", err)
		return nil
	}

	deliveryRoot, jobDir, err := delivery.EnsureJobDir(job.ID)
	if err != nil {
		log.Error("deliver_job_dir_failed", "err", err)
		return err
	}
	jctx := domain.JobContext{
		JobID:        job.ID,
		OfferingName: cfg.Name,
		DeliveryRoot: deliveryRoot,
		JobDir:       jobDir,
		Job:          job,
	}

	result, err := handlers.ExecuteJob(ctx, jctx, requirements)
	if err != nil {
		log.Error("execute_job_failed", "err", err)
		e.record(ctx, job.ID, "deliver", "error", "execute_job failed")
		return fmt.Errorf("execute job %d: %w", job.ID, err)
	}

	if _, err := retry.WithRetry(ctx, e.RetryOpts, func(ctx context.Context, _ int) (struct{}, error) {
		return struct{}{}, e.API.DeliverJob(ctx, job.ID, result.Deliverable, result.PayableDetail)
	}); err != nil {
		log.Error("deliver_call_failed", "err", err)
		e.record(ctx, job.ID, "deliver", "error", "deliver call failed")
		return err
	}

	e.Ledger.MarkDelivered(job.ID)
	e.record(ctx, job.ID, "deliver", "ok", "")
	log.Info("deliver_complete")
	return nil
}
