// Package stage implements the two seller-side stage bundles: accept
// (accept-or-reject + payment-request) and deliver (execute + deliver).
// Both carry the idempotency short-circuits and memo/deliverable-based
// "already done" checks the accept stage must make before acting.
//
// Built around an "updated bool" short-circuit idiom: a transition only
// takes effect if the ledger is still in the expected prior state, since
// this runtime has no persisted job row of its own to gate on.
package stage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yourorg/acp-seller/internal/audit"
	"github.com/yourorg/acp-seller/internal/delivery"
	"github.com/yourorg/acp-seller/internal/domain"
	"github.com/yourorg/acp-seller/internal/ledger"
	"github.com/yourorg/acp-seller/internal/normalize"
	"github.com/yourorg/acp-seller/internal/offering"
	"github.com/yourorg/acp-seller/internal/retry"
	"github.com/yourorg/acp-seller/internal/sellerapi"
)

// SellerAPI is the subset of sellerapi.Adapter the stage executor calls.
// Declared as an interface so tests can substitute a recorder.
type SellerAPI interface {
	AcceptOrRejectJob(ctx context.Context, jobID int64, accept bool, reason string) error
	RequestPayment(ctx context.Context, jobID int64, content string, detail *domain.PayableDetail) error
	DeliverJob(ctx context.Context, jobID int64, deliverable domain.Deliverable, detail *domain.PayableDetail) error
}

var _ SellerAPI = (*sellerapi.Adapter)(nil)

// Executor runs the accept and deliver stages.
type Executor struct {
	Offerings *offering.Registry
	Ledger    *ledger.Ledger
	API       SellerAPI
	Audit     *audit.Store
	RetryOpts retry.Options
	Logger    *slog.Logger
}

// New builds an Executor. auditStore may be nil, in which case audit
// recording is skipped entirely (see Executor.record).
func New(offerings *offering.Registry, lg *ledger.Ledger, api SellerAPI, auditStore *audit.Store, logger *slog.Logger) *Executor {
	return &Executor{
		Offerings: offerings,
		Ledger:    lg,
		API:       api,
		Audit:     auditStore,
		RetryOpts: retry.DefaultOptions(),
		Logger:    logger.With("component", "stage"),
	}
}

// record appends a best-effort audit row if an audit store is configured.
func (e *Executor) record(ctx context.Context, jobID int64, stage, outcome, detail string) {
	if e.Audit != nil {
		e.Audit.Record(ctx, jobID, stage, outcome, detail)
	}
}

// Accept runs the accept stage for job: resolve the offering, validate
// requirements, accept the job, and request payment. Every short-circuit
// and error path the accept stage must implement is covered
// here in order.
func (e *Executor) Accept(ctx context.Context, job *domain.Job) error {
	log := e.Logger.With("job_id", job.ID)

	if normalize.HasMemoWithNextPhase(job.Memos, domain.PhaseTransaction) {
		e.Ledger.MarkAccepted(job.ID)
		log.Info("accept_short_circuit", "reason", "transaction_memo_present")
		return nil
	}
	if e.Ledger.Stage(job.ID).Accepted {
		log.Info("accept_short_circuit", "reason", "ledger_accepted")
		return nil
	}

	offeringName, ok := normalize.ResolveOfferingName(job)
	if !ok {
		log.Warn("accept_reject", "reason", "unresolvable_offering_name")
		_, err := retry.WithRetry(ctx, e.RetryOpts, func(ctx context.Context, _ int) (struct{}, error) {
			return struct{}{}, e.API.AcceptOrRejectJob(ctx, job.ID, false, "Invalid offering name (could not resolve)")
		})
		e.Ledger.MarkAccepted(job.ID)
		e.record(ctx, job.ID, "accept", "rejected", "unresolvable offering name")
		return err
	}

	requirements := normalize.ResolveServiceRequirements(job)

	cfg, handlers, err := e.Offerings.LoadOffering(offeringName)
	if err != nil {
		log.Warn("accept_reject", "reason", "offering_load_failed", "offering", offeringName, "err", err)
		reason := fmt.Sprintf("Offering not configured locally: %s", offeringName)
		_, rerr := retry.WithRetry(ctx, e.RetryOpts, func(ctx context.Context, _ int) (struct{}, error) {
			return struct{}{}, e.API.AcceptOrRejectJob(ctx, job.ID, false, reason)
		})
		e.Ledger.MarkAccepted(job.ID)
		e.record(ctx, job.ID, "accept", "rejected", reason)
		return rerr
	}

	deliveryRoot, jobDir, err := delivery.EnsureJobDir(job.ID)
	if err != nil {
		log.Error("accept_job_dir_failed", "err", err)
		return err
	}
	jctx := domain.JobContext{
		JobID:        job.ID,
		OfferingName: cfg.Name,
		DeliveryRoot: deliveryRoot,
		JobDir:       jobDir,
		Job:          job,
	}

	if validator, ok := handlers.(domain.RequirementValidator); ok {
		valid, reason, verr := validator.ValidateRequirements(ctx, jctx, requirements)
		if verr != nil {
			valid = false
			if reason == "" {
				reason = verr.Error()
			}
		}
		if !valid {
			if reason == "" {
				reason = "Validation failed"
			}
			log.Warn("accept_reject", "reason", "validation_failed", "detail", reason)
			_, rerr := retry.WithRetry(ctx, e.RetryOpts, func(ctx context.Context, _ int) (struct{}, error) {
				return struct{}{}, e.API.AcceptOrRejectJob(ctx, job.ID, false, reason)
			})
			e.Ledger.MarkAccepted(job.ID)
			e.record(ctx, job.ID, "accept", "rejected", reason)
			return rerr
		}
	}

	if _, err := retry.WithRetry(ctx, e.RetryOpts, func(ctx context.Context, _ int) (struct{}, error) {
		return struct{}{}, e.API.AcceptOrRejectJob(ctx, job.ID, true, "Job accepted")
	}); err != nil {
		log.Error("accept_call_failed", "err", err)
		return err
	}

	content, detail := e.resolvePaymentRequest(ctx, cfg, handlers, jctx, requirements, log)

	if _, err := retry.WithRetry(ctx, e.RetryOpts, func(ctx context.Context, _ int) (struct{}, error) {
		return struct{}{}, e.API.RequestPayment(ctx, job.ID, content, detail)
	}); err != nil {
		log.Error("request_payment_failed", "err", err)
		return err
	}

	e.Ledger.MarkAccepted(job.ID)
	e.record(ctx, job.ID, "accept", "ok", "")
	log.Info("accept_complete")
	return nil
}

func (e *Executor) resolvePaymentRequest(
	ctx context.Context,
	cfg domain.OfferingConfig,
	handlers domain.Handlers,
	jctx domain.JobContext,
	requirements map[string]any,
	log *slog.Logger,
) (string, *domain.PayableDetail) {
	var funds *domain.FundsRequest
	if cfg.RequiredFunds {
		if requester, ok := handlers.(domain.AdditionalFundsRequester); ok {
			f, err := requester.RequestAdditionalFunds(ctx, jctx, requirements)
			if err != nil {
				log.Warn("request_additional_funds_failed", "err", err)
			} else {
				funds = &f
			}
		}
	}

	var detail *domain.PayableDetail
	if funds != nil {
		detail = &domain.PayableDetail{
			Amount:       funds.Amount,
			TokenAddress: funds.TokenAddress,
			Recipient:    funds.Recipient,
		}
	}

	content := "Request accepted"
	if requester, ok := handlers.(domain.PaymentRequester); ok {
		if c, err := requester.RequestPayment(ctx, jctx, requirements); err == nil && c != "" {
			content = c
		} else if err != nil {
			log.Warn("request_payment_content_failed", "err", err)
		}
	} else if funds != nil && funds.HasContent {
		content = funds.Content
	}

	return content, detail
}
