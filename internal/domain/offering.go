package domain

import "context"

// OfferingConfig is the local definition of a sellable service, loaded from
// an offering.json (or offering.yaml) file discovered by the offering
// registry. Extra carries any extension fields the config author added;
// the registry tolerates and preserves them without needing to know their
// shape in advance.
type OfferingConfig struct {
	Name          string
	Description   string
	JobFee        float64
	JobFeeType    string // "fixed" or "percentage"
	RequiredFunds bool
	Extra         map[string]any
}

// JobContext is the per-invocation context passed to handlers. It is built
// fresh for every stage invocation and never cached or reused across jobs.
type JobContext struct {
	JobID        int64
	OfferingName string
	DeliveryRoot string
	JobDir       string
	Job          *Job
}

// FundsRequest is returned by an AdditionalFundsRequester. HasContent
// distinguishes "no custom content" from an explicit empty string.
type FundsRequest struct {
	Amount       float64
	TokenAddress string
	Recipient    string
	Content      string
	HasContent   bool
}

// PayableDetail specifies an optional return-transfer attached to a
// payment-request or deliver call.
type PayableDetail struct {
	Amount       float64
	TokenAddress string
	Recipient    string
}

// Deliverable is a handler's execute-job output: either a plain string or a
// {type, value} structured document. Exactly one of Text / (Type, Value) is
// meaningful, selected by Structured.
type Deliverable struct {
	Structured bool
	Text       string
	Type       string
	Value      any
}

// TextDeliverable builds an unstructured string deliverable.
func TextDeliverable(text string) Deliverable {
	return Deliverable{Text: text}
}

// StructuredDeliverable builds a {type, value} deliverable.
func StructuredDeliverable(typ string, value any) Deliverable {
	return Deliverable{Structured: true, Type: typ, Value: value}
}

// Wire converts the deliverable into the JSON shape the seller API expects:
// a bare string, or {"type": ..., "value": ...}.
func (d Deliverable) Wire() any {
	if !d.Structured {
		return d.Text
	}
	return map[string]any{"type": d.Type, "value": d.Value}
}

// ExecuteJobResult is a handler's output from ExecuteJob.
type ExecuteJobResult struct {
	Deliverable   Deliverable
	PayableDetail *PayableDetail
}

// FatalError wraps a handler error that must never be retried. The deliver
// stage does not retry handler errors at all, but offerings
// may still use FatalError to signal intent clearly in logs and in any
// future retry policy that inspects the error chain.
type FatalError struct {
	Cause error
}

func (e *FatalError) Error() string { return e.Cause.Error() }
func (e *FatalError) Unwrap() error { return e.Cause }

// Handlers is the contract every offering's handler module implements.
// ExecuteJob is required; the rest are detected via optional interfaces
// below and are invoked only when present.
type Handlers interface {
	ExecuteJob(ctx context.Context, jctx JobContext, requirements map[string]any) (ExecuteJobResult, error)
}

// RequirementValidator is an optional capability: offerings that need to
// reject malformed buyer requirements before acceptance implement it.
type RequirementValidator interface {
	ValidateRequirements(ctx context.Context, jctx JobContext, requirements map[string]any) (valid bool, reason string, err error)
}

// PaymentRequester is an optional capability supplying the textual content
// of the payment-request memo.
type PaymentRequester interface {
	RequestPayment(ctx context.Context, jctx JobContext, requirements map[string]any) (string, error)
}

// AdditionalFundsRequester is an optional capability for offerings whose
// config sets RequiredFunds — it supplies the payable detail attached to the
// payment request.
type AdditionalFundsRequester interface {
	RequestAdditionalFunds(ctx context.Context, jctx JobContext, requirements map[string]any) (FundsRequest, error)
}
