// Package sellerapi provides thin typed wrappers around the seller-facing
// endpoints of the protocol backend: accept/reject, request-payment, and
// deliver. Each call is a single POST with a JSON body keyed by jobId, and
// each emits exactly one structured log line — never including requirement
// or memo content.
package sellerapi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yourorg/acp-seller/internal/domain"
	"github.com/yourorg/acp-seller/internal/httpclient"
)

// Adapter is the seller API client bound to one backend connection.
type Adapter struct {
	http   *httpclient.Client
	logger *slog.Logger
}

// New builds an Adapter.
func New(http *httpclient.Client, logger *slog.Logger) *Adapter {
	return &Adapter{http: http, logger: logger.With("component", "sellerapi")}
}

type acceptRejectBody struct {
	Accept bool   `json:"accept"`
	Reason string `json:"reason,omitempty"`
}

// AcceptOrRejectJob issues POST /acp/providers/jobs/{jobId}/accept.
func (a *Adapter) AcceptOrRejectJob(ctx context.Context, jobID int64, accept bool, reason string) error {
	path := fmt.Sprintf("/acp/providers/jobs/%d/accept", jobID)
	err := a.http.Do(ctx, "POST", path, acceptRejectBody{Accept: accept, Reason: reason}, nil)
	a.logger.Info("accept_or_reject_job",
		"job_id", jobID, "accept", accept, "has_reason", reason != "", "err", errString(err))
	return err
}

type payableDetailBody struct {
	Amount       float64 `json:"amount"`
	TokenAddress string  `json:"tokenAddress"`
	Recipient    string  `json:"recipient"`
}

type requestPaymentBody struct {
	Content       string              `json:"content"`
	PayableDetail *payableDetailBody `json:"payableDetail,omitempty"`
}

// RequestPayment issues POST /acp/providers/jobs/{jobId}/requirement.
func (a *Adapter) RequestPayment(ctx context.Context, jobID int64, content string, detail *domain.PayableDetail) error {
	path := fmt.Sprintf("/acp/providers/jobs/%d/requirement", jobID)
	body := requestPaymentBody{Content: content, PayableDetail: wirePayableDetail(detail)}
	err := a.http.Do(ctx, "POST", path, body, nil)
	a.logger.Info("request_payment",
		"job_id", jobID, "has_payable_detail", detail != nil, "err", errString(err))
	return err
}

type deliverJobBody struct {
	Deliverable   any                `json:"deliverable"`
	PayableDetail *payableDetailBody `json:"payableDetail,omitempty"`
}

// DeliverJob issues POST /acp/providers/jobs/{jobId}/deliverable.
func (a *Adapter) DeliverJob(ctx context.Context, jobID int64, deliverable domain.Deliverable, detail *domain.PayableDetail) error {
	path := fmt.Sprintf("/acp/providers/jobs/%d/deliverable", jobID)
	body := deliverJobBody{Deliverable: deliverable.Wire(), PayableDetail: wirePayableDetail(detail)}
	err := a.http.Do(ctx, "POST", path, body, nil)
	a.logger.Info("deliver_job",
		"job_id", jobID, "structured", deliverable.Structured, "has_payable_detail", detail != nil, "err", errString(err))
	return err
}

func wirePayableDetail(d *domain.PayableDetail) *payableDetailBody {
	if d == nil {
		return nil
	}
	return &payableDetailBody{Amount: d.Amount, TokenAddress: d.TokenAddress, Recipient: d.Recipient}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
