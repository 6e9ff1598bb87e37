// Package researchreport is a sample offering exercising the
// AdditionalFundsRequester capability: it charges a per-topic fee on top
// of the base job fee before writing a short plaintext report.
package researchreport

import (
	"context"
	"fmt"
	"strings"

	"github.com/yourorg/acp-seller/internal/delivery"
	"github.com/yourorg/acp-seller/internal/domain"
)

var requiredFields = []string{"topic"}

const perTopicFeeUSDC = 2.5

type handlers struct {
	cfg domain.OfferingConfig
}

// New builds the Handlers implementation for this offering.
func New(cfg domain.OfferingConfig) domain.Handlers {
	return &handlers{cfg: cfg}
}

func (h *handlers) ValidateRequirements(ctx context.Context, jctx domain.JobContext, requirements map[string]any) (bool, string, error) {
	missing := delivery.MissingRequiredFields(requirements, requiredFields)
	if len(missing) > 0 {
		return false, fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")), nil
	}
	return true, "", nil
}

func (h *handlers) RequestAdditionalFunds(ctx context.Context, jctx domain.JobContext, requirements map[string]any) (domain.FundsRequest, error) {
	topic, _ := requirements["topic"].(string)
	return domain.FundsRequest{
		Amount:     perTopicFeeUSDC,
		HasContent: true,
		Content:    fmt.Sprintf("Research fee for %q: %.2f USDC on top of the base job fee.", topic, perTopicFeeUSDC),
	}, nil
}

func (h *handlers) ExecuteJob(ctx context.Context, jctx domain.JobContext, requirements map[string]any) (domain.ExecuteJobResult, error) {
	missing := delivery.MissingRequiredFields(requirements, requiredFields)
	if len(missing) > 0 {
		intakePath, err := delivery.WriteTextFile(jctx.JobDir, "intake.json", `{"topic": "<research topic>"}`)
		if err != nil {
			return domain.ExecuteJobResult{}, fmt.Errorf("write intake template: %w", err)
		}
		value := delivery.BuildNeedsInfoValue(jctx.JobID, jctx.OfferingName, jctx.JobDir, intakePath, missing)
		return domain.ExecuteJobResult{
			Deliverable: domain.StructuredDeliverable("needs_info", value),
		}, nil
	}

	topic, _ := requirements["topic"].(string)
	depth, _ := requirements["depth"].(string)
	if depth == "" {
		depth = "overview"
	}

	reportPath, err := delivery.WriteTextFile(jctx.JobDir, "report.md", report(topic, depth))
	if err != nil {
		return domain.ExecuteJobResult{}, fmt.Errorf("write report.md: %w", err)
	}

	value := delivery.BuildWrittenValue(jctx.JobID, jctx.OfferingName, jctx.JobDir, reportPath, nil)
	return domain.ExecuteJobResult{
		Deliverable: domain.StructuredDeliverable("written", value),
	}, nil
}

func report(topic, depth string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Research report: %s\n\n", topic)
	fmt.Fprintf(&b, "Depth: %s\n\n", depth)
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "This is a placeholder %s-depth report on %q, generated as a delivered artifact.\n", depth, topic)
	return b.String()
}
