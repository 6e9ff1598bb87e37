package researchreport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/acp-seller/internal/domain"
)

func jobContext(t *testing.T) domain.JobContext {
	dir := t.TempDir()
	return domain.JobContext{JobID: 1, OfferingName: "research_report", DeliveryRoot: dir, JobDir: dir}
}

func TestValidateRequirementsRequiresTopic(t *testing.T) {
	h := New(domain.OfferingConfig{Name: "research_report"})

	ok, reason, err := h.(domain.RequirementValidator).ValidateRequirements(context.Background(), domain.JobContext{}, map[string]any{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "topic")

	ok, _, err = h.(domain.RequirementValidator).ValidateRequirements(context.Background(), domain.JobContext{}, map[string]any{"topic": "solar energy"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRequestAdditionalFundsChargesFlatTopicFee(t *testing.T) {
	h := New(domain.OfferingConfig{Name: "research_report"})
	req, err := h.(domain.AdditionalFundsRequester).RequestAdditionalFunds(context.Background(), domain.JobContext{}, map[string]any{"topic": "solar energy"})
	require.NoError(t, err)
	assert.Equal(t, perTopicFeeUSDC, req.Amount)
	assert.True(t, req.HasContent)
	assert.Contains(t, req.Content, "solar energy")
}

func TestExecuteJobWritesReportWhenTopicPresent(t *testing.T) {
	jctx := jobContext(t)
	h := New(domain.OfferingConfig{Name: "research_report"})

	result, err := h.ExecuteJob(context.Background(), jctx, map[string]any{"topic": "solar energy", "depth": "deep"})
	require.NoError(t, err)
	require.True(t, result.Deliverable.Structured)
	assert.Equal(t, "written", result.Deliverable.Type)

	reportRaw, err := os.ReadFile(filepath.Join(jctx.JobDir, "report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(reportRaw), "solar energy")
	assert.Contains(t, string(reportRaw), "deep")
}

func TestExecuteJobDefaultsDepthToOverview(t *testing.T) {
	jctx := jobContext(t)
	h := New(domain.OfferingConfig{Name: "research_report"})

	_, err := h.ExecuteJob(context.Background(), jctx, map[string]any{"topic": "solar energy"})
	require.NoError(t, err)

	reportRaw, err := os.ReadFile(filepath.Join(jctx.JobDir, "report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(reportRaw), "overview")
}

func TestExecuteJobWritesIntakeWhenTopicMissing(t *testing.T) {
	jctx := jobContext(t)
	h := New(domain.OfferingConfig{Name: "research_report"})

	result, err := h.ExecuteJob(context.Background(), jctx, map[string]any{})
	require.NoError(t, err)
	require.True(t, result.Deliverable.Structured)
	assert.Equal(t, "needs_info", result.Deliverable.Type)

	_, err = os.ReadFile(filepath.Join(jctx.JobDir, "intake.json"))
	require.NoError(t, err)
}
