package typescriptapi

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/acp-seller/internal/domain"
)

func jobContext(t *testing.T) domain.JobContext {
	dir := t.TempDir()
	return domain.JobContext{JobID: 1, OfferingName: "typescript_api_development", DeliveryRoot: dir, JobDir: dir}
}

func TestValidateRequirementsRequiresProjectName(t *testing.T) {
	h := New(domain.OfferingConfig{Name: "typescript_api_development"})

	ok, reason, err := h.(domain.RequirementValidator).ValidateRequirements(context.Background(), domain.JobContext{}, map[string]any{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "projectName")

	ok, _, err = h.(domain.RequirementValidator).ValidateRequirements(context.Background(), domain.JobContext{}, map[string]any{"projectName": "widgets-api"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRequestPaymentMentionsProjectName(t *testing.T) {
	h := New(domain.OfferingConfig{Name: "typescript_api_development"})
	content, err := h.(domain.PaymentRequester).RequestPayment(context.Background(), domain.JobContext{}, map[string]any{"projectName": "widgets-api"})
	require.NoError(t, err)
	assert.Contains(t, content, "widgets-api")
}

func TestExecuteJobWritesScaffoldWhenRequirementsComplete(t *testing.T) {
	jctx := jobContext(t)
	h := New(domain.OfferingConfig{Name: "typescript_api_development"})

	result, err := h.ExecuteJob(context.Background(), jctx, map[string]any{
		"projectName": "widgets-api",
		"routes":      []any{"/widgets", "/health"},
	})
	require.NoError(t, err)
	require.True(t, result.Deliverable.Structured)
	assert.Equal(t, "written", result.Deliverable.Type)

	pkgRaw, err := os.ReadFile(filepath.Join(jctx.JobDir, "package.json"))
	require.NoError(t, err)
	var pkg map[string]any
	require.NoError(t, json.Unmarshal(pkgRaw, &pkg))
	assert.Equal(t, "widgets-api", pkg["name"])

	indexRaw, err := os.ReadFile(filepath.Join(jctx.JobDir, "index.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(indexRaw), "/widgets")
	assert.Contains(t, string(indexRaw), "/health")
}

func TestExecuteJobWritesIntakeWhenProjectNameMissing(t *testing.T) {
	jctx := jobContext(t)
	h := New(domain.OfferingConfig{Name: "typescript_api_development"})

	result, err := h.ExecuteJob(context.Background(), jctx, map[string]any{})
	require.NoError(t, err)
	require.True(t, result.Deliverable.Structured)
	assert.Equal(t, "needs_info", result.Deliverable.Type)

	_, err = os.ReadFile(filepath.Join(jctx.JobDir, "intake.json"))
	require.NoError(t, err)
}

func TestExecuteJobDefaultsRoutesWhenOmitted(t *testing.T) {
	jctx := jobContext(t)
	h := New(domain.OfferingConfig{Name: "typescript_api_development"})

	_, err := h.ExecuteJob(context.Background(), jctx, map[string]any{"projectName": "widgets-api"})
	require.NoError(t, err)

	indexRaw, err := os.ReadFile(filepath.Join(jctx.JobDir, "index.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(indexRaw), "/health")
}
