// Package typescriptapi is a sample offering: it scaffolds a minimal
// TypeScript REST API from a buyer-supplied project name and route list,
// writing the scaffold to the job's delivery directory and returning a
// written-deliverable pointing at it.
package typescriptapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/yourorg/acp-seller/internal/delivery"
	"github.com/yourorg/acp-seller/internal/domain"
)

var requiredFields = []string{"projectName"}

type handlers struct {
	cfg domain.OfferingConfig
}

// New builds the Handlers implementation for this offering. Matches
// offering.Constructor's signature so main.go can register it directly.
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

func (h *handlers) RequestPayment(ctx context.Context, jctx domain.JobContext, requirements map[string]any) (string, error) {
	return fmt.Sprintf("Ready to scaffold %v. Please confirm payment to begin.", requirements["projectName"]), nil
}

func (h *handlers) ExecuteJob(ctx context.Context, jctx domain.JobContext, requirements map[string]any) (domain.ExecuteJobResult, error) {
	missing := delivery.MissingRequiredFields(requirements, requiredFields)
	if len(missing) > 0 {
		intakePath, err := delivery.WriteTextFile(jctx.JobDir, "intake.json", intakeTemplate())
		if err != nil {
			return domain.ExecuteJobResult{}, fmt.Errorf("write intake template: %w", err)
		}
		value := delivery.BuildNeedsInfoValue(jctx.JobID, jctx.OfferingName, jctx.JobDir, intakePath, missing)
		return domain.ExecuteJobResult{
			Deliverable: domain.StructuredDeliverable("needs_info", value),
		}, nil
	}

	projectName, _ := requirements["projectName"].(string)
	routes := stringSlice(requirements["routes"])
	if len(routes) == 0 {
		routes = []string{"/health"}
	}

	packageJSONPath, err := delivery.WriteJSONFile(jctx.JobDir, "package.json", packageJSON(projectName))
	if err != nil {
		return domain.ExecuteJobResult{}, fmt.Errorf("write package.json: %w", err)
	}

	indexPath, err := delivery.WriteTextFile(jctx.JobDir, "index.ts", indexTS(projectName, routes))
	if err != nil {
		return domain.ExecuteJobResult{}, fmt.Errorf("write index.ts: %w", err)
	}

	value := delivery.BuildWrittenValue(jctx.JobID, jctx.OfferingName, jctx.JobDir, indexPath, []string{packageJSONPath})
	return domain.ExecuteJobResult{
		Deliverable: domain.StructuredDeliverable("written", value),
	}, nil
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intakeTemplate() string {
	return `{
  "projectName": "<your project name>",
  "routes": ["/health", "/widgets"]
}`
}

func packageJSON(projectName string) map[string]any {
	return map[string]any{
		"name":    projectName,
		"version": "0.1.0",
		"private": true,
		"scripts": map[string]string{
			"start": "node dist/index.js",
			"build": "tsc",
		},
		"dependencies": map[string]string{
			"express": "^4.19.2",
		},
		"devDependencies": map[string]string{
			"typescript": "^5.5.4",
			"@types/express": "^4.17.21",
			"@types/node": "^20.14.0",
		},
	}
}

func indexTS(projectName string, routes []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// %s — generated API scaffold\n", projectName)
	b.WriteString("import express from \"express\";\n\n")
	b.WriteString("const app = express();\n")
	b.WriteString("app.use(express.json());\n\n")
	for _, route := range routes {
		fmt.Fprintf(&b, "app.get(%q, (_req, res) => {\n  res.json({ ok: true, route: %q });\n});\n\n", route, route)
	}
	b.WriteString("const port = process.env.PORT ?? 3000;\n")
	b.WriteString("app.listen(port, () => console.log(`listening on ${port}`));\n")
	return b.String()
}
