package offering

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/acp-seller/internal/domain"
)

func writeOffering(t *testing.T, root, dirName, configFileName, body string) {
	t.Helper()
	dir := filepath.Join(root, dirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(body), 0o644))
}

func TestLoadOfferingByDirectDirectoryMatch(t *testing.T) {
	root := t.TempDir()
	writeOffering(t, root, "widget_maker", "offering.json", `{"name":"widget_maker","jobFee":5,"jobFeeType":"fixed"}`)

	reg := New(root)
	reg.Register("widget_maker", func(cfg domain.OfferingConfig) domain.Handlers {
		return fakeHandlers{cfg: cfg}
	})

	cfg, handlers, err := reg.LoadOffering("widget_maker")
	require.NoError(t, err)
	require.NotNil(t, handlers)
	assert.Equal(t, "widget_maker", cfg.Name)
	assert.Equal(t, 5.0, cfg.JobFee)
}

func TestLoadOfferingByConfigNameScanWhenDirNameDiffers(t *testing.T) {
	root := t.TempDir()
	writeOffering(t, root, "dir_one", "offering.json", `{"name":"actual_name"}`)

	reg := New(root)
	reg.Register("actual_name", func(cfg domain.OfferingConfig) domain.Handlers {
		return fakeHandlers{cfg: cfg}
	})

	cfg, handlers, err := reg.LoadOffering("actual_name")
	require.NoError(t, err)
	require.NotNil(t, handlers)
	assert.Equal(t, "actual_name", cfg.Name)
}

func TestLoadOfferingAcceptsYAMLConfig(t *testing.T) {
	root := t.TempDir()
	writeOffering(t, root, "yaml_offering", "offering.yaml", "name: yaml_offering\njobFee: 12.5\njobFeeType: fixed\n")

	reg := New(root)
	reg.Register("yaml_offering", func(cfg domain.OfferingConfig) domain.Handlers {
		return fakeHandlers{cfg: cfg}
	})

	cfg, _, err := reg.LoadOffering("yaml_offering")
	require.NoError(t, err)
	assert.Equal(t, 12.5, cfg.JobFee)
}

func TestLoadOfferingPreservesUnknownExtensionFields(t *testing.T) {
	root := t.TempDir()
	writeOffering(t, root, "ext_offering", "offering.json", `{"name":"ext_offering","category":"research","tags":["a","b"]}`)

	reg := New(root)
	reg.Register("ext_offering", func(cfg domain.OfferingConfig) domain.Handlers {
		return fakeHandlers{cfg: cfg}
	})

	cfg, _, err := reg.LoadOffering("ext_offering")
	require.NoError(t, err)
	assert.Equal(t, "research", cfg.Extra["category"])
}

func TestLoadOfferingFailsWhenConfigMissing(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty_dir"), 0o755))

	reg := New(root)
	_, _, err := reg.LoadOffering("empty_dir")
	assert.Error(t, err)
}

func TestLoadOfferingFailsWhenNoHandlerRegistered(t *testing.T) {
	root := t.TempDir()
	writeOffering(t, root, "unregistered", "offering.json", `{"name":"unregistered"}`)

	reg := New(root)
	_, _, err := reg.LoadOffering("unregistered")
	assert.Error(t, err)
}

func TestListOfferingsEnumeratesSubdirectories(t *testing.T) {
	root := t.TempDir()
	writeOffering(t, root, "a", "offering.json", `{"name":"a"}`)
	writeOffering(t, root, "b", "offering.json", `{"name":"b"}`)

	reg := New(root)
	names, err := reg.ListOfferings()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestLoadAllSkipsBadOfferingsAndReportsFailures(t *testing.T) {
	root := t.TempDir()
	writeOffering(t, root, "good", "offering.json", `{"name":"good"}`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bad"), 0o755))

	reg := New(root)
	reg.Register("good", func(cfg domain.OfferingConfig) domain.Handlers {
		return fakeHandlers{cfg: cfg}
	})

	loaded, failures := reg.LoadAll()
	require.Len(t, loaded, 1)
	assert.Equal(t, "good", loaded[0].Name)
	assert.Contains(t, failures, "bad")
}

type fakeHandlers struct {
	cfg domain.OfferingConfig
}

func (fakeHandlers) ExecuteJob(_ context.Context, _ domain.JobContext, _ map[string]any) (domain.ExecuteJobResult, error) {
	return domain.ExecuteJobResult{}, nil
}
