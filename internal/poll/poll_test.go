package poll

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextBackoffGrowsAndCaps(t *testing.T) {
	interval := 2 * time.Second
	interval = nextBackoff(interval)
	assert.Equal(t, time.Duration(float64(2*time.Second)*backoffFactor), interval)

	interval = 100 * time.Second
	interval = nextBackoff(interval)
	assert.Equal(t, maxInterval, interval)
}

func TestNextBackoffNeverBelowMin(t *testing.T) {
	assert.Equal(t, minInterval, nextBackoff(0))
}

func TestActiveJobsPathEncodesPageAndPageSize(t *testing.T) {
	assert.Equal(t, "/acp/jobs/active?page=1&pageSize=50", activeJobsPath(1, 50))
}

func TestActiveJobsPageDecodesEnvelope(t *testing.T) {
	var page activeJobsPage
	err := json.Unmarshal([]byte(`{"data":[{"id":1},{"id":2}]}`), &page)
	require.NoError(t, err)
	assert.Len(t, page.Jobs, 2)
}

func TestActiveJobsPageDecodesBareArray(t *testing.T) {
	var page activeJobsPage
	err := json.Unmarshal([]byte(`[{"id":1}]`), &page)
	require.NoError(t, err)
	assert.Len(t, page.Jobs, 1)
}
