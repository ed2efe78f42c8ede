package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	before := testutil.ToFloat64(ingestsTotal.WithLabelValues("ok"))
	ObserveIngest("")
	assert.Equal(t, before+1, testutil.ToFloat64(ingestsTotal.WithLabelValues("ok")))

	before = testutil.ToFloat64(queriesTotal.WithLabelValues("index_not_built"))
	ObserveQuery("index_not_built", 3*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(queriesTotal.WithLabelValues("index_not_built")))

	SetIndex(4, 17)
	assert.Equal(t, 4.0, testutil.ToFloat64(indexGeneration))
	assert.Equal(t, 17.0, testutil.ToFloat64(indexChunks))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	SetIndex(2, 5)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "docqa_index_generation 2")
	assert.Contains(t, string(body), "docqa_index_chunks 5")
}
