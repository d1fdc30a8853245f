package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOperation(t *testing.T) {
	before := testutil.ToFloat64(Operations.WithLabelValues("metrics_test_op"))
	ObserveOperation("metrics_test_op", time.Now())
	ObserveOperation("metrics_test_op", time.Now())
	after := testutil.ToFloat64(Operations.WithLabelValues("metrics_test_op"))
	assert.Equal(t, before+2, after)
}

func TestTimerStop(t *testing.T) {
	before := testutil.ToFloat64(Operations.WithLabelValues("metrics_test_timer"))
	timer := NewTimer("metrics_test_timer")
	assert.Equal(t, "metrics_test_timer", timer.Name())
	d := timer.Stop()
	assert.GreaterOrEqual(t, int64(d), int64(0))
	assert.Equal(t, before+1, testutil.ToFloat64(Operations.WithLabelValues("metrics_test_timer")))
}

func TestWriteText(t *testing.T) {
	IndexBuilds.Add(0)
	RowsLoaded.WithLabelValues("tsv").Add(3)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "tabula_index_builds_total")
	assert.Contains(t, out, `tabula_rows_loaded_total{format="tsv"}`)
}
