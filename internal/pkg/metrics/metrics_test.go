package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ObserveCook(t *testing.T) {
	r := New()

	r.ObserveCook(OutcomeSuccess, 2, 1, 10*time.Millisecond)
	r.ObserveCook(OutcomeConflict, 0, 0, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.cooks.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cooks.WithLabelValues(OutcomeConflict)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.inventoryUpdated))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.itemsAdded.WithLabelValues("cook")))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveCook(OutcomeSuccess, 1, 1, time.Second)
		r.ObserveReconcile(3)
		r.ObserveRequest("GET", "/", "200")
	})
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.ObserveReconcile(3)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `kitchen_shopping_items_added_total{path="reconcile"} 3`))
}
