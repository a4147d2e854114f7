package services

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"sellerops/internal/models"
)

func TestConfigCache(t *testing.T) {
	c := NewConfigCache(time.Minute)

	_, found := c.Get("seller-1")
	assert.False(t, found)

	c.Set("seller-1", []models.BlockConfiguration{{Category: models.CategoryAct, Name: "Update Prices"}})
	got, found := c.Get("seller-1")
	assert.True(t, found)
	assert.Len(t, got, 1)

	_, found = c.Get("seller-2")
	assert.False(t, found)

	c.Invalidate("seller-1")
	_, found = c.Get("seller-1")
	assert.False(t, found)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveDispatch(models.CategoryAct, "demo", "success", time.Millisecond)
	m.RecordStepCompletion()
	m.RecordFlowRun(models.TriggerManual)
	m.RecordCacheLookup(true)
}

func TestMetrics_ObserveDispatch(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())
	m.ObserveDispatch(models.CategoryCollect, "functional", "error", 20*time.Millisecond)
	m.ObserveDispatch(models.CategoryCollect, "functional", "error", 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BlockDispatches.WithLabelValues("collect", "functional", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BlockDispatches.WithLabelValues("collect", "demo", "success")))
}

func TestUserChannel(t *testing.T) {
	assert.Equal(t, "user:seller-1:events", UserChannel("seller-1"))
}
