package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sellerops/internal/crypto"
	"sellerops/internal/ids"
	"sellerops/internal/models"
	"sellerops/internal/session"
	"sellerops/internal/store"
)

// countingStore records how many writes reach the store
type countingStore struct {
	*store.Memory
	upserts int
}

func (c *countingStore) UpsertBlockConfiguration(ctx context.Context, sess session.Context, cfg models.BlockConfiguration) error {
	c.upserts++
	return c.Memory.UpsertBlockConfiguration(ctx, sess, cfg)
}

func newBlockConfigService(t *testing.T) (*BlockConfigService, *countingStore, *Metrics) {
	t.Helper()
	key, err := crypto.GenerateMasterKey()
	require.NoError(t, err)
	cipher, err := crypto.NewCredentialCipher(key)
	require.NoError(t, err)

	st := &countingStore{Memory: store.NewMemory(ids.NewSequence("cfg"))}
	metrics := NewMetricsWithRegistry(prometheus.NewRegistry())
	return NewBlockConfigService(st, cipher, NewConfigCache(time.Minute), metrics), st, metrics
}

func TestUpsert_RejectsBeforeAnyStoreWrite(t *testing.T) {
	svc, st, _ := newBlockConfigService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input BlockConfigInput
		field string
	}{
		{"missing category", BlockConfigInput{Name: "Upload Sheet", ConfigData: json.RawMessage(`{}`)}, "category"},
		{"unknown category", BlockConfigInput{Category: "publish", Name: "Upload Sheet", ConfigData: json.RawMessage(`{}`)}, "category"},
		{"missing name", BlockConfigInput{Category: "collect", ConfigData: json.RawMessage(`{}`)}, "name"},
		{"option not in catalog", BlockConfigInput{Category: "collect", Name: "Generate Report", ConfigData: json.RawMessage(`{}`)}, "name"},
		{"missing config", BlockConfigInput{Category: "collect", Name: "Upload Sheet"}, "configData"},
		{"null config", BlockConfigInput{Category: "collect", Name: "Upload Sheet", ConfigData: json.RawMessage(`null`)}, "configData"},
		{"malformed config", BlockConfigInput{Category: "collect", Name: "Upload Sheet", ConfigData: json.RawMessage(`{"maxRows":`)}, "configData"},
		{"config not an object", BlockConfigInput{Category: "collect", Name: "Upload Sheet", ConfigData: json.RawMessage(`[1,2]`)}, "configData"},
		{"credentials not strings", BlockConfigInput{Category: "collect", Name: "Upload Sheet", ConfigData: json.RawMessage(`{}`), Credentials: json.RawMessage(`{"apiKey": 5}`)}, "credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upsert(ctx, seller, tt.input)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Zero(t, st.upserts)
}

func TestUpsert_EncryptsCredentialsAndResolveDecrypts(t *testing.T) {
	svc, st, metrics := newBlockConfigService(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, seller, BlockConfigInput{
		Category:     "act",
		Name:         "Update Prices",
		IsFunctional: true,
		ConfigData:   json.RawMessage(`{"marketplace":"amazon"}`),
		Credentials:  json.RawMessage(`{"apiKey":"sk-live-9"}`),
	})
	require.NoError(t, err)

	stored, err := st.ListBlockConfigurations(ctx, seller, models.CategoryAct)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotEqual(t, "sk-live-9", stored[0].Credentials["apiKey"])

	cfg, err := svc.Resolve(ctx, seller, models.CategoryAct, "Update Prices", "")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.True(t, cfg.IsFunctional)
	assert.Equal(t, "sk-live-9", cfg.Credentials["apiKey"])
	assert.Equal(t, "amazon", cfg.ConfigData["marketplace"])

	_, err = svc.Resolve(ctx, seller, models.CategoryAct, "Update Prices", "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BlockConfigCacheEvents.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BlockConfigCacheEvents.WithLabelValues("hit")))

	none, err := svc.Resolve(ctx, seller, models.CategoryThink, "Analyze Trends", "")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSetFunctional_TogglesAndInvalidatesCache(t *testing.T) {
	svc, _, _ := newBlockConfigService(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, seller, BlockConfigInput{
		Category: "think", Name: "Forecast Demand", ConfigData: json.RawMessage(`{"horizonDays":14}`),
	})
	require.NoError(t, err)

	before, err := svc.Resolve(ctx, seller, models.CategoryThink, "Forecast Demand", "")
	require.NoError(t, err)
	assert.False(t, before.IsFunctional)

	toggled, err := svc.SetFunctional(ctx, seller, models.CategoryThink, "Forecast Demand", "", true)
	require.NoError(t, err)
	assert.True(t, toggled.IsFunctional)
	assert.Equal(t, float64(14), toggled.ConfigData["horizonDays"])

	after, err := svc.Resolve(ctx, seller, models.CategoryThink, "Forecast Demand", "")
	require.NoError(t, err)
	assert.True(t, after.IsFunctional)

	created, err := svc.SetFunctional(ctx, seller, models.CategoryCollect, "Upload Sheet", "b1", true)
	require.NoError(t, err)
	assert.Equal(t, "b1", created.BlockID)

	_, err = svc.SetFunctional(ctx, seller, models.CategoryCollect, "Teleport", "", true)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	list, err := svc.List(ctx, seller, "")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestResolve_CachedConfigIsNotShared(t *testing.T) {
	svc, _, _ := newBlockConfigService(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, seller, BlockConfigInput{
		Category:     "act",
		Name:         "Update Prices",
		IsFunctional: true,
		ConfigData:   json.RawMessage(`{"marketplace":"amazon"}`),
		Credentials:  json.RawMessage(`{"apiKey":"sk-live-9"}`),
	})
	require.NoError(t, err)

	first, err := svc.Resolve(ctx, seller, models.CategoryAct, "Update Prices", "")
	require.NoError(t, err)
	first.ConfigData["marketplace"] = "ebay"
	first.Credentials["apiKey"] = "overwritten"

	second, err := svc.Resolve(ctx, seller, models.CategoryAct, "Update Prices", "")
	require.NoError(t, err)
	assert.Equal(t, "amazon", second.ConfigData["marketplace"])
	assert.Equal(t, "sk-live-9", second.Credentials["apiKey"])
}
