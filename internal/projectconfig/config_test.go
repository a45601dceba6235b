package projectconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDatafile = `{
	"version": "4",
	"accountId": "12001",
	"projectId": "111001",
	"revision": "42",
	"anonymizeIP": true,
	"botFiltering": false,
	"experiments": [
		{
			"id": "exp_1",
			"key": "cmab_rule",
			"layerId": "layer_1",
			"status": "Running",
			"variations": [{"id": "var_a", "key": "a", "featureEnabled": true}],
			"cmab": {"attributeIds": ["attr_1"], "trafficAllocation": 10000}
		}
	],
	"attributes": [{"id": "attr_1", "key": "age"}],
	"events": [{"id": "ev_1", "key": "purchase", "experimentIds": ["exp_1"]}]
}`

func TestFromJSON_IndexesEntities(t *testing.T) {
	cfg, err := FromJSON([]byte(testDatafile))
	require.NoError(t, err)

	assert.Equal(t, "12001", cfg.AccountID())
	assert.Equal(t, "111001", cfg.ProjectID())
	assert.Equal(t, "42", cfg.Revision())
	assert.True(t, cfg.AnonymizeIP())
	require.NotNil(t, cfg.BotFiltering())
	assert.False(t, *cfg.BotFiltering())

	exp, ok := cfg.ExperimentByID("exp_1")
	require.True(t, ok)
	assert.True(t, exp.IsCmab())
	assert.Equal(t, []string{"attr_1"}, exp.Cmab.AttributeIDs)

	byKey, ok := cfg.ExperimentByKey("cmab_rule")
	require.True(t, ok)
	assert.Same(t, exp, byKey)

	variation, ok := exp.VariationByID("var_a")
	require.True(t, ok)
	assert.Equal(t, "a", variation.Key)

	attr, ok := cfg.AttributeByID("attr_1")
	require.True(t, ok)
	assert.Equal(t, "age", attr.Key)

	ev, ok := cfg.EventByKey("purchase")
	require.True(t, ok)
	assert.Equal(t, "ev_1", ev.ID)

	_, ok = cfg.ExperimentByID("missing")
	assert.False(t, ok)
}

func TestFromJSON_InvalidJSON(t *testing.T) {
	_, err := FromJSON([]byte(`{invalid}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal datafile")
}

func TestFromJSON_MissingRevision(t *testing.T) {
	_, err := FromJSON([]byte(`{"projectId": "1"}`))
	assert.Error(t, err)
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datafile.json")
	require.NoError(t, os.WriteFile(path, []byte(testDatafile), 0o600))

	cfg, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "42", cfg.Revision())

	_, err = FromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
