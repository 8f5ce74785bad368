package rewards_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pointflow/rewards"
)

func ids(promos []rewards.Promo) []string {
	out := make([]string, len(promos))
	for i, p := range promos {
		out[i] = p.ID
	}
	return out
}

// =============================================================================
// CATALOG LOOKUPS
// =============================================================================

func TestDefaultCatalog_Options(t *testing.T) {
	c := rewards.DefaultCatalog()
	require.NoError(t, c.Validate())

	vip, err := c.Option("vipUpgrade")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), vip.PointsCost)
	assert.False(t, vip.Affordable(1250))

	_, err = c.Option("nope")
	assert.ErrorIs(t, err, rewards.ErrUnknownOption)

	_, err = c.Promo("nope")
	assert.ErrorIs(t, err, rewards.ErrUnknownPromo)
}

func TestPromo_Label(t *testing.T) {
	p, err := rewards.DefaultCatalog().Promo("nike-20off")
	require.NoError(t, err)
	assert.Equal(t, "Nike - $20 Off Next Purchase", p.Label())
}

// =============================================================================
// FILTERING
// =============================================================================

func TestFilterPromos_Category(t *testing.T) {
	// GIVEN: The demo catalog
	// WHEN: Filtering by F&B
	// THEN: Only the four F&B promos, in catalog order

	got := rewards.DefaultCatalog().FilterPromos(rewards.CategoryFood, "")
	assert.Equal(t, []string{"starbucks-bogo", "mcd-fries", "kfc-bucket", "bk-whopper"}, ids(got))
}

func TestFilterPromos_SearchBrandOrTitle(t *testing.T) {
	c := rewards.DefaultCatalog()

	assert.Equal(t, []string{"nike-20off"}, ids(c.FilterPromos(rewards.CategoryAll, "NIKE")))
	assert.Equal(t, []string{"uniqlo-10off"}, ids(c.FilterPromos(rewards.CategoryFashion, "storewide")))
	assert.Empty(t, c.FilterPromos(rewards.CategoryFood, "nike"))
	assert.NotNil(t, c.FilterPromos(rewards.CategoryFood, "nike"))
	assert.Len(t, c.FilterPromos(rewards.CategoryAll, ""), 9)
}

func TestParseCategory(t *testing.T) {
	cat, err := rewards.ParseCategory("")
	require.NoError(t, err)
	assert.Equal(t, rewards.CategoryAll, cat)

	cat, err = rewards.ParseCategory("Fashion")
	require.NoError(t, err)
	assert.Equal(t, rewards.CategoryFashion, cat)

	_, err = rewards.ParseCategory("Travel")
	assert.ErrorIs(t, err, rewards.ErrInvalidCategory)
}

// =============================================================================
// TOML LOADING
// =============================================================================

const sampleCatalog = `
[[options]]
id = "freeCoffee"
title = "Free Coffee"
points_cost = 300
available = true

[[promos]]
id = "starbucks-bogo"
brand = "Starbucks"
category = "F&B"
title = "Buy 1 Get 1 Free Latte"
points_required = 500
`

func TestParseCatalog(t *testing.T) {
	c, err := rewards.ParseCatalog(sampleCatalog)
	require.NoError(t, err)

	require.Len(t, c.Options, 1)
	assert.True(t, c.Options[0].Available)
	require.Len(t, c.Promos, 1)
	assert.Equal(t, rewards.CategoryFood, c.Promos[0].Category)
}

func TestParseCatalog_Invalid(t *testing.T) {
	_, err := rewards.ParseCatalog(`
[[options]]
id = "a"
points_cost = 0

[[options]]
id = "a"
points_cost = 10

[[promos]]
id = "p"
category = "Travel"
points_required = 5
`)
	require.Error(t, err)
	assert.ErrorIs(t, err, rewards.ErrInvalidCategory)
	assert.Contains(t, err.Error(), "points_cost must be positive")
	assert.Contains(t, err.Error(), `duplicate id "a"`)
}

func TestParseCatalog_RejectsUnknownKeys(t *testing.T) {
	// GIVEN: A catalog with a misspelled promo key
	// WHEN: Parsing it from text
	// THEN: The key is reported instead of silently dropped

	_, err := rewards.ParseCatalog(sampleCatalog + "points_requred = 5\n")
	require.Error(t, err)
	assert.ErrorContains(t, err, "unknown keys")
	assert.ErrorContains(t, err, "points_requred")
}

func TestLoadCatalog(t *testing.T) {
	c, err := rewards.LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, c.Options, 3)

	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))
	c, err = rewards.LoadCatalog(path)
	require.NoError(t, err)
	assert.Len(t, c.Promos, 1)

	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog+"\nextra = 1\n"), 0o600))
	_, err = rewards.LoadCatalog(path)
	assert.ErrorContains(t, err, "unknown keys")
}
