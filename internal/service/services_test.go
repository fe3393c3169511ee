package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lunara/internal/catalog"
	"lunara/internal/config"
	"lunara/internal/database"
)

func TestLoadCatalog(t *testing.T) {
	shop, templates, err := LoadCatalog()
	require.NoError(t, err)

	item, ok := shop.Item("night-owl")
	require.True(t, ok)
	assert.Equal(t, 10, item.Cost)
	assert.NotEmpty(t, templates)
}

func TestNewServicesUsesSuppliedCatalog(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	shop, err := catalog.ParseShop([]byte(`
items:
  - id: comet-pin
    name: Comet Pin
    emoji: "☄️"
    kind: avatar
    cost: 4
`))
	require.NoError(t, err)
	_, templates, err := LoadCatalog()
	require.NoError(t, err)

	services, err := NewServices(db, Options{
		SessionDuration: time.Hour,
		Moons:           config.DefaultMoonRules(),
		Shop:            shop,
		Templates:       templates,
	})
	require.NoError(t, err)

	items := services.Shop.Catalog()
	require.Len(t, items, 1)
	assert.Equal(t, "comet-pin", items[0].ID)

	defaults, err := NewServices(db, Options{SessionDuration: time.Hour, Moons: config.DefaultMoonRules()})
	require.NoError(t, err)
	assert.Greater(t, len(defaults.Shop.Catalog()), 1)
}
