package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShippingOptionsBelowThreshold(t *testing.T) {
	options := shippingOptions(4999)

	require.Len(t, options, 3)
	assert.Equal(t, "standard", options[0].ID)
	assert.Equal(t, int64(599), options[0].PriceCents)
	assert.Equal(t, "Livraison Standard", options[0].Name)
	assert.Equal(t, int64(1299), options[1].PriceCents)
	assert.Equal(t, int64(1999), options[2].PriceCents)
}

func TestShippingOptionsFreeAboveThreshold(t *testing.T) {
	options := shippingOptions(FreeShippingThresholdCents)

	require.Len(t, options, 3)
	assert.Equal(t, int64(0), options[0].PriceCents)
	assert.Equal(t, "Livraison Standard Gratuite", options[0].Name)
	// Seule la standard devient gratuite
	assert.Equal(t, int64(1299), options[1].PriceCents)
	assert.Equal(t, int64(1999), options[2].PriceCents)
}

func TestShippingOptionByID(t *testing.T) {
	opt := shippingOptionByID("express", 1000)
	require.NotNil(t, opt)
	assert.Equal(t, "express", opt.ID)
	assert.Equal(t, 3, opt.EstimatedDays)

	// La gratuité suit le total panier
	std := shippingOptionByID("standard", 10000)
	require.NotNil(t, std)
	assert.Equal(t, int64(0), std.PriceCents)

	assert.Nil(t, shippingOptionByID("drone", 1000))
}
