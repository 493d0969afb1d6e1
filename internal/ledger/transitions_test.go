package ledger

import (
	"testing"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"

	"vitacart_back_end/internal/models"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]string{
		{models.ItemProcessing, models.ItemShipped},
		{models.ItemProcessing, models.ItemCancelled},
		{models.ItemShipped, models.ItemDelivered},
		{models.ItemShipped, models.ItemCancelled},
		{models.ItemDelivered, models.ItemReturnRequested},
		{models.ItemDelivered, models.ItemCancelled},
		{models.ItemReturnRequested, models.ItemReturned},
		{models.ItemReturnRequested, models.ItemDelivered},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s → %s devrait passer", tr[0], tr[1])
	}

	forbidden := [][2]string{
		{models.ItemProcessing, models.ItemDelivered},
		{models.ItemProcessing, models.ItemReturned},
		{models.ItemShipped, models.ItemProcessing},
		{models.ItemDelivered, models.ItemShipped},
		{models.ItemDelivered, models.ItemReturned},
		{models.ItemCancelled, models.ItemProcessing},
		{models.ItemCancelled, models.ItemShipped},
		{models.ItemReturned, models.ItemDelivered},
	}
	for _, tr := range forbidden {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s → %s devrait être refusé", tr[0], tr[1])
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(models.ItemCancelled))
	assert.True(t, IsTerminal(models.ItemReturned))
	assert.False(t, IsTerminal(models.ItemProcessing))
	assert.False(t, IsTerminal(models.ItemShipped))
	assert.False(t, IsTerminal(models.ItemDelivered))
	assert.False(t, IsTerminal(models.ItemReturnRequested))
}

func TestCheckTransitionAdminOverride(t *testing.T) {
	// L'override permet de sauter des étapes...
	assert.NoError(t, checkTransition(models.ItemProcessing, models.ItemDelivered, true))
	assert.NoError(t, checkTransition(models.ItemDelivered, models.ItemShipped, true))

	// ...mais jamais de sortir d'un état terminal.
	assert.Error(t, checkTransition(models.ItemCancelled, models.ItemProcessing, true))
	assert.Error(t, checkTransition(models.ItemReturned, models.ItemDelivered, true))
}

func TestCheckTransitionUnknownStatus(t *testing.T) {
	err := checkTransition(models.ItemProcessing, "refunded", false)
	assert.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestDeriveOrderStatus(t *testing.T) {
	items := func(statuses ...string) []models.OrderItem {
		out := make([]models.OrderItem, len(statuses))
		for i, s := range statuses {
			out[i] = models.OrderItem{ID: gocql.TimeUUID(), Status: s}
		}
		return out
	}

	tests := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"tous en préparation", []string{models.ItemProcessing, models.ItemProcessing}, models.ItemProcessing},
		{"un expédié domine", []string{models.ItemProcessing, models.ItemShipped}, models.ItemShipped},
		{"un livré domine tout", []string{models.ItemShipped, models.ItemDelivered, models.ItemCancelled}, models.ItemDelivered},
		{"retour demandé compte comme livré", []string{models.ItemCancelled, models.ItemReturnRequested}, models.ItemDelivered},
		{"tous annulés", []string{models.ItemCancelled, models.ItemCancelled}, models.ItemCancelled},
		{"tous retournés", []string{models.ItemReturned, models.ItemReturned}, models.ItemReturned},
		{"mélange annulé et retourné", []string{models.ItemCancelled, models.ItemReturned}, models.ItemCancelled},
		{"actif restant malgré annulations", []string{models.ItemCancelled, models.ItemProcessing}, models.ItemProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveOrderStatus(items(tt.statuses...)))
		})
	}
}
