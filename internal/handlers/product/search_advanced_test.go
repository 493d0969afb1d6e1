package product

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"vitacart_back_end/internal/models"
)

func sample(minCents int64, createdAt time.Time) searchResult {
	return searchResult{
		Product:       models.Product{CreatedAt: createdAt},
		MinPriceCents: minCents,
	}
}

func TestSortByPrice(t *testing.T) {
	now := time.Now()
	results := []searchResult{
		sample(2999, now),
		sample(999, now),
		sample(1999, now),
	}

	sortByPriceAsc(results)
	assert.Equal(t, int64(999), results[0].MinPriceCents)
	assert.Equal(t, int64(2999), results[2].MinPriceCents)

	sortByPriceDesc(results)
	assert.Equal(t, int64(2999), results[0].MinPriceCents)
	assert.Equal(t, int64(999), results[2].MinPriceCents)
}

func TestSortByNewest(t *testing.T) {
	now := time.Now()
	results := []searchResult{
		sample(0, now.Add(-48*time.Hour)),
		sample(0, now),
		sample(0, now.Add(-24*time.Hour)),
	}

	sortByNewest(results)
	assert.Equal(t, now, results[0].CreatedAt)
	assert.True(t, results[0].CreatedAt.After(results[1].CreatedAt))
	assert.True(t, results[1].CreatedAt.After(results[2].CreatedAt))
}

func TestContainsIgnoreCase(t *testing.T) {
	assert.True(t, containsIgnoreCase("Whey Protéine Isolate", "protéine"))
	assert.True(t, containsIgnoreCase("Créatine Monohydrate", "CRÉATINE"))
	assert.False(t, containsIgnoreCase("BCAA", "whey"))

	assert.True(t, containsTagsIgnoreCase([]string{"musculation", "récupération"}, "Récup"))
	assert.False(t, containsTagsIgnoreCase(nil, "whey"))
}
