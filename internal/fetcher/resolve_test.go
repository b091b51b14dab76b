package fetcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

const productPage = `<!doctype html>
<html><body>
  <div class="product">
    <span class="price"> 1 299,00 zł </span>
    <button id="add-to-cart">Dodaj do koszyka</button>
    <p class="stock-note">Produkt Niedostępny</p>
    <p class="info">Dostawa jutro</p>
  </div>
</body></html>`

func TestDocumentQueryCSSAndXPath(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument([]byte(productPage))
	require.NoError(t, err)

	price := doc.Query(".price")
	assert.True(t, price.Present)
	assert.Equal(t, "1 299,00 zł", price.Text)

	cart := doc.Query(`xpath=//button[@id="add-to-cart"]`)
	assert.True(t, cart.Present)
	assert.Equal(t, "Dodaj do koszyka", cart.Text)

	assert.False(t, doc.Query("#missing").Present)
	assert.False(t, doc.Query("").Present)
	assert.False(t, doc.Query("xpath=//[broken").Present)
}

func TestResolveUnavailabilityWins(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument([]byte(productPage))
	require.NoError(t, err)

	obs := NewResolver().Extract(doc, monitor.StoreRules{
		Price:          ".price",
		Availability:   "#add-to-cart",
		Unavailability: ".stock-note",
	})
	assert.False(t, obs.Available)
	assert.Equal(t, "1 299,00 zł", obs.PriceText)
}

func TestResolveUnavailabilityRequiresPhrase(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument([]byte(productPage))
	require.NoError(t, err)

	obs := NewResolver().Extract(doc, monitor.StoreRules{
		Price:          ".price",
		Availability:   "#add-to-cart",
		Unavailability: ".info",
	})
	assert.True(t, obs.Available, "unavailability element without out-of-stock phrase is ignored")
}

func TestResolveDefaultsToUnavailable(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument([]byte(productPage))
	require.NoError(t, err)

	obs := NewResolver().Extract(doc, monitor.DefaultRules)
	assert.Equal(t, monitor.Observation{Available: false, PriceText: monitor.NoPrice}, obs)
}

func TestResolveVisibility(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	hidden := Signals{Availability: Signal{Present: true, Visible: false}}
	assert.False(t, r.Resolve(hidden, true).Available)
	assert.True(t, r.Resolve(hidden, false).Available)
}

func TestResolverExtraPhrases(t *testing.T) {
	t.Parallel()

	r := NewResolver(" Sold Out ", "", "brak")
	assert.True(t, r.OutOfStock("Currently SOLD OUT"))
	assert.True(t, r.OutOfStock("Brak w magazynie"))
	assert.False(t, r.OutOfStock("In stock"))
	assert.Len(t, r.phrases, len(DefaultOutOfStockPhrases)+1)
}

func TestIsXPath(t *testing.T) {
	t.Parallel()

	assert.True(t, IsXPath(" xpath=//div"))
	assert.False(t, IsXPath(".price"))
}

func TestStoreLimiter(t *testing.T) {
	t.Parallel()

	var nilLimiter *StoreLimiter
	require.NoError(t, nilLimiter.Wait(context.Background(), "shop"))

	unlimited := NewStoreLimiter(0, 0)
	require.NoError(t, unlimited.Wait(context.Background(), "shop"))

	limited := NewStoreLimiter(0.001, 1)
	require.NoError(t, limited.Wait(context.Background(), "shop"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, limited.Wait(ctx, "shop"), "second token is not available before the deadline")
	require.NoError(t, limited.Wait(context.Background(), "other"), "stores have independent buckets")
}
