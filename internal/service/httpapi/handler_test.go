package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cart/internal/catalog"
	"github.com/vladislavdragonenkov/cart/internal/domain"
	"github.com/vladislavdragonenkov/cart/internal/engine"
	"github.com/vladislavdragonenkov/cart/internal/service/httpapi"
	"github.com/vladislavdragonenkov/cart/internal/storage/memory"
)

type cartResponse struct {
	Lines  []domain.Line `json:"lines"`
	Totals domain.Totals `json:"totals"`
}

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

func newTestServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()

	e := engine.New(context.Background(), memory.NewSnapshotStore(), "bigsmash_cart",
		engine.WithLogger(loggerForTests()),
	)
	handler := httpapi.NewHandler(e, catalog.NewMemoryCatalog(), loggerForTests())

	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)
	return server, e
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, cartResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var cart cartResponse
	if resp.Header.Get("Content-Type") == "application/json" {
		_ = json.NewDecoder(resp.Body).Decode(&cart)
	}
	return resp, cart
}

func TestAddLineThroughAPI(t *testing.T) {
	server, _ := newTestServer(t)

	resp, cart := doJSON(t, http.MethodPost, server.URL+"/cart/lines", map[string]any{
		"slug":     "smash-classique",
		"quantity": 2,
		"selection": map[string]any{
			"sauces": map[string]any{
				"choices": map[string]any{
					"Ketchup": map[string]any{"price": 0, "quantity": 1},
				},
			},
		},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, cart.Lines, 1)
	require.Equal(t, int64(1), cart.Lines[0].ProductID, "product must be resolved through the catalog")
	require.Equal(t, 2, cart.Lines[0].Quantity)
	require.InDelta(t, 6.0, cart.Lines[0].UnitBasePrice, 1e-9)
	require.Equal(t, 2, cart.Totals.ItemCount)
	require.InDelta(t, 12.0, cart.Totals.TotalPrice, 1e-9)
}

func TestAddLineMergesOnRepeat(t *testing.T) {
	server, _ := newTestServer(t)
	body := map[string]any{"slug": "smash-classique", "quantity": 1}

	doJSON(t, http.MethodPost, server.URL+"/cart/lines", body)
	_, cart := doJSON(t, http.MethodPost, server.URL+"/cart/lines", body)

	require.Len(t, cart.Lines, 1)
	require.Equal(t, 2, cart.Lines[0].Quantity)
}

func TestAddLineUnknownSlugIsPermissive(t *testing.T) {
	server, _ := newTestServer(t)

	resp, cart := doJSON(t, http.MethodPost, server.URL+"/cart/lines", map[string]any{
		"slug":     "mystery-item",
		"quantity": 1,
	})

	// Неизвестный продукт — баг вызывающей стороны, но не runtime-ошибка:
	// база резолвится в 0.
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, cart.Lines, 1)
	require.Zero(t, cart.Lines[0].UnitBasePrice)
}

func TestAddLineWithOverrideForVariantProduct(t *testing.T) {
	server, _ := newTestServer(t)

	_, cart := doJSON(t, http.MethodPost, server.URL+"/cart/lines", map[string]any{
		"slug":                "frites",
		"quantity":            1,
		"base_price_override": 3.0,
	})

	require.Len(t, cart.Lines, 1)
	require.InDelta(t, 3.0, cart.Lines[0].UnitBasePrice, 1e-9)
	require.InDelta(t, 3.0, cart.Totals.TotalPrice, 1e-9)
}

func TestAddLineSizePricedProduct(t *testing.T) {
	server, _ := newTestServer(t)

	// Тако из каталога (без собственной цены): база берётся из выбора
	// размера и не учитывается второй раз как наценка.
	_, cart := doJSON(t, http.MethodPost, server.URL+"/cart/lines", map[string]any{
		"slug":     "tacos",
		"quantity": 1,
		"selection": map[string]any{
			"size": map[string]any{
				"choice": map[string]any{"name": "1 viande", "price": 7.0},
			},
		},
	})

	require.Len(t, cart.Lines, 1)
	require.InDelta(t, 7.0, cart.Lines[0].UnitBasePrice, 1e-9)
	require.InDelta(t, 7.0, cart.Totals.TotalPrice, 1e-9)
}

func TestAddLineValidation(t *testing.T) {
	server, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/cart/lines", map[string]any{
		"quantity": 1,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIncreaseDecreaseRemoveFlow(t *testing.T) {
	server, _ := newTestServer(t)

	doJSON(t, http.MethodPost, server.URL+"/cart/lines", map[string]any{"slug": "smash-bacon", "quantity": 1})

	_, cart := doJSON(t, http.MethodPost, server.URL+"/cart/lines/smash-bacon/increase", nil)
	require.Equal(t, 2, cart.Totals.ItemCount)

	_, cart = doJSON(t, http.MethodPost, server.URL+"/cart/lines/smash-bacon/decrease", nil)
	require.Equal(t, 1, cart.Totals.ItemCount)

	// decrease при количестве 1 удаляет позицию
	_, cart = doJSON(t, http.MethodPost, server.URL+"/cart/lines/smash-bacon/decrease", nil)
	require.Empty(t, cart.Lines)

	// Лишний decrease — no-op, не ошибка.
	resp, cart := doJSON(t, http.MethodPost, server.URL+"/cart/lines/smash-bacon/decrease", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, cart.Lines)
}

func TestRemoveAndClear(t *testing.T) {
	server, _ := newTestServer(t)

	doJSON(t, http.MethodPost, server.URL+"/cart/lines", map[string]any{"slug": "smash-classique", "quantity": 1})
	doJSON(t, http.MethodPost, server.URL+"/cart/lines", map[string]any{"slug": "tacos", "quantity": 1, "base_price_override": 7.0})

	_, cart := doJSON(t, http.MethodDelete, server.URL+"/cart/lines/smash-classique", nil)
	require.Len(t, cart.Lines, 1)
	require.Equal(t, "tacos", cart.Lines[0].Slug)

	_, cart = doJSON(t, http.MethodDelete, server.URL+"/cart", nil)
	require.Empty(t, cart.Lines)
	require.Zero(t, cart.Totals.ItemCount)
}

func TestQuantityEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	doJSON(t, http.MethodPost, server.URL+"/cart/lines", map[string]any{"slug": "smash-classique", "quantity": 2})
	doJSON(t, http.MethodPost, server.URL+"/cart/lines", map[string]any{
		"slug":     "smash-classique",
		"quantity": 1,
		"selection": map[string]any{
			"sauces": map[string]any{
				"choice": map[string]any{"name": "Smoky", "price": 0.5},
			},
		},
	})

	resp, err := http.Get(server.URL + "/cart/quantity?slug=smash-classique")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Slug     string `json:"slug"`
		Quantity int    `json:"quantity"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 3, body.Quantity, "quantity sums across all variants of the slug")

	resp, err = http.Get(server.URL + "/cart/quantity")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetCart(t *testing.T) {
	server, _ := newTestServer(t)

	doJSON(t, http.MethodPost, server.URL+"/cart/lines", map[string]any{"slug": "smash-classique", "quantity": 1})

	resp, cart := doJSON(t, http.MethodGet, server.URL+"/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, cart.Lines, 1)
	require.Equal(t, 1, cart.Totals.ItemCount)
}

func TestProductEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/products")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var products []domain.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	require.NotEmpty(t, products)

	resp, err = http.Get(server.URL + "/products/tacos")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tacos domain.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tacos))
	require.Nil(t, tacos.Price)
	require.NotEmpty(t, tacos.OptionGroups)

	resp, err = http.Get(server.URL + "/products/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
