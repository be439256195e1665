package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actapp/backend/internal/domain"
)

func TestClient_GetPrice(t *testing.T) {
	t.Run("parses simple price response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v3/simple/price", r.URL.Path)
			assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
			assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"bitcoin":{"usd":64123.5}}`)
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second, zerolog.Nop())
		quote, err := client.GetPrice(context.Background(), "BTC")
		require.NoError(t, err)
		assert.Equal(t, "BTC", quote.Symbol)
		assert.Equal(t, 64123.5, quote.Price)
		assert.Equal(t, "USD", quote.Currency)
	})

	t.Run("unknown symbol is rejected without a request", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second, zerolog.Nop())
		_, err := client.GetPrice(context.Background(), "DOGE")
		require.Error(t, err)
		assert.Equal(t, domain.KindUnsupportedAsset, domain.KindOf(err))
		assert.False(t, called)
	})

	t.Run("non-200 status is an upstream error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second, zerolog.Nop())
		_, err := client.GetPrice(context.Background(), "ETH")
		require.Error(t, err)
		assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
	})

	t.Run("missing price in response is an upstream error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second, zerolog.Nop())
		_, err := client.GetPrice(context.Background(), "USDT")
		require.Error(t, err)
		assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
	})
}
