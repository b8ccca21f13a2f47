package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averta/stocksync/internal/catalog/domain"
)

const stockItemsResponse = `<ENVELOPE>
  <BODY>
    <STOCKITEM NAME="Widget 5mm">
      <PARENT>Acme</PARENT>
      <BASEUNITS>nos</BASEUNITS>
      <CLOSINGBALANCE>12 nos</CLOSINGBALANCE>
    </STOCKITEM>
    <STOCKITEM NAME="Bolt M8">
      <BASEUNITS>pcs</BASEUNITS>
      <CLOSINGBALANCE>4</CLOSINGBALANCE>
    </STOCKITEM>
  </BODY>
</ENVELOPE>`

func newTestClient(endpoint string) *Client {
	return NewClient(ClientConfig{
		Endpoint: endpoint,
		Company:  "Test Co",
		Location: "Main",
	})
}

func TestFetchStockItems(t *testing.T) {
	ctx := context.Background()

	t.Run("first variant wins", func(t *testing.T) {
		var requests int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			assert.Equal(t, http.MethodPost, r.Method)
			assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "text/xml"))
			w.Write([]byte(stockItemsResponse))
		}))
		defer server.Close()

		outcome, err := newTestClient(server.URL).FetchStockItems(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, requests)
		assert.Equal(t, "item-collection", outcome.Variant)
		require.Len(t, outcome.Items, 2)

		first := outcome.Items[0]
		assert.Equal(t, "Widget 5mm", first.Name)
		require.NotNil(t, first.Brand)
		assert.Equal(t, "Acme", *first.Brand)
		require.NotNil(t, first.Quantity)
		assert.Equal(t, 12.0, *first.Quantity)
		require.NotNil(t, first.Unit)
		assert.Equal(t, "nos", *first.Unit)

		// Base units fill in when the balance string carries no unit
		second := outcome.Items[1]
		require.NotNil(t, second.Unit)
		assert.Equal(t, "pcs", *second.Unit)
	})

	t.Run("embedded error falls through to the next variant", func(t *testing.T) {
		var requests int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			if requests == 1 {
				w.Write([]byte(`<ENVELOPE><ERROR>Could not find collection</ERROR></ENVELOPE>`))
				return
			}
			w.Write([]byte(stockItemsResponse))
		}))
		defer server.Close()

		outcome, err := newTestClient(server.URL).FetchStockItems(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, requests)
		assert.Equal(t, "legacy-allstock", outcome.Variant)
	})

	t.Run("exhausted variants report source unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchStockItems(ctx)
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	})
}

func TestParseResponse(t *testing.T) {
	t.Run("counts invalid items", func(t *testing.T) {
		data := []byte(`<ENVELOPE>
  <STOCKITEM NAME="">
    <CLOSINGBALANCE>5</CLOSINGBALANCE>
  </STOCKITEM>
  <STOCKITEM NAME="Widget">
    <CLOSINGBALANCE>5</CLOSINGBALANCE>
  </STOCKITEM>
</ENVELOPE>`)

		parsed, err := parseResponse(data)
		require.NoError(t, err)
		assert.Equal(t, 2, parsed.Fetched)
		assert.Equal(t, 1, parsed.Invalid)
		assert.Len(t, parsed.Items, 1)
	})

	t.Run("line error marks the response failed", func(t *testing.T) {
		data := []byte(`<ENVELOPE><LINEERROR>Invalid collection name</LINEERROR></ENVELOPE>`)
		parsed, err := parseResponse(data)
		require.NoError(t, err)
		assert.NotEmpty(t, parsed.ErrorMsg)
	})

	t.Run("empty document is an error", func(t *testing.T) {
		_, err := parseResponse([]byte(`<ENVELOPE></ENVELOPE>`))
		assert.Error(t, err)
	})
}

func TestEnvelope(t *testing.T) {
	body, err := RequestVariant{Name: "item-collection", Collection: "StockItems", Version: 2}.Envelope("Test Co", "Main")
	require.NoError(t, err)

	text := string(body)
	for _, want := range []string{"<ENVELOPE>", "<REQTYPE>EXPORT</REQTYPE>", "<ID>StockItems</ID>", "<COMPANY>Test Co</COMPANY>"} {
		assert.Contains(t, text, want)
	}
}
