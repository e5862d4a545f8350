package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pokemart/internal/store"
)

func TestBrowse_Text(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "--config", cfg, "browse", "--max", "12")
	require.NoError(t, err)
	assert.Contains(t, out, "AVAILABLE")
	assert.Contains(t, out, "Pokemon-1 ")
	assert.Contains(t, out, "Pokemon-3 ")
	assert.NotContains(t, out, "Pokemon-4 ")
	assert.Contains(t, out, "3 item(s)")
}

func TestBrowse_JSON(t *testing.T) {
	cfg := writeConfig(t)
	_, err := execute(t, "--config", cfg, "cart", "add", "2", "4")
	require.NoError(t, err)

	type item struct {
		ID        int `json:"id"`
		InCart    int `json:"inCart"`
		Available int `json:"available"`
	}
	resp, err := executeJSON[struct {
		Items []item `json:"items"`
		Count int    `json:"count"`
	}](t, "--config", cfg, "browse", "--search", "pokemon-2", "--sort", "id-desc")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	require.Equal(t, 2, resp.Data.Count)
	assert.Equal(t, item{ID: 20, InCart: 0, Available: 24}, resp.Data.Items[0])
	assert.Equal(t, item{ID: 2, InCart: 4, Available: 2}, resp.Data.Items[1])
}

func TestBrowse_NoMatches(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "--config", cfg, "browse", "--type", "dragon")
	require.NoError(t, err)
	assert.Contains(t, out, "No items match.")
}

func TestBrowse_InvalidPrice(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "--config", cfg, "browse", "--min", "cheap")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestBrowse_CatalogLoadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	cfg := writeConfig(t, func(doc map[string]map[string]any) {
		doc["catalog"] = map[string]any{"source": "pokeapi", "base_url": srv.URL, "timeout": "5s"}
	})

	resp, err := executeJSON[any](t, "--config", cfg, "browse")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCatalogLoad, resp.Error.Code)
}

func TestTypes(t *testing.T) {
	cfg := writeConfig(t)

	resp, err := executeJSON[TypesResult](t, "--config", cfg, "types")
	require.NoError(t, err)
	assert.False(t, resp.Data.Fallback)
	assert.Contains(t, resp.Data.Types, "normal")
	assert.Contains(t, resp.Data.Types, "dragon")
}

func TestConfigErrors(t *testing.T) {
	resp, err := executeJSON[any](t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "cart", "show")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)

	cfg := writeConfig(t, func(doc map[string]map[string]any) {
		doc["oscillator"] = map[string]any{"probabilty": 1}
	})
	_, err = execute(t, "--config", cfg, "cart", "show")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCart_PersistsAcrossInvocations(t *testing.T) {
	cfg := writeConfig(t)

	resp, err := executeJSON[cartData](t, "--config", cfg, "cart", "add", "3", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Data.Count)
	assert.Equal(t, "24", resp.Data.Total)
	assert.Equal(t, "Added 2 × #3", resp.Data.Action)

	resp, err = executeJSON[cartData](t, "--config", cfg, "cart", "show")
	require.NoError(t, err)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, 3, resp.Data.Items[0].ID)
	assert.Equal(t, 2, resp.Data.Items[0].Quantity)

	resp, err = executeJSON[cartData](t, "--config", cfg, "cart", "update", "3", "4")
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Data.Count)

	resp, err = executeJSON[cartData](t, "--config", cfg, "cart", "remove", "3")
	require.NoError(t, err)
	assert.Zero(t, resp.Data.Count)

	resp, err = executeJSON[cartData](t, "--config", cfg, "cart", "show")
	require.NoError(t, err)
	assert.Empty(t, resp.Data.Items)
}

func TestCart_InsufficientStock(t *testing.T) {
	cfg := writeConfig(t)
	_, err := execute(t, "--config", cfg, "cart", "add", "3", "4")
	require.NoError(t, err)

	resp, err := executeJSON[any](t, "--config", cfg, "cart", "add", "3", "5")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInsufficientStock, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 3, details["available"])

	// The rejected add left the cart untouched.
	show, err := executeJSON[cartData](t, "--config", cfg, "cart", "show")
	require.NoError(t, err)
	assert.Equal(t, 4, show.Data.Count)
}

func TestCart_UpdateAboveStock(t *testing.T) {
	cfg := writeConfig(t)
	_, err := execute(t, "--config", cfg, "cart", "add", "1")
	require.NoError(t, err)

	out, err := execute(t, "--config", cfg, "cart", "update", "1", "6")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E101]")
	assert.Contains(t, out, "5 in stock, 1 in cart, 4 more can be added.")
}

func TestCart_AddHugeQuantityOnExistingEntry(t *testing.T) {
	cfg := writeConfig(t)
	_, err := execute(t, "--config", cfg, "cart", "add", "1")
	require.NoError(t, err)

	resp, err := executeJSON[any](t, "--config", cfg, "cart", "add", "1", "9223372036854775807")
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInsufficientStock, resp.Error.Code)

	show, err := executeJSON[cartData](t, "--config", cfg, "cart", "show")
	require.NoError(t, err)
	assert.Equal(t, 1, show.Data.Count)
}

func TestCart_Rejected(t *testing.T) {
	cfg := writeConfig(t)

	tests := []struct {
		name string
		args []string
		code string
		exit int
	}{
		{"non-numeric id", []string{"cart", "add", "pikachu"}, ErrCodeInvalidArg, ExitCommandError},
		{"zero id", []string{"cart", "remove", "0"}, ErrCodeInvalidArg, ExitCommandError},
		{"non-numeric quantity", []string{"cart", "update", "1", "lots"}, ErrCodeInvalidArg, ExitCommandError},
		{"unknown item", []string{"cart", "add", "999"}, ErrCodeUnknownItem, ExitFailure},
		{"zero quantity", []string{"cart", "add", "1", "0"}, ErrCodeInvalidQuantity, ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := executeJSON[any](t, append([]string{"--config", cfg}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.exit, GetExitCode(err))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestCart_TextOutput(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "--config", cfg, "cart", "add", "1", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Added 2 × #1")
	assert.Contains(t, out, "Pokemon-1")
	assert.Contains(t, out, "2 item(s), total $20.00")

	out, err = execute(t, "--config", cfg, "cart", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Cart cleared")
	assert.Contains(t, out, "Cart is empty.")
}

func TestCart_CorruptRecordStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cart.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Put(context.Background(), "pokemon_cart", []byte("{not json")))
	require.NoError(t, st.Close())

	cfg := writeConfig(t, func(doc map[string]map[string]any) {
		doc["store"]["path"] = dbPath
	})

	resp, err := executeJSON[cartData](t, "--config", cfg, "cart", "show")
	require.NoError(t, err)
	assert.Zero(t, resp.Data.Count)

	st, err = store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	_, err = st.Get(context.Background(), "pokemon_cart")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCart_BadgerDriver(t *testing.T) {
	badgerDir := filepath.Join(t.TempDir(), "badger")
	cfg := writeConfig(t, func(doc map[string]map[string]any) {
		doc["store"] = map[string]any{"driver": "badger", "path": badgerDir}
	})

	_, err := execute(t, "--config", cfg, "cart", "add", "5", "3")
	require.NoError(t, err)

	resp, err := executeJSON[cartData](t, "--config", cfg, "cart", "show")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Data.Count)
}

func TestCheckout_Approved(t *testing.T) {
	cfg := writeConfig(t)
	_, err := execute(t, "--config", cfg, "cart", "add", "1", "2")
	require.NoError(t, err)

	out, err := execute(t, "--config", cfg, "checkout",
		"--name", "Ash", "--email", "ash@pallet.town",
		"--card", "4111 1111 1111 1111", "--expiry", "08/27", "--cvv", "123")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Payment approved")
	assert.Contains(t, out, "Items: 2")
	assert.Contains(t, out, "Total: $20.00")

	resp, err := executeJSON[cartData](t, "--config", cfg, "cart", "show")
	require.NoError(t, err)
	assert.Zero(t, resp.Data.Count)
}

func TestCheckout_Failures(t *testing.T) {
	payment := []string{"--name", "Ash", "--email", "ash@pallet.town",
		"--card", "4111 1111 1111 1111", "--expiry", "08/27", "--cvv", "123"}

	t.Run("invalid payment", func(t *testing.T) {
		cfg := writeConfig(t)
		resp, err := executeJSON[any](t, "--config", cfg, "checkout", "--name", "Ash", "--cvv", "1")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Equal(t, ErrCodePaymentInvalid, resp.Error.Code)
	})

	t.Run("empty cart", func(t *testing.T) {
		cfg := writeConfig(t)
		resp, err := executeJSON[any](t, append([]string{"--config", cfg, "checkout"}, payment...)...)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Equal(t, ErrCodeEmptyCart, resp.Error.Code)
	})

	t.Run("declined keeps cart", func(t *testing.T) {
		cfg := writeConfig(t, func(doc map[string]map[string]any) {
			doc["checkout"]["success_rate"] = 0
		})
		_, err := execute(t, "--config", cfg, "cart", "add", "1")
		require.NoError(t, err)

		resp, err := executeJSON[any](t, append([]string{"--config", cfg, "checkout"}, payment...)...)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Equal(t, ErrCodePaymentDeclined, resp.Error.Code)

		show, err := executeJSON[cartData](t, "--config", cfg, "cart", "show")
		require.NoError(t, err)
		assert.Equal(t, 1, show.Data.Count)
	})
}
