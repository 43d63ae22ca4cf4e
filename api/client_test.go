package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AYShukla05/smartkart-client/api"
)

func TestGetDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/products/", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count": 2}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, nil)
	var out struct {
		Count int `json:"count"`
	}
	require.NoError(t, client.Get(context.Background(), "/products/", &out))
	require.Equal(t, 2, out.Count)
}

func TestPostSendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "widget", body["name"])
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 7}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, nil)
	var out struct {
		ID int64 `json:"id"`
	}
	err := client.Post(context.Background(), "/products/", map[string]string{"name": "widget"}, &out)
	require.NoError(t, err)
	require.Equal(t, int64(7), out.ID)
}

func TestDetailErrorDecoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Authentication credentials were not provided."}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, nil)
	err := client.Get(context.Background(), "/users/me/", nil)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "Authentication credentials were not provided.", apiErr.Detail)
	require.True(t, api.IsUnauthorized(err))
	require.False(t, api.IsValidation(err))
}

func TestFieldErrorsDecoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"email": ["user with this email already exists."], "password": ["This password is too short.", "This password is too common."]}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, nil)
	err := client.Post(context.Background(), "/auth/register/", map[string]string{}, nil)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.True(t, api.IsValidation(err))
	require.Equal(t, []string{"user with this email already exists."}, apiErr.Fields["email"])
	require.Len(t, apiErr.Fields["password"], 2)
}

func TestSingleStringFieldErrorDecoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"quantity": "Must be a positive integer."}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, nil)
	err := client.Post(context.Background(), "/cart/items/", map[string]string{}, nil)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, []string{"Must be a positive integer."}, apiErr.Fields["quantity"])
}

func TestUnparseableErrorBodyKeepsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, nil)
	err := client.Get(context.Background(), "/products/", nil)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Empty(t, apiErr.Detail)
}

func TestConnectionFailureIsNetworkUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing is listening anymore

	client := api.NewClient(server.URL, nil)
	err := client.Get(context.Background(), "/products/", nil)
	require.ErrorIs(t, err, api.ErrNetworkUnavailable)
}

func TestNoContentSkipsDecode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := api.NewClient(server.URL, nil)
	var out struct{}
	require.NoError(t, client.Delete(context.Background(), "/cart/items/1/"))
	require.NoError(t, client.Get(context.Background(), "/cart/", &out))
}

func TestDecimalUnmarshal(t *testing.T) {
	var payload struct {
		Price    api.Decimal `json:"price"`
		Subtotal api.Decimal `json:"subtotal"`
		Discount api.Decimal `json:"discount"`
	}
	data := []byte(`{"price": "79.99", "subtotal": 159.98, "discount": null}`)
	require.NoError(t, json.Unmarshal(data, &payload))
	require.InDelta(t, 79.99, float64(payload.Price), 0.001)
	require.InDelta(t, 159.98, float64(payload.Subtotal), 0.001)
	require.Zero(t, float64(payload.Discount))

	var bad struct {
		Price api.Decimal `json:"price"`
	}
	require.Error(t, json.Unmarshal([]byte(`{"price": "not-a-number"}`), &bad))
}
