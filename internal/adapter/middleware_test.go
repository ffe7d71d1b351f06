package adapter_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshbtc/travelcheck-sub000/internal/adapter"
	adapterstore "github.com/eshbtc/travelcheck-sub000/internal/adapter/store"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
)

func TestRequireKey(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := adapter.NewService(adapterstore.NewInMemory())

	adp, key, err := service.Register(context.Background(), "passport-ocr")
	require.NoError(t, err)

	var seenAdapterID id.AdapterID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAdapterID = requestcontext.AdapterID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	protected := adapter.RequireKey(service, logger)(next)

	t.Run("valid key passes and sets the adapter principal", func(t *testing.T) {
		seenAdapterID = id.AdapterID{}
		req := httptest.NewRequest(http.MethodPost, "/evidence/batch", nil)
		req.Header.Set(adapter.KeyHeader, key)

		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, adp.ID, seenAdapterID)
	})

	t.Run("missing key is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/evidence/batch", nil)

		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong secret is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/evidence/batch", nil)
		req.Header.Set(adapter.KeyHeader, adapter.ComposeKey(adp.ID, "wrong"))

		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
