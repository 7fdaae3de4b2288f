package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/viewhistory"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// HistoryStore is the view history surface the controllers drive.
type HistoryStore interface {
	RecordView(ctx context.Context, product catalog.Product)
	Remove(ctx context.Context, id catalog.ID)
	Clear(ctx context.Context)
	Recent(limit int) []viewhistory.Entry
	Entries() []viewhistory.Entry
}

func nonNilEntries(entries []viewhistory.Entry) []viewhistory.Entry {
	if entries == nil {
		return []viewhistory.Entry{}
	}
	return entries
}

// HistoryList returns the whole history, or the newest ?limit entries.
func HistoryList(store HistoryStore, maxEntries int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") == "" {
			responses.WriteSuccess(w, nonNilEntries(store.Entries()))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", viewhistory.DefaultRecentLimit, 1, maxEntries)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nonNilEntries(store.Recent(limit)))
	}
}

func HistoryRecord(store HistoryStore, source ProductSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req productRef
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := req.resolve(r.Context(), source)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.RecordView(r.Context(), product)
		responses.WriteSuccessStatus(w, http.StatusCreated, nonNilEntries(store.Entries()))
	}
}

func HistoryRemove(store HistoryStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.Remove(r.Context(), id)
		responses.WriteSuccess(w, nonNilEntries(store.Entries()))
	}
}

func HistoryClear(store HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store.Clear(r.Context())
		responses.WriteSuccess(w, []viewhistory.Entry{})
	}
}
