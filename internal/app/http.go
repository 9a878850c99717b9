// Package app exposes the favorites engine over HTTP. The handlers are thin:
// parse and validate, call the store, translate domain errors to statuses.
package app

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"favorites/api/internal/permission"
	"favorites/api/internal/store"
)

// favoritesStore is the surface of the engine the HTTP layer consumes.
type favoritesStore interface {
	CreateList(ctx context.Context, input store.NewList) (store.List, error)
	GetList(ctx context.Context, listID string, opts store.GetListOptions) (store.ListWithCount, error)
	UpdateList(ctx context.Context, id, owner string, update store.ListUpdate) (store.List, error)
	DeleteList(ctx context.Context, id, owner string) error
	GetLists(ctx context.Context, opts store.GetListsOptions) ([]store.ListWithCount, int, error)
	CreateAccess(ctx context.Context, listID string, perm permission.Permission, grantee permission.Grantee, requestingOwner string) error
	DeleteAccess(ctx context.Context, listID string, perm permission.Permission, grantee permission.Grantee, requestingOwner string) error
	AddPickToList(ctx context.Context, listID, itemID, userAddress string) (store.Pick, error)
	DeletePickInList(ctx context.Context, listID, itemID, userAddress string) error
	GetPicksByListID(ctx context.Context, listID string, opts store.GetPicksOptions) ([]store.Pick, int, error)
	GetPicksByItemID(ctx context.Context, itemID string, limit, offset int) ([]string, int, error)
	GetPickStats(ctx context.Context, itemID string, opts store.PickStatsOptions) (store.PickStats, error)
	Ping(ctx context.Context) error
}

type HTTPServer struct {
	store      favoritesStore
	log        zerolog.Logger
	corsOrigin string
}

func NewHTTPServer(dataStore favoritesStore, log zerolog.Logger, corsOrigin string) *HTTPServer {
	return &HTTPServer{store: dataStore, log: log, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/picks/{itemId}", s.handleGetPicksByItem)
		r.Get("/picks/{itemId}/stats", s.handleGetPickStats)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUserAddress)
			r.Get("/lists", s.handleGetLists)
			r.Post("/lists", s.handleCreateList)
			r.Get("/lists/{id}", s.handleGetList)
			r.Put("/lists/{id}", s.handleUpdateList)
			r.Delete("/lists/{id}", s.handleDeleteList)
			r.Get("/lists/{id}/picks", s.handleGetPicksByList)
			r.Post("/lists/{id}/picks", s.handleCreatePick)
			r.Delete("/lists/{id}/picks/{itemId}", s.handleDeletePick)
			r.Post("/lists/{id}/access", s.handleCreateAccess)
			r.Delete("/lists/{id}/access", s.handleDeleteAccess)
		})
	})

	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, map[string]any{"alive": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		writeMessage(w, r, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{"ready": true})
}

func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapped, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *HTTPServer) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-Address")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type contextKey string

const userAddressKey contextKey = "userAddress"

var addressPattern = regexp.MustCompile(`^0x[a-f0-9]{40}$`)

// requireUserAddress reads the already-authenticated caller identity from
// the header set by the upstream auth layer.
func (s *HTTPServer) requireUserAddress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := strings.ToLower(r.Header.Get("X-User-Address"))
		if !addressPattern.MatchString(address) {
			writeMessage(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), userAddressKey, address)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userAddress(r *http.Request) string {
	address, _ := r.Context().Value(userAddressKey).(string)
	return address
}

// optionalUserAddress returns the caller identity when present and valid,
// without rejecting anonymous requests.
func optionalUserAddress(r *http.Request) string {
	address := strings.ToLower(r.Header.Get("X-User-Address"))
	if !addressPattern.MatchString(address) {
		return ""
	}
	return address
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, map[string]any{"ok": true, "data": data})
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]any{"ok": false, "message": message})
}

func writeErrorWithData(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	render.Status(r, status)
	render.JSON(w, r, map[string]any{"ok": false, "message": message, "data": data})
}

// writeDomainError translates the store's typed errors into statuses: the
// not-found family maps to 404, conflicts to 422, oracle failures to 502.
// Anything else is a 500 that leaks nothing.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch typed := err.(type) {
	case *store.ListNotFoundError:
		writeErrorWithData(w, r, http.StatusNotFound, typed.Error(), map[string]any{"listId": typed.ListID})
	case *store.PickNotFoundError:
		writeErrorWithData(w, r, http.StatusNotFound, typed.Error(), map[string]any{"listId": typed.ListID, "itemId": typed.ItemID})
	case *store.AccessNotFoundError:
		writeErrorWithData(w, r, http.StatusNotFound, typed.Error(), map[string]any{
			"listId":     typed.ListID,
			"permission": string(typed.Permission),
			"grantee":    typed.Grantee.String(),
		})
	case *store.ItemNotFoundError:
		writeErrorWithData(w, r, http.StatusNotFound, typed.Error(), map[string]any{"itemId": typed.ItemID})
	case *store.PickAlreadyExistsError:
		writeErrorWithData(w, r, http.StatusUnprocessableEntity, typed.Error(), map[string]any{"listId": typed.ListID, "itemId": typed.ItemID})
	case *store.DuplicatedListError:
		writeErrorWithData(w, r, http.StatusUnprocessableEntity, typed.Error(), map[string]any{"name": typed.Name})
	case *store.DuplicatedAccessError:
		writeErrorWithData(w, r, http.StatusUnprocessableEntity, typed.Error(), map[string]any{
			"listId":     typed.ListID,
			"permission": string(typed.Permission),
			"grantee":    typed.Grantee.String(),
		})
	case *store.QueryFailure:
		writeMessage(w, r, http.StatusBadGateway, typed.Error())
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("unexpected error")
		writeMessage(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

type paginatedBody struct {
	Results any `json:"results"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	Limit   int `json:"limit"`
}

// paginated builds the pagination envelope. Total and pages report zero when
// the page itself came back empty.
func paginated(results any, resultCount, total, limit, offset int) paginatedBody {
	body := paginatedBody{
		Results: results,
		Limit:   limit,
		Page:    offset / limit,
	}
	if resultCount > 0 {
		body.Total = total
		body.Pages = (total + limit - 1) / limit
	}
	return body
}

const (
	defaultPageLimit = 100
	maxPageLimit     = 100
)

func paginationParams(r *http.Request) (int, int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
