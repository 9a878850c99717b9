package app

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"favorites/api/internal/store"
)

type pickJSON struct {
	ItemID      string    `json:"itemId"`
	UserAddress string    `json:"userAddress"`
	ListID      string    `json:"listId"`
	CreatedAt   time.Time `json:"createdAt"`
}

type pickInListJSON struct {
	ItemID string `json:"itemId"`
}

type pickerJSON struct {
	UserAddress string `json:"userAddress"`
}

type pickStatsJSON struct {
	Count       int   `json:"count"`
	LikedByUser *bool `json:"likedByUser,omitempty"`
}

func (s *HTTPServer) handleGetPicksByList(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)
	picks, total, err := s.store.GetPicksByListID(r.Context(), chi.URLParam(r, "id"), store.GetPicksOptions{
		CallerAddress: userAddress(r),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	results := make([]pickInListJSON, 0, len(picks))
	for _, pick := range picks {
		results = append(results, pickInListJSON{ItemID: pick.ItemID})
	}
	writeData(w, r, http.StatusOK, paginated(results, len(results), total, limit, offset))
}

type createPickRequest struct {
	ItemID string `json:"itemId"`
}

func (s *HTTPServer) handleCreatePick(w http.ResponseWriter, r *http.Request) {
	var body createPickRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "The body must contain a parsable JSON.")
		return
	}
	if body.ItemID == "" {
		writeMessage(w, r, http.StatusBadRequest, "The property itemId is missing.")
		return
	}

	pick, err := s.store.AddPickToList(r.Context(), chi.URLParam(r, "id"), body.ItemID, userAddress(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, pickJSON{
		ItemID:      pick.ItemID,
		UserAddress: pick.UserAddress,
		ListID:      pick.ListID,
		CreatedAt:   pick.CreatedAt,
	})
}

func (s *HTTPServer) handleDeletePick(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeletePickInList(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"), userAddress(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{})
}

func (s *HTTPServer) handleGetPicksByItem(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)
	addresses, total, err := s.store.GetPicksByItemID(r.Context(), chi.URLParam(r, "itemId"), limit, offset)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	results := make([]pickerJSON, 0, len(addresses))
	for _, address := range addresses {
		results = append(results, pickerJSON{UserAddress: address})
	}
	writeData(w, r, http.StatusOK, paginated(results, len(results), total, limit, offset))
}

func (s *HTTPServer) handleGetPickStats(w http.ResponseWriter, r *http.Request) {
	opts := store.PickStatsOptions{CallerAddress: optionalUserAddress(r)}
	if raw := r.URL.Query().Get("power"); raw != "" {
		power, err := strconv.Atoi(raw)
		if err != nil || power < 0 {
			writeMessage(w, r, http.StatusBadRequest, "The value of the power parameter is invalid.")
			return
		}
		opts.MinPower = &power
	}

	stats, err := s.store.GetPickStats(r.Context(), chi.URLParam(r, "itemId"), opts)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out := pickStatsJSON{Count: stats.Count}
	if opts.CallerAddress != "" {
		liked := stats.LikedByUser
		out.LikedByUser = &liked
	}
	writeData(w, r, http.StatusOK, out)
}
