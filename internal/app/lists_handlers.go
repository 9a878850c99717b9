package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"favorites/api/internal/permission"
	"favorites/api/internal/store"
)

const (
	maxListNameLength        = 32
	maxListDescriptionLength = 100
)

type listJSON struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	UserAddress  string     `json:"userAddress"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	Permission   string     `json:"permission,omitempty"`
	ItemsCount   int        `json:"itemsCount"`
	IsPrivate    bool       `json:"isPrivate"`
	IsItemInList *bool      `json:"isItemInList,omitempty"`
}

func fromList(list store.List) listJSON {
	return listJSON{
		ID:          list.ID,
		Name:        list.Name,
		Description: list.Description,
		UserAddress: list.OwnerAddress,
		CreatedAt:   list.CreatedAt,
		UpdatedAt:   list.UpdatedAt,
		IsPrivate:   list.Private,
	}
}

func fromListWithCount(list store.ListWithCount, withItemFlag bool) listJSON {
	out := fromList(list.List)
	out.Permission = string(list.Permission)
	out.ItemsCount = list.ItemsCount
	if withItemFlag {
		flag := list.IsItemIn
		out.IsItemInList = &flag
	}
	return out
}

type createListRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
}

func (s *HTTPServer) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var body createListRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "The body must contain a parsable JSON.")
		return
	}
	if body.Name == "" {
		writeMessage(w, r, http.StatusBadRequest, "The property name is missing.")
		return
	}
	if len(body.Name) > maxListNameLength {
		writeMessage(w, r, http.StatusBadRequest, "The property name exceeds the maximum length.")
		return
	}
	if len(body.Description) > maxListDescriptionLength {
		writeMessage(w, r, http.StatusBadRequest, "The property description exceeds the maximum length.")
		return
	}

	list, err := s.store.CreateList(r.Context(), store.NewList{
		Name:         body.Name,
		Description:  body.Description,
		OwnerAddress: userAddress(r),
		Private:      body.Private,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, fromList(list))
}

func (s *HTTPServer) handleGetList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.GetList(r.Context(), chi.URLParam(r, "id"), store.GetListOptions{
		CallerAddress:      userAddress(r),
		RequiredPermission: permission.View,
		IncludeDefaultList: true,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, fromListWithCount(list, false))
}

type updateListRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Private     *bool   `json:"private"`
}

func (s *HTTPServer) handleUpdateList(w http.ResponseWriter, r *http.Request) {
	var body updateListRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "The body must contain a parsable JSON.")
		return
	}
	if body.Name != nil && (*body.Name == "" || len(*body.Name) > maxListNameLength) {
		writeMessage(w, r, http.StatusBadRequest, "The property name is empty or exceeds the maximum length.")
		return
	}
	if body.Description != nil && len(*body.Description) > maxListDescriptionLength {
		writeMessage(w, r, http.StatusBadRequest, "The property description exceeds the maximum length.")
		return
	}

	list, err := s.store.UpdateList(r.Context(), chi.URLParam(r, "id"), userAddress(r), store.ListUpdate{
		Name:        body.Name,
		Description: body.Description,
		Private:     body.Private,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, fromList(list))
}

func (s *HTTPServer) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteList(r.Context(), chi.URLParam(r, "id"), userAddress(r)); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{})
}

func (s *HTTPServer) handleGetLists(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)
	query := r.URL.Query()

	sortBy := store.ListSortByCreatedAt
	if query.Get("sortBy") == "name" {
		sortBy = store.ListSortByName
	}
	direction := store.SortAscending
	if query.Get("sortDirection") == "desc" {
		direction = store.SortDescending
	}

	itemID := query.Get("itemId")
	lists, total, err := s.store.GetLists(r.Context(), store.GetListsOptions{
		CallerAddress: userAddress(r),
		Limit:         limit,
		Offset:        offset,
		SortBy:        sortBy,
		SortDirection: direction,
		NameFilter:    query.Get("q"),
		ItemID:        itemID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	results := make([]listJSON, 0, len(lists))
	for _, list := range lists {
		results = append(results, fromListWithCount(list, itemID != ""))
	}
	writeData(w, r, http.StatusOK, paginated(results, len(results), total, limit, offset))
}

type accessRequest struct {
	Permission string `json:"permission"`
	Grantee    string `json:"grantee"`
}

func (s *HTTPServer) parseAccessRequest(w http.ResponseWriter, r *http.Request) (permission.Permission, permission.Grantee, bool) {
	var body accessRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "The body must contain a parsable JSON.")
		return "", permission.Grantee{}, false
	}
	perm := permission.Permission(body.Permission)
	if !perm.Valid() {
		writeMessage(w, r, http.StatusBadRequest, "The property permission is missing or is not valued as view or edit.")
		return "", permission.Grantee{}, false
	}
	if body.Grantee != permission.GranteeEveryone && !addressPattern.MatchString(body.Grantee) {
		writeMessage(w, r, http.StatusBadRequest, `The property grantee is not valued as "*" or as an ethereum address.`)
		return "", permission.Grantee{}, false
	}
	return perm, permission.ParseGrantee(body.Grantee), true
}

func (s *HTTPServer) handleCreateAccess(w http.ResponseWriter, r *http.Request) {
	perm, grantee, ok := s.parseAccessRequest(w, r)
	if !ok {
		return
	}
	if err := s.store.CreateAccess(r.Context(), chi.URLParam(r, "id"), perm, grantee, userAddress(r)); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, map[string]any{})
}

func (s *HTTPServer) handleDeleteAccess(w http.ResponseWriter, r *http.Request) {
	perm, grantee, ok := s.parseAccessRequest(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteAccess(r.Context(), chi.URLParam(r, "id"), perm, grantee, userAddress(r)); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{})
}
