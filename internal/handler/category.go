package handler

import (
	"net/http"
	"strings"

	"github.com/luminapp/lumina/internal/apperr"
	"github.com/luminapp/lumina/internal/auth"
	"github.com/luminapp/lumina/internal/model"
	"github.com/luminapp/lumina/internal/store"
)

type CategoryHandler struct {
	categoryStore *store.CategoryStore
}

func NewCategoryHandler(cs *store.CategoryStore) *CategoryHandler {
	return &CategoryHandler{categoryStore: cs}
}

type categoryRequest struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	SortOrder int    `json:"sort_order"`
}

func (req *categoryRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return apperr.New(apperr.InvalidArgument, "name is required")
	}
	if req.Kind != model.KindExpense && req.Kind != model.KindIncome {
		return apperr.New(apperr.InvalidArgument, "kind must be expense or income")
	}
	return nil
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryStore.List(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "list categories", err))
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	userID := auth.UserID(r.Context())
	exists, err := h.categoryStore.NameExists(userID, req.Name, 0)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "check category name", err))
		return
	}
	if exists {
		writeError(w, apperr.Newf(apperr.Conflict, "category %q already exists", req.Name))
		return
	}

	category, err := h.categoryStore.Create(userID, req.Name, req.Kind, req.SortOrder)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "create category", err))
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid category id")
		return
	}
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	userID := auth.UserID(r.Context())
	existing, err := h.ownCategory(id, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	exists, err := h.categoryStore.NameExists(userID, req.Name, existing.ID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "check category name", err))
		return
	}
	if exists {
		writeError(w, apperr.Newf(apperr.Conflict, "category %q already exists", req.Name))
		return
	}

	category, err := h.categoryStore.Update(id, req.Name, req.Kind, req.SortOrder)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "update category", err))
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid category id")
		return
	}

	if _, err := h.ownCategory(id, auth.UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	if err := h.categoryStore.Delete(id); err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "delete category", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *CategoryHandler) ownCategory(id, userID int64) (*model.Category, error) {
	category, err := h.categoryStore.GetByID(id)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "get category", err)
	}
	if category == nil {
		return nil, apperr.New(apperr.NotFound, "category not found")
	}
	if category.UserID != userID {
		return nil, apperr.New(apperr.Unauthorized, "not your category")
	}
	return category, nil
}
