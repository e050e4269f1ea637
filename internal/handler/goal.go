package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luminapp/lumina/internal/apperr"
	"github.com/luminapp/lumina/internal/auth"
	"github.com/luminapp/lumina/internal/model"
	"github.com/luminapp/lumina/internal/store"
	"github.com/luminapp/lumina/internal/websocket"
)

type GoalHandler struct {
	goalStore *store.GoalStore
	hub       *websocket.Hub
}

func NewGoalHandler(gs *store.GoalStore, hub *websocket.Hub) *GoalHandler {
	return &GoalHandler{goalStore: gs, hub: hub}
}

type goalRequest struct {
	Name         string  `json:"name"`
	TargetAmount string  `json:"target_amount"`
	DueDate      *string `json:"due_date"`
	Status       string  `json:"status"`
}

func (req *goalRequest) parse() (decimal.Decimal, *time.Time, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return decimal.Zero, nil, apperr.New(apperr.InvalidArgument, "name is required")
	}
	target, err := decimal.NewFromString(req.TargetAmount)
	if err != nil || !target.IsPositive() {
		return decimal.Zero, nil, apperr.New(apperr.InvalidArgument, "target_amount must be a positive decimal")
	}
	var dueDate *time.Time
	if req.DueDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			return decimal.Zero, nil, apperr.New(apperr.InvalidArgument, "due_date must look like 2027-01-31")
		}
		dueDate = &parsed
	}
	return target, dueDate, nil
}

// List returns the user's goals plus goals shared with their couple.
func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	var coupleID *int64
	if ac.CoupleID != 0 {
		coupleID = &ac.CoupleID
	}
	goals, err := h.goalStore.ListVisible(ac.UserID, coupleID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "list goals", err))
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	target, dueDate, err := req.parse()
	if err != nil {
		writeError(w, err)
		return
	}

	goal, err := h.goalStore.Create(auth.UserID(r.Context()), req.Name, target, dueDate)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "create goal", err))
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid goal id")
		return
	}
	var req goalRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	target, dueDate, err := req.parse()
	if err != nil {
		writeError(w, err)
		return
	}
	status := req.Status
	if status == "" {
		status = model.GoalStatusActive
	}
	if status != model.GoalStatusActive && status != model.GoalStatusCompleted && status != model.GoalStatusAbandoned {
		writeBadRequest(w, "status must be active, completed, or abandoned")
		return
	}

	existing, err := h.visibleGoal(r, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing.UserID != auth.UserID(r.Context()) {
		writeError(w, apperr.New(apperr.Unauthorized, "only the owner can edit a goal"))
		return
	}

	goal, err := h.goalStore.Update(id, req.Name, target, dueDate, status)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "update goal", err))
		return
	}

	h.broadcast(r, goal, "updated")
	writeJSON(w, http.StatusOK, goal)
}

// Contribute adds to a goal's saved amount. Either partner can contribute to
// a shared goal.
func (h *GoalHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid goal id")
		return
	}
	var req struct {
		Amount string `json:"amount"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeBadRequest(w, "amount must be a positive decimal")
		return
	}

	existing, err := h.visibleGoal(r, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing.Status != model.GoalStatusActive {
		writeError(w, apperr.Newf(apperr.Conflict, "goal is %s", existing.Status))
		return
	}

	goal, err := h.goalStore.Contribute(id, amount)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "contribute to goal", err))
		return
	}

	h.broadcast(r, goal, "contributed")
	writeJSON(w, http.StatusOK, goal)
}

// Share makes a goal visible to the partner.
func (h *GoalHandler) Share(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid goal id")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	if ac.CoupleID == 0 {
		writeError(w, apperr.New(apperr.NotLinked, "link a partner before sharing goals"))
		return
	}

	existing, err := h.visibleGoal(r, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing.UserID != ac.UserID {
		writeError(w, apperr.New(apperr.Unauthorized, "only the owner can share a goal"))
		return
	}

	goal, err := h.goalStore.Share(id, ac.CoupleID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "share goal", err))
		return
	}

	h.broadcast(r, goal, "shared")
	writeJSON(w, http.StatusOK, goal)
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid goal id")
		return
	}

	existing, err := h.visibleGoal(r, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing.UserID != auth.UserID(r.Context()) {
		writeError(w, apperr.New(apperr.Unauthorized, "only the owner can delete a goal"))
		return
	}

	if err := h.goalStore.Delete(id); err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "delete goal", err))
		return
	}

	h.broadcast(r, existing, "deleted")
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// visibleGoal loads a goal the acting user may see: their own, or one shared
// with their couple.
func (h *GoalHandler) visibleGoal(r *http.Request, id int64) (*model.Goal, error) {
	goal, err := h.goalStore.GetByID(id)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "get goal", err)
	}
	if goal == nil {
		return nil, apperr.New(apperr.NotFound, "goal not found")
	}

	ac, _ := auth.FromContext(r.Context())
	if goal.UserID == ac.UserID {
		return goal, nil
	}
	if goal.CoupleID != nil && *goal.CoupleID == ac.CoupleID && ac.CoupleID != 0 {
		return goal, nil
	}
	return nil, apperr.New(apperr.Unauthorized, "not your goal")
}

func (h *GoalHandler) broadcast(r *http.Request, goal *model.Goal, action string) {
	ac, _ := auth.FromContext(r.Context())
	if goal.CoupleID != nil {
		h.hub.BroadcastCouple(*goal.CoupleID, ac.UserID, websocket.NewMessage("goal", action, goal.ID, nil))
		return
	}
	h.hub.BroadcastUser(ac.UserID, websocket.NewMessage("goal", action, goal.ID, nil))
}
