package api

import (
	"encoding/json"
	"net/http"

	"github.com/dialtone/callcenter/backend/internal/engine"
	"github.com/dialtone/callcenter/backend/internal/policy"
	"github.com/dialtone/callcenter/backend/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CallsHandler provides REST endpoints for the call lifecycle
type CallsHandler struct {
	router *engine.Router
	logger zerolog.Logger
}

// NewCallsHandler creates a new CallsHandler
func NewCallsHandler(router *engine.Router, logger zerolog.Logger) *CallsHandler {
	return &CallsHandler{
		router: router,
		logger: logger.With().Str("component", "calls_api").Logger(),
	}
}

type intakeRequest struct {
	CustomerID string `json:"customerId"`
	Department string `json:"department"`
	Priority   string `json:"priority"`
	Text       string `json:"text"`
}

// Intake handles POST /api/calls/intake
func (h *CallsHandler) Intake(w http.ResponseWriter, r *http.Request) {
	var req intakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CustomerID == "" {
		http.Error(w, "customerId is required", http.StatusBadRequest)
		return
	}
	if req.Department == "" {
		req.Department = string(types.DeptGeneral)
	}

	call, err := h.router.Intake(req.CustomerID, types.Department(req.Department), types.ParsePriority(req.Priority), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, call)
}

type turnRequest struct {
	Text string `json:"text"`
}

type turnResponse struct {
	ReplyText    string     `json:"replyText"`
	QualityScore int        `json:"qualityScore"`
	State        string     `json:"state"`
	Escalated    bool       `json:"escalated"`
	Reason       string     `json:"escalationReason,omitempty"`
	Call         types.Call `json:"call"`
}

// SubmitTurn handles POST /api/calls/{callId}/turns
func (h *CallsHandler) SubmitTurn(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callId")

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	reply, decision, err := h.router.SubmitTurn(r.Context(), callID, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	call, err := h.router.Call(callID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := turnResponse{
		ReplyText:    reply.Text,
		QualityScore: reply.QualityScore,
		State:        string(call.State),
		Escalated:    decision.Verdict == policy.Escalate,
		Call:         call,
	}
	if decision.Verdict == policy.Escalate {
		resp.Reason = string(decision.Reason)
	}
	writeJSON(w, http.StatusOK, resp)
}

type escalateRequest struct {
	Reason string `json:"reason"`
}

// Escalate handles POST /api/calls/{callId}/escalate
func (h *CallsHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callId")

	reason := types.ReasonExplicitRequest
	var req escalateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Reason != "" {
		switch types.EscalationReason(req.Reason) {
		case types.ReasonLowQualityScore, types.ReasonExplicitRequest,
			types.ReasonTurnLimitExceeded, types.ReasonAgentUnavailable:
			reason = types.EscalationReason(req.Reason)
		default:
			http.Error(w, "unknown escalation reason", http.StatusBadRequest)
			return
		}
	}

	if err := h.router.Escalate(callID, reason); err != nil {
		writeError(w, err)
		return
	}

	call, err := h.router.Call(callID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

type completeRequest struct {
	Outcome string `json:"outcome"`
}

// Complete handles POST /api/calls/{callId}/complete
func (h *CallsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callId")

	outcome := "resolved"
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Outcome != "" {
		outcome = req.Outcome
	}

	if err := h.router.Complete(callID, outcome); err != nil {
		writeError(w, err)
		return
	}

	call, err := h.router.Call(callID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

// Abandon handles POST /api/calls/{callId}/abandon
func (h *CallsHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callId")

	if err := h.router.Abandon(callID); err != nil {
		writeError(w, err)
		return
	}

	call, err := h.router.Call(callID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

type statusResponse struct {
	CallID      string           `json:"callId"`
	State       types.CallState  `json:"state"`
	Department  types.Department `json:"department"`
	Priority    string           `json:"priority"`
	AgentID     string           `json:"agentId,omitempty"`
	Escalated   bool             `json:"escalated"`
	TurnCount   int              `json:"turnCount"`
	DurationSec float64          `json:"durationSeconds"`
	Outcome     string           `json:"outcome,omitempty"`
}

// Status handles GET /api/calls/{callId}/status
func (h *CallsHandler) Status(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callId")

	call, err := h.router.Call(callID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		CallID:      call.ID,
		State:       call.State,
		Department:  call.Department,
		Priority:    call.Priority.String(),
		AgentID:     call.AgentID,
		Escalated:   call.Escalated,
		TurnCount:   len(call.Turns),
		DurationSec: call.Duration().Seconds(),
		Outcome:     call.Outcome,
	})
}

type historyResponse struct {
	CallID      string                  `json:"callId"`
	Turns       []types.Turn            `json:"turns"`
	Escalations []types.EscalationEvent `json:"escalations"`
}

// History handles GET /api/calls/{callId}/history
func (h *CallsHandler) History(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callId")

	call, err := h.router.Call(callID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{
		CallID:      call.ID,
		Turns:       call.Turns,
		Escalations: call.Escalations,
	})
}
