package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
	"github.com/stratospay/delphi/pkg/usecase"
	"github.com/stratospay/delphi/pkg/utils/errutil"
	"github.com/stratospay/delphi/pkg/utils/safe"
)

// queryRequest is the JSON body of both /api/query and /api/agent
type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId,omitempty"`
	OrgID     string `json:"orgId"`
	UserID    string `json:"userId"`
	ModelHint string `json:"modelHint,omitempty"`
}

func (req *queryRequest) toInput() *model.QueryInput {
	return &model.QueryInput{
		Query:     req.Query,
		SessionID: types.SessionID(req.SessionID),
		Scope: model.Scope{
			OrgID:  types.OrgID(req.OrgID),
			UserID: types.UserID(req.UserID),
		},
		ModelHint: req.ModelHint,
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to decode query request"), http.StatusBadRequest)
		return
	}

	out, err := s.uc.HandleQuery(r.Context(), req.toInput())
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusFor(err))
		return
	}

	writeJSON(w, r, out)
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to decode agent request"), http.StatusBadRequest)
		return
	}

	out, err := s.uc.RunAgent(r.Context(), req.toInput())
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusFor(err))
		return
	}

	writeJSON(w, r, out)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrEmptyQuery), errors.Is(err, usecase.ErrInvalidScope):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	safe.Write(r.Context(), w, data)
}
