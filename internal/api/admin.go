package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	apierrors "github.com/dharsanguruparan/docdesk/internal/api/errors"
	"github.com/dharsanguruparan/docdesk/internal/model"
	"github.com/dharsanguruparan/docdesk/internal/review"
)

const maxListLimit = 500

type selectionRequest struct {
	IDs []int64 `json:"ids"`
}

func (s *Server) handleAdminList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ListFilter{Search: q.Get("search")}

	if v := q.Get("status"); v != "" {
		status, ok := model.ParseStatus(v)
		if !ok {
			apierrors.ValidationError(w, "status must be one of pending, approved, rejected")
			return
		}
		filter.Status = status
	}
	limit, ok := intParam(q.Get("limit"), 100)
	if !ok || limit == 0 || limit > maxListLimit {
		apierrors.ValidationError(w, "limit must be between 1 and 500")
		return
	}
	offset, ok := intParam(q.Get("offset"), 0)
	if !ok {
		apierrors.ValidationError(w, "offset must be a non-negative integer")
		return
	}
	filter.Limit, filter.Offset = limit, offset

	items, err := s.deps.Documents.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("admin list", zap.Error(err))
		apierrors.InternalError(w, "failed to list documents")
		return
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.handleReview(w, r, s.deps.Review.Approve)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.handleReview(w, r, s.deps.Review.Reject)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request, action func(context.Context, []int64) (review.Result, error)) {
	var req selectionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		apierrors.ValidationError(w, "body must be {\"ids\": [...]}")
		return
	}

	res, err := action(r.Context(), req.IDs)
	if errors.Is(err, review.ErrEmptySelection) {
		apierrors.ValidationError(w, "no documents selected")
		return
	}
	if err != nil {
		s.logger.Error("review action", zap.String("path", r.URL.Path), zap.Error(err))
		apierrors.InternalError(w, "failed to update documents")
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// intParam parses a non-negative query integer, returning def when empty.
func intParam(v string, def int) (int, bool) {
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
