package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/middleware/auth"
)

// requestUser returns the authenticated user. Routes are always behind the
// auth middleware, so a miss means the handler was mounted without it.
func (s *Server) requestUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		UnauthorizedError("missing bearer token").Write(w)
	}
	return userID, ok
}

func (s *Server) engineContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.requestTimeout)
}

// writeError maps engine errors to responses. Only unexpected errors are logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case core.IsValidation(err):
		ValidationErrorResponse(err).Write(w)
	case core.IsNotFound(err):
		NotFoundError("transaction not found").Write(w)
	case errors.Is(err, errMalformedBody):
		BadRequestError(err.Error()).Write(w)
	default:
		errType := log.ErrorTypeInternal
		if errors.Is(err, context.DeadlineExceeded) {
			errType = log.ErrorTypeTimeout
		}
		s.logger.LogError(r.Context(), "Request failed", err, errType, log.ComponentHTTP, op)
		InternalServerError().Write(w)
	}
}

func (s *Server) invalidateUser(userID int64) {
	if s.totals == nil {
		return
	}
	prefix := userCachePrefix(userID)
	s.totals.DeletePrefix(prefix)
	s.rankings.DeletePrefix(prefix)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUser(w, r)
	if !ok {
		return
	}
	req, err := decodeCreateRequest(w, r)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}

	ctx, cancel := s.engineContext(r)
	defer cancel()
	res, err := s.ledger.Create(ctx, req, userID)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	s.invalidateUser(userID)

	t := res.Transaction
	s.logger.LogTransactionWritten(r.Context(), log.OpCreate, userID, t.ID,
		string(t.Kind), string(t.Type), t.Category, core.FormatAmount(t.Value))
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", fmt.Sprintf("/transactions/%d", t.ID)).
		Body(newCreateResponse(res)).
		Write(w)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUser(w, r)
	if !ok {
		return
	}
	page, limit, paged, err := parsePaging(r)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}

	ctx, cancel := s.engineContext(r)
	defer cancel()

	if paged {
		p, err := s.ledger.ListPaged(ctx, userID, page, limit)
		if err != nil {
			s.writeError(w, r, err, log.OpList)
			return
		}
		NewJSONResponse().Body(newPageResponse(p)).Write(w)
		return
	}

	rows, err := s.ledger.List(ctx, userID)
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	NewJSONResponse().Body(newTransactionList(rows)).Write(w)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUser(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}

	ctx, cancel := s.engineContext(r)
	defer cancel()
	t, err := s.ledger.Get(ctx, userID, id)
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	NewJSONResponse().Body(newTransactionResponse(t)).Write(w)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUser(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	patch, err := decodePatch(w, r)
	if err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}

	ctx, cancel := s.engineContext(r)
	defer cancel()
	t, err := s.ledger.Update(ctx, userID, id, patch)
	if err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	s.invalidateUser(userID)

	s.logger.LogTransactionWritten(r.Context(), log.OpUpdate, userID, t.ID,
		string(t.Kind), string(t.Type), t.Category, core.FormatAmount(t.Value))
	NewJSONResponse().Body(newTransactionResponse(t)).Write(w)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUser(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}

	ctx, cancel := s.engineContext(r)
	defer cancel()
	if err := s.ledger.Delete(ctx, userID, id); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	s.invalidateUser(userID)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.serveMonthTotals(w, r, "summary", log.OpSummary, s.ledger.Dashboard, func(m core.MonthTotals) any {
		return newDashboardResponse(m)
	})
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	s.serveMonthTotals(w, r, "projection", log.OpProject, s.ledger.Projection, func(m core.MonthTotals) any {
		return newProjectionResponse(m)
	})
}

type monthTotalsFunc func(ctx context.Context, userID int64, month, year int) (core.MonthTotals, error)

// serveMonthTotals runs one of the monthly aggregations through the cache.
func (s *Server) serveMonthTotals(w http.ResponseWriter, r *http.Request, view, op string, compute monthTotalsFunc, render func(core.MonthTotals) any) {
	userID, ok := s.requestUser(w, r)
	if !ok {
		return
	}
	year, month, err := parseYearMonth(r)
	if err != nil {
		s.writeError(w, r, err, op)
		return
	}

	key := fmt.Sprintf("%s%s:%04d-%02d", userCachePrefix(userID), view, year, month)
	if s.totals != nil {
		if m, found := s.totals.Get(key); found {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Month totals cache hit",
				log.FieldUserID, userID, log.FieldYear, year, log.FieldMonth, month, "view", view)
			NewJSONResponse().Body(render(m)).Write(w)
			return
		}
	}

	ctx, cancel := s.engineContext(r)
	defer cancel()
	m, err := compute(ctx, userID, month, year)
	if err != nil {
		s.writeError(w, r, err, op)
		return
	}
	if s.totals != nil {
		s.totals.Set(key, m)
	}
	NewJSONResponse().Body(render(m)).Write(w)
}

func (s *Server) handleTopCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUser(w, r)
	if !ok {
		return
	}

	key := userCachePrefix(userID) + "top-expense-category"
	if s.rankings != nil {
		if entry, found := s.rankings.Get(key); found {
			NewJSONResponse().Body(newCategoryResponse(entry.top)).Write(w)
			return
		}
	}

	ctx, cancel := s.engineContext(r)
	defer cancel()
	top, err := s.ledger.TopExpenseCategory(ctx, userID)
	if err != nil {
		s.writeError(w, r, err, log.OpRank)
		return
	}
	if s.rankings != nil {
		s.rankings.Set(key, rankingEntry{top: top})
	}
	NewJSONResponse().Body(newCategoryResponse(top)).Write(w)
}
