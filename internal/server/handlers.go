package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sells-group/tradescope/internal/hunter"
	"github.com/sells-group/tradescope/internal/ledger"
	"github.com/sells-group/tradescope/internal/mirror"
	"github.com/sells-group/tradescope/internal/model"
	"github.com/sells-group/tradescope/internal/risk"
)

const maxPageSize = 500

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func serverError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var one int
	if err := s.pool.QueryRow(r.Context(), "SELECT 1").Scan(&one); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	org, err := s.resolver.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "organization not found")
			return
		}
		serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ledger.Filter{
		HSCode6:     q.Get("hs_code_6"),
		DestCountry: strings.ToUpper(q.Get("dest_country")),
		Limit:       parsePage(q.Get("limit"), 100),
		Offset:      parsePage(q.Get("offset"), 0),
	}

	if f.HSCode6 != "" && !validHS6(f.HSCode6) {
		writeError(w, http.StatusBadRequest, "hs_code_6 must be exactly 6 digits")
		return
	}
	if dir := strings.ToUpper(q.Get("direction")); dir != "" {
		switch model.Direction(dir) {
		case model.DirectionImport, model.DirectionExport:
			f.Direction = model.Direction(dir)
		default:
			writeError(w, http.StatusBadRequest, "direction must be IMPORT or EXPORT")
			return
		}
	}
	for param, dst := range map[string]**uuid.UUID{
		"buyer_uuid":    &f.BuyerUUID,
		"supplier_uuid": &f.SupplierUUID,
	} {
		if raw := q.Get(param); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid "+param)
				return
			}
			*dst = &id
		}
	}
	for param, dst := range map[string]**time.Time{
		"from": &f.DateFrom,
		"to":   &f.DateTo,
	} {
		if raw := q.Get(param); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, param+" must be YYYY-MM-DD")
				return
			}
			*dst = &t
		}
	}

	txns, err := ledger.Query(r.Context(), s.pool, f)
	if err != nil {
		serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"count":        len(txns),
	})
}

func (s *Server) handleGetMirrorMatch(w http.ResponseWriter, r *http.Request) {
	exportID, err := uuid.Parse(chi.URLParam(r, "exportID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid export transaction id")
		return
	}

	match, err := mirror.AuditByExport(r.Context(), s.pool, exportID)
	if err != nil {
		serverError(w, err)
		return
	}
	if match == nil {
		writeError(w, http.StatusNotFound, "no mirror match for export")
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (s *Server) handleGetRisk(w http.ResponseWriter, r *http.Request) {
	entityType := model.EntityType(strings.ToUpper(chi.URLParam(r, "entityType")))
	switch entityType {
	case model.EntityShipment, model.EntityBuyer, model.EntityExporter:
	default:
		writeError(w, http.StatusBadRequest, "entity type must be SHIPMENT, BUYER, or EXPORTER")
		return
	}
	entityID := chi.URLParam(r, "entityID")

	scores, err := s.risks.Current(r.Context(), entityType, entityID)
	if err != nil {
		serverError(w, err)
		return
	}
	if len(scores) == 0 {
		writeError(w, http.StatusNotFound, "no risk opinion for entity")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entity_type": entityType,
		"entity_id":   entityID,
		"worst_level": risk.WorstLevel(scores),
		"scores":      scores,
	})
}

func (s *Server) handleHunt(w http.ResponseWriter, r *http.Request) {
	var req hunter.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	buyers, err := s.hunter.Hunt(r.Context(), req)
	if err != nil {
		if hunter.IsValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hs_code_6": req.HSCode6,
		"buyers":    buyers,
		"count":     len(buyers),
	})
}

func parsePage(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	if v > maxPageSize {
		return maxPageSize
	}
	return v
}

func validHS6(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
