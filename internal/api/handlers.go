package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	apisource "gopairs/adapters/api"
	"gopairs/adapters/excel"
	"gopairs/domain/core"
	"gopairs/domain/pricetable"
	"gopairs/internal/errors"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCointegration(w http.ResponseWriter, r *http.Request) {
	opts := s.config.Cointegration
	table, err := s.decodeRequest(r, &opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if v := r.URL.Query().Get("sig_level"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.writeError(w, r, core.NewInvalidInputError("sig_level", "must be a number"))
			return
		}
		opts.SigLevel = f
	}
	if v := r.URL.Query().Get("intercept"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, core.NewInvalidInputError("intercept", "must be a boolean"))
			return
		}
		opts.Intercept = b
	}

	report, err := s.config.Screener.ScreenCointegration(r.Context(), table, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.config.Repository != nil {
		if err := s.config.Repository.SaveCointegration(r.Context(), report); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDistance(w http.ResponseWriter, r *http.Request) {
	opts := s.config.Distance
	table, err := s.decodeRequest(r, &opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if v := r.URL.Query().Get("n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, core.NewInvalidInputError("n", "must be an integer"))
			return
		}
		opts.N = n
	}

	report, err := s.config.Screener.ScreenDistance(r.Context(), table, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.config.Repository != nil {
		if err := s.config.Repository.SaveDistance(r.Context(), report); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, core.NewInvalidInputError("limit", "must be a positive integer"))
			return
		}
		limit = n
	}
	runs, err := s.config.Repository.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) handleGetCointegration(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "runID"))
	if err != nil {
		s.writeError(w, r, errors.InvalidInput(err.Error()))
		return
	}
	report, err := s.config.Repository.GetCointegration(r.Context(), runID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetDistance(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "runID"))
	if err != nil {
		s.writeError(w, r, errors.InvalidInput(err.Error()))
		return
	}
	report, err := s.config.Repository.GetDistance(r.Context(), runID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// decodeRequest reads the price table from the body. A JSON body carries
// {"instruments":[...], "options":{...}} and options override the defaults
// already in opts. A text/csv body is a sheet with instrument ids in the
// header row; ?index_column=true drops its first column.
func (s *Server) decodeRequest(r *http.Request, opts interface{}) (*pricetable.Table, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		return nil, core.NewInvalidInputError("body", err.Error())
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		indexColumn, _ := strconv.ParseBool(r.URL.Query().Get("index_column"))
		return excel.ParseCSV(r.Context(), bytes.NewReader(body), indexColumn)
	}

	if !gjson.ValidBytes(body) {
		return nil, core.NewInvalidInputError("body", "must be valid JSON")
	}
	if raw := gjson.GetBytes(body, "options"); raw.Exists() {
		if err := json.Unmarshal([]byte(raw.Raw), opts); err != nil {
			return nil, core.NewInvalidInputError("options", err.Error())
		}
	}
	return apisource.ParseInstruments(body, "instruments", "id", "values")
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatus(code)
	if stderrors.Is(err, context.DeadlineExceeded) {
		code, status = "TIMEOUT", http.StatusGatewayTimeout
	}
	entry := s.log.WithError(err).WithField("code", code)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: err.Error()}})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
