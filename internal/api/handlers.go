package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/JakeFAU/wordcount-api/internal/wordcount"
)

func (s *Server) wordCount(w http.ResponseWriter, r *http.Request) {
	var req wordcount.Request
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	counts, err := s.svc.Process(r.Context(), req)
	if err != nil {
		s.logger.Warn("word count request failed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("url", req.URL),
			zap.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, counts)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistoryQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := s.svc.History(r.Context(), q)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func parseHistoryQuery(r *http.Request) (wordcount.HistoryQuery, error) {
	values := r.URL.Query()
	sortByDate, err := parseBoolParam(values.Get("sort"), "sort")
	if err != nil {
		return wordcount.HistoryQuery{}, err
	}
	include, err := parseBoolParam(values.Get("includeWordCounts"), "includeWordCounts")
	if err != nil {
		return wordcount.HistoryQuery{}, err
	}
	return wordcount.HistoryQuery{
		Sort:              sortByDate,
		SortDirection:     values.Get("sortDirection"),
		IncludeWordCounts: include,
	}, nil
}

// parseBoolParam treats an absent parameter as false.
func parseBoolParam(raw, name string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, errors.Unwrap(err))
	}
	return v, nil
}
