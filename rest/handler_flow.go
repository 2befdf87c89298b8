package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence"
	"github.com/shelterly/automation/record"
	"go.uber.org/zap"
)

type runFlowRequest struct {
	RecordType string `json:"recordType"`
	RecordId   int64  `json:"recordId"`
}

func (s *Server) HandleImportFlow(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var flow model.Flow
	if err := json.NewDecoder(r.Body).Decode(&flow); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid flow json")
		return
	}
	if err := flow.ValidateImport(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.container.GetStore().SaveFlow(r.Context(), &flow); err != nil {
		logger.Error("error saving flow", zap.String("name", flow.Name), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error saving flow")
		return
	}
	s.container.GetFlowCache().Invalidate(flow.OrganizationId)
	respondWithFlow(w, http.StatusCreated, &flow)
}

func (s *Server) HandleGetFlow(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	flow, err := s.container.GetStore().GetFlow(r.Context(), id)
	if err != nil {
		respondStorageError(w, "flow", err)
		return
	}
	respondWithFlow(w, http.StatusOK, flow)
}

// HandleRunFlow runs a flow synchronously and answers with its execution
// record, failed or not.
func (s *Server) HandleRunFlow(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	id, err := pathId(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req runFlowRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid run request json")
			return
		}
	}
	var ref *model.RecordRef
	if req.RecordType != "" {
		ref = &model.RecordRef{Type: req.RecordType, Id: req.RecordId}
	}
	exec, err := s.container.GetEngine().ExecuteFlow(r.Context(), id, ref)
	if exec == nil {
		respondStorageError(w, "flow", err)
		return
	}
	if err != nil {
		logger.Info("manual run failed", zap.Int64("flow", id), zap.Error(err))
	}
	respondWithJSON(w, http.StatusOK, exec)
}

func respondStorageError(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, record.ErrUnknownObject) {
		respondWithError(w, http.StatusNotFound, what+" does not exist")
		return
	}
	logger.Error("storage error", zap.String("entity", what), zap.Error(err))
	respondWithError(w, http.StatusInternalServerError, "error loading "+what)
}
