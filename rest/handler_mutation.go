package rest

import (
	"encoding/json"
	"net/http"

	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/trigger"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type mutationRequest struct {
	OrganizationId int64            `json:"organizationId"`
	ObjectApiName  string           `json:"objectApiName"`
	RecordId       int64            `json:"recordId"`
	Mutation       trigger.Mutation `json:"mutation"`
}

type mutationResponse struct {
	Jobs   []*model.Job `json:"jobs"`
	Errors []string     `json:"errors,omitempty"`
}

// HandleRecordMutation is the hook the CRM calls after it created or updated
// a record. Flows whose trigger failed are reported next to the jobs that
// were enqueued.
func (s *Server) HandleRecordMutation(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid mutation json")
		return
	}
	if !req.Mutation.Valid() {
		respondWithError(w, http.StatusBadRequest, "mutation must be created or updated")
		return
	}
	rec, err := s.container.GetStore().Records().Find(r.Context(), req.OrganizationId, req.ObjectApiName, req.RecordId)
	if err != nil {
		respondStorageError(w, "record", err)
		return
	}
	jobs, err := s.container.GetEvaluator().OnRecordMutated(r.Context(), rec, req.OrganizationId, req.Mutation)
	res := mutationResponse{Jobs: jobs}
	if res.Jobs == nil {
		res.Jobs = []*model.Job{}
	}
	for _, e := range multierr.Errors(err) {
		res.Errors = append(res.Errors, e.Error())
	}
	if err != nil {
		logger.Info("record mutation partly failed", zap.String("object", req.ObjectApiName), zap.Int64("record", req.RecordId), zap.Error(err))
	}
	respondWithJSON(w, http.StatusAccepted, res)
}
