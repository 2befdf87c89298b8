package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence"
)

var _ persistence.JobStorage = new(Store)

func (s *Store) CreateJob(ctx context.Context, job *model.Job) error {
	triggerData, err := s.encodeTriggerData(job.TriggerData)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (flow_id, organization_id, status, external_job_id, error_message, started_at, completed_at,
			retry_count, trigger_record_type, trigger_record_id, trigger_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.FlowId, job.OrganizationId, string(job.Status), job.ExternalJobId, job.ErrorMessage, job.StartedAt, job.CompletedAt,
		job.RetryCount, job.TriggerRecordType, job.TriggerRecordId, triggerData, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return storageError("insert job", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storageError("insert job", err)
	}
	job.Id = id
	return nil
}

// UpdateJob writes the mutable lifecycle columns when the stored status is
// still from. retry_count is owned by IncrementRetryCount and an empty
// external id never clears a stored one.
func (s *Store) UpdateJob(ctx context.Context, job *model.Job, from model.JobStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, external_job_id = COALESCE(NULLIF(?, ''), external_job_id), error_message = ?,
			started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(job.Status), job.ExternalJobId, job.ErrorMessage, job.StartedAt, job.CompletedAt, job.UpdatedAt,
		job.Id, string(from))
	if err != nil {
		return storageError("update job", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	current, err := s.GetJob(ctx, job.Id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: job %d is %s, expected %s", model.ErrIllegalTransition, job.Id, current.Status, from)
}

func (s *Store) SetExternalJobId(ctx context.Context, id int64, handle string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE jobs SET external_job_id = ? WHERE id = ?", handle, id)
	if err != nil {
		return storageError("set external job id", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (s *Store) IncrementRetryCount(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE jobs SET retry_count = retry_count + 1 WHERE id = ?", id)
	if err != nil {
		return storageError("increment retry count", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

const jobColumns = `id, flow_id, organization_id, status, external_job_id, error_message, started_at, completed_at,
	retry_count, trigger_record_type, trigger_record_id, trigger_data, created_at, updated_at`

func (s *Store) GetJob(ctx context.Context, id int64) (*model.Job, error) {
	job, err := s.scanJob(s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, storageError("get job", err)
	}
	return job, nil
}

// ListJobs returns the tenant's most recent jobs first.
func (s *Store) ListJobs(ctx context.Context, organizationId int64, limit int) ([]*model.Job, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE organization_id = ? ORDER BY id DESC LIMIT ?",
		organizationId, limit)
	if err != nil {
		return nil, storageError("list jobs", err)
	}
	defer rows.Close()
	var jobs []*model.Job
	for rows.Next() {
		job, err := s.scanJob(rows)
		if err != nil {
			return nil, storageError("scan job", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list jobs", err)
	}
	return jobs, nil
}

func (s *Store) scanJob(row scanner) (*model.Job, error) {
	var job model.Job
	var status string
	var triggerData sql.NullString
	err := row.Scan(&job.Id, &job.FlowId, &job.OrganizationId, &status, &job.ExternalJobId, &job.ErrorMessage,
		&job.StartedAt, &job.CompletedAt, &job.RetryCount, &job.TriggerRecordType, &job.TriggerRecordId, &triggerData,
		&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	job.Status = model.JobStatus(status)
	if triggerData.Valid {
		job.TriggerData, err = s.triggerEncDec.Decode([]byte(triggerData.String))
		if err != nil {
			return nil, err
		}
	}
	return &job, nil
}

func (s *Store) encodeTriggerData(td *model.TriggerData) (any, error) {
	if td == nil {
		return nil, nil
	}
	data, err := s.triggerEncDec.Encode(*td)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
