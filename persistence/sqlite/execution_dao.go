package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence"
)

var _ persistence.ExecutionStorage = new(Store)

func (s *Store) CreateExecution(ctx context.Context, exec *model.ExecutionRecord) error {
	input, err := s.inputEncDec.Encode(exec.InputData)
	if err != nil {
		return err
	}
	output, errData, err := s.encodeResult(exec)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO flow_executions (flow_id, organization_id, job_id, execution_type, status, started_at, completed_at,
			input_data, output_data, error_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.FlowId, exec.OrganizationId, exec.JobId, string(exec.ExecutionType), string(exec.Status), exec.StartedAt,
		exec.CompletedAt, string(input), output, errData)
	if err != nil {
		return storageError("insert execution", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storageError("insert execution", err)
	}
	exec.Id = id
	return nil
}

func (s *Store) UpdateExecution(ctx context.Context, exec *model.ExecutionRecord) error {
	input, err := s.inputEncDec.Encode(exec.InputData)
	if err != nil {
		return err
	}
	output, errData, err := s.encodeResult(exec)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE flow_executions SET status = ?, started_at = ?, completed_at = ?, input_data = ?, output_data = ?, error_data = ?
		WHERE id = ?`,
		string(exec.Status), exec.StartedAt, exec.CompletedAt, string(input), output, errData, exec.Id)
	if err != nil {
		return storageError("update execution", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

const executionColumns = `id, flow_id, organization_id, job_id, execution_type, status, started_at, completed_at,
	input_data, output_data, error_data`

func (s *Store) GetExecution(ctx context.Context, id int64) (*model.ExecutionRecord, error) {
	return s.getExecution(ctx, "SELECT "+executionColumns+" FROM flow_executions WHERE id = ?", id)
}

func (s *Store) GetExecutionByJob(ctx context.Context, jobId int64) (*model.ExecutionRecord, error) {
	return s.getExecution(ctx, "SELECT "+executionColumns+" FROM flow_executions WHERE job_id = ?", jobId)
}

func (s *Store) getExecution(ctx context.Context, query string, arg int64) (*model.ExecutionRecord, error) {
	var exec model.ExecutionRecord
	var executionType, status, input string
	var output, errData sql.NullString
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&exec.Id, &exec.FlowId, &exec.OrganizationId, &exec.JobId,
		&executionType, &status, &exec.StartedAt, &exec.CompletedAt, &input, &output, &errData)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, storageError("get execution", err)
	}
	exec.ExecutionType = model.ExecutionType(executionType)
	exec.Status = model.ExecutionStatus(status)
	decodedInput, err := s.inputEncDec.Decode([]byte(input))
	if err != nil {
		return nil, err
	}
	exec.InputData = *decodedInput
	if output.Valid {
		if exec.OutputData, err = s.outputEncDec.Decode([]byte(output.String)); err != nil {
			return nil, err
		}
	}
	if errData.Valid {
		if exec.ErrorData, err = s.errorEncDec.Decode([]byte(errData.String)); err != nil {
			return nil, err
		}
	}
	return &exec, nil
}

func (s *Store) encodeResult(exec *model.ExecutionRecord) (output any, errData any, err error) {
	if exec.OutputData != nil {
		data, err := s.outputEncDec.Encode(*exec.OutputData)
		if err != nil {
			return nil, nil, err
		}
		output = string(data)
	}
	if exec.ErrorData != nil {
		data, err := s.errorEncDec.Encode(*exec.ErrorData)
		if err != nil {
			return nil, nil, err
		}
		errData = string(data)
	}
	return output, errData, nil
}
