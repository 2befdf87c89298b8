package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence"
)

var _ persistence.FlowStorage = new(Store)

func (s *Store) SaveFlow(ctx context.Context, flow *model.Flow) error {
	blocks, err := s.flowEncDec.Encode(flow.Blocks)
	if err != nil {
		return err
	}
	connections, err := s.connEncDec.Encode(flow.Connections)
	if err != nil {
		return err
	}
	_, hasTrigger := flow.TriggerBlock()
	if flow.Id == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO flows (organization_id, name, description, active, has_trigger, blocks, connections)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			flow.OrganizationId, flow.Name, flow.Description, flow.Active, hasTrigger, string(blocks), string(connections))
		if err != nil {
			return storageError("insert flow", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return storageError("insert flow", err)
		}
		flow.Id = id
		return nil
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE flows SET organization_id = ?, name = ?, description = ?, active = ?, has_trigger = ?, blocks = ?, connections = ?
		WHERE id = ?`,
		flow.OrganizationId, flow.Name, flow.Description, flow.Active, hasTrigger, string(blocks), string(connections), flow.Id)
	if err != nil {
		return storageError("update flow", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

const flowColumns = "id, organization_id, name, description, active, blocks, connections"

func (s *Store) GetFlow(ctx context.Context, id int64) (*model.Flow, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+flowColumns+" FROM flows WHERE id = ?", id)
	flow, err := s.scanFlow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, storageError("get flow", err)
	}
	return flow, nil
}

func (s *Store) ListTriggerableFlows(ctx context.Context, organizationId int64) ([]*model.Flow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+flowColumns+" FROM flows WHERE organization_id = ? AND active = 1 AND has_trigger = 1 ORDER BY id",
		organizationId)
	if err != nil {
		return nil, storageError("list flows", err)
	}
	defer rows.Close()
	var flows []*model.Flow
	for rows.Next() {
		flow, err := s.scanFlow(rows)
		if err != nil {
			return nil, storageError("scan flow", err)
		}
		flows = append(flows, flow)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list flows", err)
	}
	return flows, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanFlow(row scanner) (*model.Flow, error) {
	var flow model.Flow
	var blocks, connections string
	if err := row.Scan(&flow.Id, &flow.OrganizationId, &flow.Name, &flow.Description, &flow.Active, &blocks, &connections); err != nil {
		return nil, err
	}
	decodedBlocks, err := s.flowEncDec.Decode([]byte(blocks))
	if err != nil {
		return nil, err
	}
	decodedConns, err := s.connEncDec.Decode([]byte(connections))
	if err != nil {
		return nil, err
	}
	flow.Blocks = *decodedBlocks
	flow.Connections = *decodedConns
	return &flow, nil
}
