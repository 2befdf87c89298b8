package engine

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shelterly/automation/block"
	"github.com/shelterly/automation/flow"
	"github.com/shelterly/automation/metric"
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence/sqlite"
	"github.com/shelterly/automation/record"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newRunner(s *sqlite.Store, m *metric.Metrics, transactional bool) *Runner {
	interpreter := flow.NewInterpreter(block.DefaultRegistry(), nil, 0)
	return NewRunner(interpreter, s.Records(), s, m, transactional).WithClock(func() time.Time { return fixedNow })
}

func saveFlow(t *testing.T, s *sqlite.Store, blocks []model.Block, connections ...model.Connection) *model.Flow {
	t.Helper()
	f := &model.Flow{OrganizationId: 1, Name: "engine test", Active: true, Blocks: blocks, Connections: connections}
	require.NoError(t, s.SaveFlow(context.Background(), f))
	return f
}

func blk(id string, kind model.BlockKind, config string) model.Block {
	b := model.Block{Id: id, Kind: kind, Name: id}
	if config != "" {
		b.Config = json.RawMessage(config)
	}
	return b
}

func conn(from, to string) model.Connection {
	return model.Connection{From: from, To: to}
}

func savePet(t *testing.T, s *sqlite.Store, name string, status string) *record.Pet {
	t.Helper()
	pet := &record.Pet{OrganizationId: 1, Name: name, Species: "dog", Status: status}
	require.NoError(t, s.Records().Save(context.Background(), pet))
	return pet
}

func countRows(t *testing.T, s *sqlite.Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
