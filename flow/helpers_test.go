package flow

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/shelterly/automation/analytics"
	"github.com/shelterly/automation/block"
	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "flow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := logger.Replace(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func newInterpreter(collector analytics.FlowDataCollector) *Interpreter {
	return NewInterpreter(block.DefaultRegistry(), collector, 0)
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

func labeled(from, to, label string) model.Connection {
	return model.Connection{From: from, To: to, Label: &label}
}

func assign(variable string, value any) string {
	data, _ := json.Marshal(model.AssignmentConfig{Assignments: []model.Assignment{{Variable: variable, Value: value}}})
	return string(data)
}

func newFlow(blocks []model.Block, connections ...model.Connection) *model.Flow {
	return &model.Flow{Id: 1, OrganizationId: 1, Name: "test", Active: true, Blocks: blocks, Connections: connections}
}
