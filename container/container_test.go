package container

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shelterly/automation/analytics"
	"github.com/shelterly/automation/config"
	"github.com/shelterly/automation/model"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	conf := config.Default()
	dir := t.TempDir()
	conf.SqliteConfig.Path = filepath.Join(dir, "automation.db")
	conf.AnalyticsConfig = analytics.DataCollectorConfig{CollectorType: analytics.LOG_FILE_DATA_COLLECTOR, FileName: filepath.Join(dir, "analytics.log")}
	return conf
}

func TestInit(t *testing.T) {
	tests := map[string]func(t *testing.T){
		"builds the engine": func(t *testing.T) {
			d := NewDiContainer()
			require.NoError(t, d.Init(testConfig(t)))
			defer d.Close()

			f := &model.Flow{OrganizationId: 1, Name: "wired", Active: true, Blocks: []model.Block{{Id: "start", Kind: model.BLOCK_TRIGGER}}}
			require.NoError(t, d.GetStore().SaveFlow(context.Background(), f))
			exec, err := d.GetEngine().ExecuteFlow(context.Background(), f.Id, nil)
			require.NoError(t, err)
			require.Equal(t, model.EXECUTION_COMPLETED, exec.Status)
			require.NotNil(t, d.GetEvaluator())
			require.NotNil(t, d.GetLifecycle())
		},
		"unknown storage type": func(t *testing.T) {
			conf := testConfig(t)
			conf.StorageType = "cassandra"
			require.Error(t, NewDiContainer().Init(conf))
		},
		"unknown queue type": func(t *testing.T) {
			conf := testConfig(t)
			conf.QueueType = "sqs"
			require.Error(t, NewDiContainer().Init(conf))
		},
		"getters panic before init": func(t *testing.T) {
			require.Panics(t, func() { NewDiContainer().GetEngine() })
		},
	}
	for name, fn := range tests {
		t.Run(name, fn)
	}
}
