package analytics

import (
	"fmt"
	"strings"
)

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"
const NOP_DATA_COLLECTOR DataCollectorType = "NOP_DATA_COLLECTOR"

// FlowDataCollector receives what each block of a run did. Intents are the
// side effects the engine does not deliver itself (email, notifications,
// outbound calls, loops, waits).
type FlowDataCollector interface {
	RecordIntent(flowId int64, blockId string, kind string, payload map[string]any)
	RecordBlockSuccess(flowId int64, blockId string, kind string)
	RecordBlockFailure(flowId int64, blockId string, kind string, reason string)
}

// ParseDataCollectorType accepts the full type names and their short forms,
// log_file and nop, in any case.
func ParseDataCollectorType(name string) DataCollectorType {
	t := strings.ToUpper(strings.TrimSpace(name))
	if t != "" && !strings.HasSuffix(t, "_DATA_COLLECTOR") {
		t += "_DATA_COLLECTOR"
	}
	return DataCollectorType(t)
}

func NewDataCollector(config DataCollectorConfig) (FlowDataCollector, error) {
	switch ParseDataCollectorType(string(config.CollectorType)) {
	case LOG_FILE_DATA_COLLECTOR:
		return NewLogFileDataCollector(config.FileName)
	case NOP_DATA_COLLECTOR, "":
		return NopDataCollector{}, nil
	}
	return nil, fmt.Errorf("unknown data collector type %s", config.CollectorType)
}

type NopDataCollector struct{}

var _ FlowDataCollector = NopDataCollector{}

func (NopDataCollector) RecordIntent(int64, string, string, map[string]any) {}
func (NopDataCollector) RecordBlockSuccess(int64, string, string)           {}
func (NopDataCollector) RecordBlockFailure(int64, string, string, string)   {}
