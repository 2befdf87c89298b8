package analytics

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogFileDataCollector struct {
	fileName string
	file     *os.File
	logger   *zap.Logger
}

var _ FlowDataCollector = new(LogFileDataCollector)

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	if fileName == "" {
		return nil, fmt.Errorf("log file data collector needs a file name")
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(logFile), zapcore.InfoLevel)
	return &LogFileDataCollector{
		fileName: fileName,
		file:     logFile,
		logger:   zap.New(core),
	}, nil
}

func (lc *LogFileDataCollector) RecordIntent(flowId int64, blockId string, kind string, payload map[string]any) {
	lc.logger.Info("intent", zap.Int64("flowId", flowId), zap.String("blockId", blockId), zap.String("kind", kind), zap.Any("payload", payload))
}

func (lc *LogFileDataCollector) RecordBlockSuccess(flowId int64, blockId string, kind string) {
	lc.logger.Info("success", zap.Int64("flowId", flowId), zap.String("blockId", blockId), zap.String("kind", kind))
}

func (lc *LogFileDataCollector) RecordBlockFailure(flowId int64, blockId string, kind string, reason string) {
	lc.logger.Info("failure", zap.Int64("flowId", flowId), zap.String("blockId", blockId), zap.String("kind", kind), zap.String("reason", reason))
}

func (lc *LogFileDataCollector) Close() error {
	return multierr.Append(lc.logger.Sync(), lc.file.Close())
}
