package metric

import "github.com/shelterly/automation/analytics"

// BlockCollector counts block outcomes and forwards everything to next.
type BlockCollector struct {
	next    analytics.FlowDataCollector
	metrics *Metrics
}

var _ analytics.FlowDataCollector = new(BlockCollector)

func NewBlockCollector(next analytics.FlowDataCollector, metrics *Metrics) *BlockCollector {
	if next == nil {
		next = analytics.NopDataCollector{}
	}
	return &BlockCollector{next: next, metrics: metrics}
}

func (c *BlockCollector) RecordIntent(flowId int64, blockId string, kind string, payload map[string]any) {
	c.next.RecordIntent(flowId, blockId, kind, payload)
}

func (c *BlockCollector) RecordBlockSuccess(flowId int64, blockId string, kind string) {
	c.metrics.RecordBlock(kind, "success")
	c.next.RecordBlockSuccess(flowId, blockId, kind)
}

func (c *BlockCollector) RecordBlockFailure(flowId int64, blockId string, kind string, reason string) {
	c.metrics.RecordBlock(kind, "failure")
	c.next.RecordBlockFailure(flowId, blockId, kind, reason)
}
