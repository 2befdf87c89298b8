package analytics

import "sync"

type Entry struct {
	Event   string
	FlowId  int64
	BlockId string
	Kind    string
	Payload map[string]any
	Reason  string
}

// MemoryDataCollector keeps entries in process; the CLI prints them after a
// manual run and tests assert on them.
type MemoryDataCollector struct {
	mu      sync.Mutex
	entries []Entry
}

var _ FlowDataCollector = new(MemoryDataCollector)

func NewMemoryDataCollector() *MemoryDataCollector {
	return &MemoryDataCollector{}
}

func (mc *MemoryDataCollector) RecordIntent(flowId int64, blockId string, kind string, payload map[string]any) {
	mc.add(Entry{Event: "intent", FlowId: flowId, BlockId: blockId, Kind: kind, Payload: payload})
}

func (mc *MemoryDataCollector) RecordBlockSuccess(flowId int64, blockId string, kind string) {
	mc.add(Entry{Event: "success", FlowId: flowId, BlockId: blockId, Kind: kind})
}

func (mc *MemoryDataCollector) RecordBlockFailure(flowId int64, blockId string, kind string, reason string) {
	mc.add(Entry{Event: "failure", FlowId: flowId, BlockId: blockId, Kind: kind, Reason: reason})
}

func (mc *MemoryDataCollector) add(e Entry) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.entries = append(mc.entries, e)
}

func (mc *MemoryDataCollector) Entries() []Entry {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return append([]Entry(nil), mc.entries...)
}

// Events returns the entries with the given event name.
func (mc *MemoryDataCollector) Events(event string) []Entry {
	var out []Entry
	for _, e := range mc.Entries() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
