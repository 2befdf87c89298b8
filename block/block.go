// Package block holds one handler per block kind. The interpreter looks the
// handler up by kind, runs it and follows the connections it selects.
package block

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence"
)

// IntentRecorder receives side effects the engine records but does not
// deliver itself.
type IntentRecorder interface {
	RecordIntent(flowId int64, blockId string, kind string, payload map[string]any)
}

type Env struct {
	Flow    *model.Flow
	Exec    *model.ExecutionContext
	Records persistence.RecordStorage
	Intents IntentRecorder
}

// Next tells the interpreter which connections to follow after a block ran.
// A labeled Next follows only connections carrying Label.
type Next struct {
	Label   string
	Labeled bool
}

var Unlabeled = Next{}

func Label(label string) Next {
	return Next{Label: label, Labeled: true}
}

type Handler interface {
	Execute(ctx context.Context, env *Env, b *model.Block) (Next, error)
}

type HandlerFunc func(ctx context.Context, env *Env, b *model.Block) (Next, error)

func (f HandlerFunc) Execute(ctx context.Context, env *Env, b *model.Block) (Next, error) {
	return f(ctx, env, b)
}

type Registry struct {
	handlers map[model.BlockKind]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[model.BlockKind]Handler)}
}

// DefaultRegistry registers a handler for every known block kind.
func DefaultRegistry() *Registry {
	passThrough := HandlerFunc(func(context.Context, *Env, *model.Block) (Next, error) { return Unlabeled, nil })
	return NewRegistry().
		Register(model.BLOCK_TRIGGER, passThrough).
		Register(model.BLOCK_SCREEN, passThrough).
		Register(model.BLOCK_DECISION, HandlerFunc(decision)).
		Register(model.BLOCK_ASSIGNMENT, HandlerFunc(assignment)).
		Register(model.BLOCK_CREATE_RECORD, HandlerFunc(createRecord)).
		Register(model.BLOCK_UPDATE_RECORD, HandlerFunc(updateRecord)).
		Register(model.BLOCK_DELETE_RECORD, HandlerFunc(deleteRecord)).
		Register(model.BLOCK_WAIT, HandlerFunc(wait)).
		Register(model.BLOCK_EMAIL, HandlerFunc(intent)).
		Register(model.BLOCK_NOTIFICATION, HandlerFunc(intent)).
		Register(model.BLOCK_API_CALL, HandlerFunc(intent)).
		Register(model.BLOCK_LOOP, HandlerFunc(intent))
}

func (r *Registry) Register(kind model.BlockKind, h Handler) *Registry {
	r.handlers[kind] = h
	return r
}

func (r *Registry) Get(kind model.BlockKind) (Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}

func decodeConfig[T any](b *model.Block) (*T, error) {
	var cfg T
	if len(b.Config) == 0 || string(b.Config) == "null" {
		return &cfg, nil
	}
	if err := json.Unmarshal(b.Config, &cfg); err != nil {
		return nil, fmt.Errorf("block %s has invalid %s config: %w", b.Id, b.Kind, err)
	}
	return &cfg, nil
}
