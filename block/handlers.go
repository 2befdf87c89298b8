package block

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shelterly/automation/condition"
	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence"
	"github.com/shelterly/automation/record"
	"github.com/shelterly/automation/util"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// decision follows the label of the first outcome whose conditions all hold.
func decision(_ context.Context, env *Env, b *model.Block) (Next, error) {
	cfg, err := decodeConfig[model.DecisionConfig](b)
	if err != nil {
		return Unlabeled, err
	}
	for _, outcome := range cfg.Outcomes {
		if condition.All(outcome.Conditions, env.Exec.TriggerRecord, env.Exec.Variables) {
			return Label(outcome.Label), nil
		}
	}
	return Unlabeled, nil
}

func assignment(_ context.Context, env *Env, b *model.Block) (Next, error) {
	cfg, err := decodeConfig[model.AssignmentConfig](b)
	if err != nil {
		return Unlabeled, err
	}
	for _, a := range cfg.Assignments {
		if a.Variable == "" {
			logger.Warn("assignment without variable name", zap.String("block", b.Id))
			continue
		}
		env.Exec.Variables[a.Variable] = util.ResolveValue(a.Value, env.Exec.Variables)
	}
	return Unlabeled, nil
}

func createRecord(ctx context.Context, env *Env, b *model.Block) (Next, error) {
	cfg, err := decodeConfig[model.RecordConfig](b)
	if err != nil {
		return Unlabeled, err
	}
	apiName, err := resolveApiName(cfg, env)
	if err != nil {
		return Unlabeled, fmt.Errorf("block %s: %w", b.Id, err)
	}
	rec, err := env.Records.New(ctx, env.Exec.OrganizationId, apiName)
	if err != nil {
		return Unlabeled, fmt.Errorf("block %s: new %s: %w", b.Id, apiName, err)
	}
	applyMappings(b, rec, cfg.FieldMappings, env.Exec.Variables)
	if err := env.Records.Save(ctx, rec); err != nil {
		return Unlabeled, fmt.Errorf("block %s: save %s: %w", b.Id, apiName, err)
	}
	if cfg.OutputVariable != "" {
		env.Exec.Variables[cfg.OutputVariable] = rec.GetId()
	}
	return Unlabeled, nil
}

func updateRecord(ctx context.Context, env *Env, b *model.Block) (Next, error) {
	cfg, err := decodeConfig[model.RecordConfig](b)
	if err != nil {
		return Unlabeled, err
	}
	rec, err := findTarget(ctx, env, b, cfg)
	if err != nil || rec == nil {
		return Unlabeled, err
	}
	applyMappings(b, rec, cfg.FieldMappings, env.Exec.Variables)
	if err := env.Records.Save(ctx, rec); err != nil {
		return Unlabeled, fmt.Errorf("block %s: save %s %d: %w", b.Id, rec.ObjectApiName(), rec.GetId(), err)
	}
	return Unlabeled, nil
}

func deleteRecord(ctx context.Context, env *Env, b *model.Block) (Next, error) {
	cfg, err := decodeConfig[model.RecordConfig](b)
	if err != nil {
		return Unlabeled, err
	}
	rec, err := findTarget(ctx, env, b, cfg)
	if err != nil || rec == nil {
		return Unlabeled, err
	}
	if err := env.Records.Delete(ctx, rec); err != nil {
		return Unlabeled, fmt.Errorf("block %s: delete %s %d: %w", b.Id, rec.ObjectApiName(), rec.GetId(), err)
	}
	return Unlabeled, nil
}

// findTarget loads the record an update or delete block points at. A target
// that does not exist yields a nil record and no error so the block is skipped.
func findTarget(ctx context.Context, env *Env, b *model.Block, cfg *model.RecordConfig) (record.Record, error) {
	apiName, err := resolveApiName(cfg, env)
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", b.Id, err)
	}
	resolvedId := util.ResolveValue(cfg.RecordId, env.Exec.Variables)
	id, err := cast.ToInt64E(resolvedId)
	if err != nil || id <= 0 {
		logger.Warn("record id did not resolve, skipping block", zap.String("block", b.Id), zap.Any("recordId", resolvedId))
		return nil, nil
	}
	rec, err := env.Records.Find(ctx, env.Exec.OrganizationId, apiName, id)
	if errors.Is(err, persistence.ErrNotFound) {
		logger.Info("target record not found, skipping block", zap.String("block", b.Id), zap.String("object", apiName), zap.Int64("id", id))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("block %s: find %s %d: %w", b.Id, apiName, id, err)
	}
	return rec, nil
}

func resolveApiName(cfg *model.RecordConfig, env *Env) (string, error) {
	name, err := cast.ToStringE(util.ResolveValue(cfg.ObjectApiName, env.Exec.Variables))
	if err != nil || name == "" {
		return "", fmt.Errorf("object api name %v did not resolve to a name", cfg.ObjectApiName)
	}
	return name, nil
}

// applyMappings sets fields in name order. A field the record cannot take is
// logged and left unchanged.
func applyMappings(b *model.Block, rec record.Record, mappings map[string]any, variables map[string]any) {
	fields := make([]string, 0, len(mappings))
	for f := range mappings {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		value := util.ResolveValue(mappings[f], variables)
		if !rec.SetField(f, value) {
			logger.Warn("field not set", zap.String("block", b.Id), zap.String("object", rec.ObjectApiName()),
				zap.String("field", f), zap.Any("value", value))
		}
	}
}

func wait(_ context.Context, env *Env, b *model.Block) (Next, error) {
	cfg, err := decodeConfig[model.WaitConfig](b)
	if err != nil {
		return Unlabeled, err
	}
	seconds := cast.ToInt64(util.ResolveValue(cfg.DurationSeconds, env.Exec.Variables))
	recordIntent(env, b, map[string]any{"durationSeconds": seconds})
	return Unlabeled, nil
}

// intent covers the kinds whose delivery lives outside the engine. Their
// config is resolved against the run's variables and handed to the recorder.
func intent(_ context.Context, env *Env, b *model.Block) (Next, error) {
	cfg, err := decodeConfig[map[string]any](b)
	if err != nil {
		return Unlabeled, err
	}
	var payload map[string]any
	if *cfg != nil {
		payload = util.ResolveParams(*cfg, env.Exec.Variables)
	}
	recordIntent(env, b, payload)
	return Unlabeled, nil
}

func recordIntent(env *Env, b *model.Block, payload map[string]any) {
	logger.Debug("recording block intent", zap.String("block", b.Id), zap.String("kind", string(b.Kind)))
	if env.Intents == nil {
		return
	}
	env.Intents.RecordIntent(env.Flow.Id, b.Id, string(b.Kind), payload)
}
