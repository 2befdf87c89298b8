// Package condition evaluates block conditions against a record and the run's
// variables. Evaluation never fails: anything it cannot decide is false.
package condition

import (
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/record"
	"github.com/shelterly/automation/util"
)

// Evaluate reads the field from rec when one is bound and from variables
// otherwise, resolves the comparison value and applies the operator. Unknown
// operators evaluate to false.
func Evaluate(cond model.Condition, rec record.Record, variables map[string]any) bool {
	op, ok := operators[cond.Operator]
	if !ok {
		return false
	}
	left := fieldValue(cond.Field, rec, variables)
	right := util.ResolveValue(cond.Value, variables)
	return op(left, right)
}

// All reports whether every condition holds; an empty list holds.
func All(conds []model.Condition, rec record.Record, variables map[string]any) bool {
	for _, c := range conds {
		if !Evaluate(c, rec, variables) {
			return false
		}
	}
	return true
}

func fieldValue(field string, rec record.Record, variables map[string]any) any {
	if rec != nil {
		v, _ := rec.GetField(field)
		return v
	}
	return variables[field]
}
