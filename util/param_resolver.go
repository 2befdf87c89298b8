package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var (
	referencePattern = regexp.MustCompile(`^\{\$([A-Za-z_][\w.]*)\}$`)
	tokenPattern     = regexp.MustCompile(`\{\$([A-Za-z_][\w.]*)\}`)
)

// ResolveValue substitutes a whole-value variable reference ({$name} or
// {$name.path}) with the variable it names. Anything else, including a
// reference to a missing variable, is returned unchanged. Resolution is a
// single level: a substituted value that is itself a reference stays as is.
func ResolveValue(value any, variables map[string]any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	m := referencePattern.FindStringSubmatch(s)
	if m == nil {
		return value
	}
	resolved, found := lookup(m[1], variables)
	if !found {
		return value
	}
	return resolved
}

func lookup(path string, variables map[string]any) (any, bool) {
	root := strings.SplitN(path, ".", 2)[0]
	if _, ok := variables[root]; !ok {
		return nil, false
	}
	if root == path {
		return variables[root], true
	}
	v, err := jsonpath.JsonPathLookup(variables, "$."+path)
	if err != nil {
		return nil, false
	}
	return v, true
}

// ResolveParams resolves every string inside params. Whole-value references
// keep the variable's type; references embedded in longer text are rendered
// with %v.
func ResolveParams(params map[string]any, variables map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = resolveAny(v, variables)
	}
	return out
}

func resolveAny(v any, variables map[string]any) any {
	switch val := v.(type) {
	case map[string]any:
		return ResolveParams(val, variables)
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, resolveAny(item, variables))
		}
		return out
	case string:
		if referencePattern.MatchString(val) {
			return ResolveValue(val, variables)
		}
		return tokenPattern.ReplaceAllStringFunc(val, func(token string) string {
			path := tokenPattern.FindStringSubmatch(token)[1]
			resolved, found := lookup(path, variables)
			if !found {
				return token
			}
			return fmt.Sprintf("%v", resolved)
		})
	default:
		return v
	}
}
