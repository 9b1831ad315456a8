package celengine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"
)

var envCache = sync.Map{}

// GetOrBuildEnv returns an environment declaring every attribute. Environments
// are cached by the attribute names and their declared types.
func GetOrBuildEnv(attrs map[string]any) (*cel.Env, error) {
	decls := declarations(attrs)
	key := cacheKey(decls)
	if v, ok := envCache.Load(key); ok {
		return v.(*cel.Env), nil
	}

	env, err := newEnv(decls)
	if err != nil {
		return nil, err
	}

	actual, _ := envCache.LoadOrStore(key, env)
	return actual.(*cel.Env), nil
}

func BuildCelEnvFromAttributes(attrs map[string]any) (*cel.Env, error) {
	return newEnv(declarations(attrs))
}

type declaration struct {
	name string
	typ  *cel.Type
}

func declarations(attrs map[string]any) []declaration {
	decls := make([]declaration, 0, len(attrs))
	for key, val := range attrs {
		decls = append(decls, declaration{name: key, typ: typeOf(val)})
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].name < decls[j].name })
	return decls
}

func cacheKey(decls []declaration) string {
	var b strings.Builder
	for _, d := range decls {
		b.WriteString(d.name)
		b.WriteByte(':')
		b.WriteString(d.typ.String())
		b.WriteByte(';')
	}
	return b.String()
}

func newEnv(decls []declaration) (*cel.Env, error) {
	variables := make([]cel.EnvOption, 0, len(decls))
	for _, d := range decls {
		variables = append(variables, cel.Variable(d.name, d.typ))
	}
	return cel.NewEnv(variables...)
}

func typeOf(val any) *cel.Type {
	switch v := val.(type) {
	case string:
		return cel.StringType
	case int, int32, int64, uint64:
		return cel.IntType
	case float32, float64:
		return cel.DoubleType
	case bool:
		return cel.BoolType
	case []string:
		return cel.ListType(cel.StringType)
	case []map[string]any:
		return cel.ListType(cel.MapType(cel.StringType, cel.DynType))
	case []any:
		if len(v) > 0 {
			if _, ok := v[0].(map[string]any); ok {
				return cel.ListType(cel.MapType(cel.StringType, cel.DynType))
			}
		}
		return cel.ListType(cel.DynType)
	case map[string]any:
		return cel.MapType(cel.StringType, cel.DynType)
	default:
		zap.L().Debug("celengine: unhandled attribute type", zap.String("type", fmt.Sprintf("%T", val)))
		return cel.DynType
	}
}

func StructToMap(s any) map[string]any {
	if s == nil {
		return map[string]any{}
	}

	b, err := json.Marshal(s)
	if err != nil {
		zap.L().Debug("failed StructToMap Marshal", zap.Error(err))
		return map[string]any{}
	}

	var result map[string]any
	if err := json.Unmarshal(b, &result); err != nil {
		zap.L().Debug("failed StructToMap Unmarshal", zap.Error(err))
		return map[string]any{}
	}

	return result
}

func ValidateExpression(env *cel.Env, expr string) error {
	_, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return issues.Err()
	}
	return nil
}

func Evaluate(env *cel.Env, expr string, attrs map[string]any) (bool, error) {
	val, err := EvaluateDynamic(env, expr, attrs)
	if err != nil {
		return false, err
	}

	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool from expression, got %T (%v)", val, val)
	}

	return b, nil
}

func EvaluateDynamic(env *cel.Env, expr string, attrs map[string]any) (any, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.Eval(attrs)
	if err != nil {
		return nil, err
	}

	return out.Value(), nil
}
