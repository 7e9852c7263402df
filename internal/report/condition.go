package report

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/juanifmera/progresion/internal/model"
)

// envScope 表达式编译时使用的变量集合
type envScope uint8

const (
	scopeReport envScope = iota // ReportEnv：when 条件与工作表名
	scopeRow                    // rowEnv：where 条件
)

type programKey struct {
	scope      envScope
	expression string
}

// Evaluator 表达式求值（where / when / 工作表名），编译结果按 (变量集合, 表达式) 缓存
type Evaluator struct {
	cache sync.Map // programKey -> *vm.Program
}

// NewEvaluator 创建求值器
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate 用报表级变量计算表达式
func (e *Evaluator) Evaluate(expression string, env map[string]any) (any, error) {
	return e.evaluate(scopeReport, expression, env)
}

// IsTrue 用报表级变量计算布尔条件；空表达式视为 true
func (e *Evaluator) IsTrue(condition string, env map[string]any) (bool, error) {
	return e.isTrue(scopeReport, condition, env)
}

// IsTrueRow 用行变量计算 where 条件
func (e *Evaluator) IsTrueRow(condition string, env rowEnv) (bool, error) {
	return e.isTrue(scopeRow, condition, map[string]any(env))
}

func (e *Evaluator) evaluate(scope envScope, expression string, env map[string]any) (any, error) {
	if expression == "" {
		return nil, nil
	}
	program, err := e.compile(scope, expression, env)
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", expression, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate expression %q: %w", expression, err)
	}
	return out, nil
}

func (e *Evaluator) isTrue(scope envScope, condition string, env map[string]any) (bool, error) {
	if condition == "" {
		return true, nil
	}
	out, err := e.evaluate(scope, condition, env)
	if err != nil {
		return false, err
	}
	if out == nil {
		return false, nil
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q evaluated to %T, expected bool", condition, out)
	}
	return b, nil
}

func (e *Evaluator) compile(scope envScope, expression string, env map[string]any) (*vm.Program, error) {
	key := programKey{scope: scope, expression: expression}
	if cached, ok := e.cache.Load(key); ok {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(expression, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	e.cache.Store(key, program)
	return program, nil
}

// ReportEnv 报表级变量（when 条件与工作表名表达式使用）
func ReportEnv(req Request, format string, priorYear, currentYear int) map[string]any {
	return map[string]any{
		"kind":          string(req.Kind),
		"scope":         string(req.Scope),
		"month":         req.Month.String(),
		"month_key":     req.Month.Key(),
		"month_ordinal": req.Month.Ordinal(),
		"format":        format,
		"year":          currentYear,
		"prior_year":    priorYear,
	}
}

// rowEnv where 条件的行变量；同一张表复用一个 map
type rowEnv map[string]any

func newRowEnv() rowEnv {
	return rowEnv{
		"year": 0, "month": "", "month_ordinal": 0, "format": "", "store": "", "store_id": 0,
		"province": "", "sector": "", "section": "", "family": "", "category": "", "value": 0.0,
		"flag": "", "matched": false,
	}
}

func (env rowEnv) load(row *model.JoinedFact, month model.Month) rowEnv {
	env["year"] = row.Year
	env["month"] = ""
	if row.Month.Valid() {
		env["month"] = row.Month.String()
	}
	env["month_ordinal"] = row.Month.Ordinal()
	env["format"] = row.Format
	env["store"] = row.Store
	env["store_id"] = row.StoreID
	env["sector"] = row.Sector
	env["section"] = row.Section
	env["family"] = row.Family
	env["category"] = string(row.Category)
	env["value"] = row.Value
	env["matched"] = row.Matched()
	env["province"] = ""
	env["flag"] = ""
	if row.Registry != nil {
		env["province"] = row.Registry.Province
		flag, _ := row.Registry.Flag(month)
		env["flag"] = flag
	}
	return env
}
