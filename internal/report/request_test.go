package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juanifmera/progresion/internal/model"
)

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"monthly":     KindMonthly,
		"MMAA":        KindMonthly,
		" acumulado ": KindAccumulated,
		"comparacion": KindComparison,
		"join":        KindConsolidated,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseKind("semanal")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRequestValidate(t *testing.T) {
	req := Request{Kind: "acumulado", Month: model.Marzo}
	require.NoError(t, req.Validate())
	assert.Equal(t, KindAccumulated, req.Kind)
	assert.Equal(t, model.FormatXLSX, req.Format)
	assert.Equal(t, ScopeComparable, req.Scope)

	for _, bad := range []Request{
		{Kind: KindMonthly},
		{Kind: KindMonthly, Month: model.Marzo, Format: "pdf"},
		{Kind: KindMonthly, Month: model.Marzo, Scope: "parcial"},
		{Kind: KindComparison, Month: model.Marzo, Category: "XYZ"},
		{Kind: KindMonthly, Month: model.Marzo, CurrentYear: -1},
	} {
		assert.ErrorIs(t, bad.Validate(), ErrInvalidRequest)
	}
}

func TestCatalog(t *testing.T) {
	c, err := NewCatalog(nil)
	require.NoError(t, err)
	defs := c.List()
	require.Len(t, defs, 4)
	assert.Equal(t, KindMonthly, defs[0].Kind)
	assert.Len(t, defs[0].Sheets, 11)
	assert.True(t, defs[1].YearToDate)

	_, err = NewCatalog(map[Kind][]SheetSpec{KindComparison: {{Name: "x", Layout: LayoutLong}}})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = NewCatalog(map[Kind][]SheetSpec{KindMonthly: {{Name: "x", Layout: "tall"}}})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = NewCatalog(map[Kind][]SheetSpec{KindMonthly: {{
		Name: "x", Layout: LayoutWide,
		Dimensions: []model.Dimension{model.DimStore},
		SortKeys:   []model.Dimension{model.DimSector},
	}}})
	assert.Error(t, err)
}

func TestEvaluator(t *testing.T) {
	e := NewEvaluator()
	env := ReportEnv(Request{Kind: KindAccumulated, Month: model.Agosto}, "HIPER", 2024, 2025)

	ok, err := e.IsTrue(`format != "PROXIMIDAD" && month_ordinal >= 8`, env)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.IsTrue("", env)
	require.NoError(t, err)
	assert.True(t, ok)

	out, err := e.Evaluate(`"Prog Acum " + format`, env)
	require.NoError(t, err)
	assert.Equal(t, "Prog Acum HIPER", out)

	_, err = e.IsTrue("year +", env)
	assert.Error(t, err)
}

func TestEvaluator_SameExpressionAcrossEnvs(t *testing.T) {
	e := NewEvaluator()
	const cond = `store_id == 7`

	row := &model.JoinedFact{Fact: model.Fact{StoreID: 7, Month: model.Agosto}}
	ok, err := e.IsTrueRow(cond, newRowEnv().load(row, model.Agosto))
	require.NoError(t, err)
	assert.True(t, ok)

	// 报表级变量中没有 store_id，不能复用按行变量编译的程序
	env := ReportEnv(Request{Kind: KindMonthly, Month: model.Agosto}, "HIPER", 2024, 2025)
	ok, err = e.IsTrue(cond, env)
	require.NoError(t, err)
	assert.False(t, ok)

	row.StoreID = 8
	ok, err = e.IsTrueRow(cond, newRowEnv().load(row, model.Agosto))
	require.NoError(t, err)
	assert.False(t, ok)
}
