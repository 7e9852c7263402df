package parser

import (
	"fmt"
	"strings"

	"github.com/juanifmera/progresion/internal/model"
)

// DefaultExcludedFamily 销量中剔除的包装类商品族
const DefaultExcludedFamily = "ENVASES"

// ExcludedFamilies 拆分逗号分隔的剔除关键字，空值取默认
func ExcludedFamilies(raw string) []string {
	var out []string
	for _, kw := range strings.Split(raw, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	if len(out) == 0 {
		return []string{DefaultExcludedFamily}
	}
	return out
}

// NormalizeTransactions 将 POS 报表原始表格转换为规范化交易记录
// 销售/销量文件每行产生 VCT 与 VOL 两条记录，小票文件每行产生一条 DEB 记录
func NormalizeTransactions(t *RawTable, kind SourceKind, mapper *FieldMapper, opts NormalizeOptions) ([]model.Fact, NormalizeResult, error) {
	result := NormalizeResult{Source: t.Source}
	if mapper == nil {
		mapper = NewFieldMapper(nil)
	}
	required := RequiredColumns(kind)
	if required == nil {
		return nil, result, fmt.Errorf("unsupported transaction source %q", kind)
	}
	cols, err := mapper.Resolve(t, withoutColumns(required, opts.Optional)...)
	if err != nil {
		return nil, result, err
	}
	excluded := ExcludedFamilies(opts.ExcludedFamily)

	facts := make([]model.Fact, 0, len(t.Rows)*2)
	for i := range t.Rows {
		line := i + 1
		if i < len(t.RowNumbers) {
			line = t.RowNumbers[i]
		}
		get := func(col string) string {
			idx, ok := cols[col]
			if !ok {
				return ""
			}
			return t.Cell(i, idx)
		}
		coerce := func(col, value string, err error) error {
			return &CoercionError{Source: t.Source, Row: line, Column: displayNames[col], Value: value, Err: err}
		}

		result.Rows++
		base, err := baseFact(get, coerce)
		if err != nil {
			return nil, result, err
		}
		base.SourceRow = line

		switch kind {
		case SourceSalesVolume:
			base.Sector = CleanLabel(get(ColSector))
			base.Section = CleanLabel(get(ColSection))
			base.Family = CleanLabel(get(ColFamily))

			if raw := get(ColSales); IsBlank(raw) {
				result.EmptyValues++
			} else {
				v, err := ParseSales(raw)
				if err != nil {
					return nil, result, coerce(ColSales, raw, err)
				}
				f := base
				f.Category = model.CategorySales
				f.Value = v
				facts = append(facts, f)
			}

			if raw := get(ColVolume); IsBlank(raw) {
				result.EmptyValues++
			} else {
				v, err := ParseVolume(raw)
				if err != nil {
					return nil, result, coerce(ColVolume, raw, err)
				}
				if ContainsAny(base.Family, excluded) {
					result.Excluded++
					continue
				}
				f := base
				f.Category = model.CategoryVolume
				f.Value = float64(v)
				facts = append(facts, f)
			}

		case SourceTickets:
			raw := get(ColTickets)
			if IsBlank(raw) {
				result.EmptyValues++
				continue
			}
			v, err := ParseTickets(raw)
			if err != nil {
				return nil, result, coerce(ColTickets, raw, err)
			}
			f := base
			f.Category = model.CategoryTickets
			f.Value = float64(v)
			facts = append(facts, f)
		}
	}
	result.Facts = len(facts)
	return facts, result, nil
}

func baseFact(get func(string) string, coerce func(col, value string, err error) error) (model.Fact, error) {
	var f model.Fact

	rawYear := get(ColYear)
	year, err := ParseWholeNumber(rawYear)
	if err != nil {
		return f, coerce(ColYear, rawYear, err)
	}
	f.Year = year

	f.MonthRaw = CleanLabel(get(ColMonth))
	if m, err := model.ParseMonth(f.MonthRaw); err == nil {
		f.Month = m
	}
	f.Format = CleanLabel(get(ColFormat))

	f.Store = CleanLabel(get(ColStore))
	id, err := ParseStoreID(f.Store)
	if err != nil {
		return f, coerce(ColStore, f.Store, err)
	}
	f.StoreID = id
	return f, nil
}

func withoutColumns(cols, drop []string) []string {
	if len(drop) == 0 {
		return cols
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		skip := false
		for _, d := range drop {
			if c == d {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, c)
		}
	}
	return out
}
