package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Row is one raw input row as handed over by the ingestion layer: a mapping
// from source column name to an untyped cell value. Columns may be missing
// and values may be strings, numbers or blank.
type Row = map[string]any

// ValidationError reports a row that could not be normalized. Rows degrade to
// field defaults wherever possible; only missing identity fields and negative
// values in non-negative fields reject a row.
type ValidationError struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Reason string `json:"reason"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("row %d: column %q: %s", e.Row, e.Column, e.Reason)
}

// Schema describes how raw rows become canonical records of type T. Fields
// are applied in declaration order; every declared field is assigned on every
// record, so downstream stages can assume a fixed shape.
type Schema[T any] struct {
	init   func(*T)
	fields []field[T]
}

type field[T any] struct {
	column string
	apply  func(rec *T, raw any, present bool) *ValidationError
}

// NewSchema creates an empty schema. init, when non-nil, runs before field
// assignment on each record (used to allocate per-record maps).
func NewSchema[T any](init func(*T)) *Schema[T] {
	return &Schema[T]{init: init}
}

// RequireString declares an identity field. A missing or blank value rejects
// the whole row with a ValidationError.
func (s *Schema[T]) RequireString(column string, set func(*T, string)) {
	s.fields = append(s.fields, field[T]{column: column, apply: func(rec *T, raw any, present bool) *ValidationError {
		v := coerceString(raw)
		if !present || v == "" {
			return &ValidationError{Column: column, Reason: "missing required field"}
		}
		set(rec, v)
		return nil
	}})
}

// String declares a trimmed string field. Missing or blank values take the
// fallback.
func (s *Schema[T]) String(column, fallback string, set func(*T, string)) {
	s.fields = append(s.fields, field[T]{column: column, apply: func(rec *T, raw any, present bool) *ValidationError {
		v := coerceString(raw)
		if !present || v == "" {
			v = fallback
		}
		set(rec, v)
		return nil
	}})
}

// Number declares a numeric field defaulting to zero on absence or parse
// failure.
func (s *Schema[T]) Number(column string, set func(*T, float64)) {
	s.NumberDefault(column, 0, set)
}

// NumberDefault declares a numeric field with an explicit fallback applied on
// absence or parse failure. Parse failures never reject the row.
func (s *Schema[T]) NumberDefault(column string, fallback float64, set func(*T, float64)) {
	s.fields = append(s.fields, field[T]{column: column, apply: func(rec *T, raw any, present bool) *ValidationError {
		v, ok := coerceNumber(raw)
		if !present || !ok {
			v = fallback
		}
		set(rec, v)
		return nil
	}})
}

// NonNegativeNumber is Number with the additional rule that an explicit
// negative value rejects the row. Absent or unparseable values still default
// to zero.
func (s *Schema[T]) NonNegativeNumber(column string, set func(*T, float64)) {
	s.fields = append(s.fields, field[T]{column: column, apply: func(rec *T, raw any, present bool) *ValidationError {
		v, ok := coerceNumber(raw)
		if !present || !ok {
			set(rec, 0)
			return nil
		}
		if v < 0 {
			return &ValidationError{Column: column, Reason: "negative value"}
		}
		set(rec, v)
		return nil
	}})
}

// ExtractedInt declares a field whose value is the first run of digits inside
// the stringified source value ("Sprint 42" yields 42). When no digits are
// found the setter receives nil.
func (s *Schema[T]) ExtractedInt(column string, set func(*T, *int)) {
	s.fields = append(s.fields, field[T]{column: column, apply: func(rec *T, raw any, present bool) *ValidationError {
		if !present {
			set(rec, nil)
			return nil
		}
		set(rec, firstInt(coerceString(raw)))
		return nil
	}})
}

// Normalize converts raw rows into canonical records. It never fails the
// batch: the returned records and validation errors partition the input, and
// malformed fields inside accepted rows degrade to their declared defaults.
func (s *Schema[T]) Normalize(rows []Row) ([]T, []ValidationError) {
	records := make([]T, 0, len(rows))
	var errs []ValidationError

	for i, row := range rows {
		var rec T
		if s.init != nil {
			s.init(&rec)
		}
		rejected := false
		for _, f := range s.fields {
			raw, present := row[f.column]
			if ferr := f.apply(&rec, raw, present); ferr != nil {
				ferr.Row = i
				errs = append(errs, *ferr)
				rejected = true
			}
		}
		if !rejected {
			records = append(records, rec)
		}
	}
	return records, errs
}

var digitsRe = regexp.MustCompile(`[0-9]+`)

func firstInt(s string) *int {
	m := digitsRe.FindString(s)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &n
}

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// coerceNumber parses numeric cells, tolerating currency formatting the
// spreadsheet exports carry ("$1,234.50").
func coerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		s = strings.ReplaceAll(s, "$", "")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
