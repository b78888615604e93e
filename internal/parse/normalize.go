package parse

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/casefile/internal/model"
)

var digitRun = regexp.MustCompile(`[0-9]+`)

// Normalize coerces a parsed response object into canonical case fields.
// Keys are matched exactly first, then case-insensitively.
func Normalize(obj map[string]any) model.CaseFields {
	return model.CaseFields{
		District:   Text(lookup(obj, model.FieldDistrict)),
		City:       Text(lookup(obj, model.FieldCity)),
		Year:       Int(lookup(obj, model.FieldYear)),
		Month:      Int(lookup(obj, model.FieldMonth)),
		Occurrence: Text(lookup(obj, model.FieldOccurrence)),
	}
}

func lookup(obj map[string]any, key string) any {
	if v, ok := obj[key]; ok {
		return v
	}
	for k, v := range obj {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return v
		}
	}
	return nil
}

// Int coerces v into an integer field.
//
// Native numbers are kept (fractions truncated). Strings yield their first
// run of digits, so "March 2024" gives 2024. null and blank strings are
// Absent; anything else that cannot be read is Invalid.
func Int(v any) model.Field[int] {
	switch x := v.(type) {
	case nil:
		return model.Unknown[int]()
	case int:
		return model.Known(x)
	case int64:
		return fromInt64(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return fromInt64(n)
		}
		f, err := x.Float64()
		if err != nil {
			return model.Unparsed[int]()
		}
		return fromFloat(f)
	case float64:
		return fromFloat(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return model.Unknown[int]()
		}
		run := digitRun.FindString(s)
		if run == "" {
			return model.Unparsed[int]()
		}
		n, err := strconv.Atoi(run)
		if err != nil {
			return model.Unparsed[int]()
		}
		return model.Known(n)
	default:
		return model.Unparsed[int]()
	}
}

func fromInt64(n int64) model.Field[int] {
	if n > math.MaxInt || n < math.MinInt {
		return model.Unparsed[int]()
	}
	return model.Known(int(n))
}

func fromFloat(f float64) model.Field[int] {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt || f < math.MinInt {
		return model.Unparsed[int]()
	}
	return model.Known(int(f))
}

// Text coerces v into a trimmed string field. Numbers are formatted; empty
// strings stay Present so they remain distinct from null.
func Text(v any) model.Field[string] {
	switch x := v.(type) {
	case nil:
		return model.Unknown[string]()
	case string:
		return model.Known(strings.TrimSpace(x))
	case json.Number:
		return model.Known(x.String())
	case float64:
		return model.Known(strconv.FormatFloat(x, 'f', -1, 64))
	case int:
		return model.Known(strconv.Itoa(x))
	default:
		return model.Unparsed[string]()
	}
}
