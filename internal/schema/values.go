package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/quri/internal/ir"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

// Coerce converts v to the representation stored for typ. Nulls pass
// through unchanged; null handling is the operator's business.
//
// Timestamps are normalized to UTC "YYYY-MM-DD HH:MM:SS" so that text
// comparison in the store orders them chronologically.
func Coerce(typ FieldType, v ir.IRValue) (ir.IRValue, error) {
	if ir.IsNull(v) {
		return v, nil
	}

	switch typ {
	case TypeInt:
		switch x := v.(type) {
		case ir.IRInt:
			return x, nil
		case ir.IRString:
			n, err := strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not an integer", string(x))
			}
			return ir.IRInt(n), nil
		}

	case TypeBoolean:
		switch x := v.(type) {
		case ir.IRBool:
			return x, nil
		case ir.IRInt:
			switch x {
			case 0:
				return ir.IRBool(false), nil
			case 1:
				return ir.IRBool(true), nil
			}
			return nil, fmt.Errorf("%d is not a boolean", int64(x))
		case ir.IRString:
			switch strings.ToLower(strings.TrimSpace(string(x))) {
			case "true", "1":
				return ir.IRBool(true), nil
			case "false", "0":
				return ir.IRBool(false), nil
			}
			return nil, fmt.Errorf("%q is not a boolean", string(x))
		}

	case TypeDate:
		if s, ok := v.(ir.IRString); ok {
			t, err := time.Parse(dateLayout, strings.TrimSpace(string(s)))
			if err != nil {
				return nil, fmt.Errorf("%q is not a date (YYYY-MM-DD)", string(s))
			}
			return ir.IRString(t.Format(dateLayout)), nil
		}

	case TypeTimestamp:
		if s, ok := v.(ir.IRString); ok {
			t, err := parseTimestamp(strings.TrimSpace(string(s)))
			if err != nil {
				return nil, err
			}
			return ir.IRString(t.UTC().Format(timestampLayout)), nil
		}

	case TypeString:
		switch x := v.(type) {
		case ir.IRString:
			return x, nil
		case ir.IRInt:
			return ir.IRString(strconv.FormatInt(int64(x), 10)), nil
		case ir.IRBool:
			return ir.IRString(strconv.FormatBool(bool(x))), nil
		}

	default:
		return nil, fmt.Errorf("unknown field type %q", typ)
	}

	return nil, fmt.Errorf("%s is not a valid %s value", ir.Literal(v), typ)
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, timestampLayout, dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a timestamp (RFC 3339 or YYYY-MM-DD HH:MM:SS)", s)
}
