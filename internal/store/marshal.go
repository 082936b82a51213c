package store

import (
	"fmt"

	"github.com/roach88/quri/internal/ir"
)

// MarshalRows encodes rows as canonical JSON, the form golden files and
// the CLI's JSON output use.
func MarshalRows(rows []ir.IRObject) ([]byte, error) {
	list := make([]any, len(rows))
	for i, row := range rows {
		list[i] = row
	}
	data, err := ir.MarshalCanonical(list)
	if err != nil {
		return nil, fmt.Errorf("marshal rows: %w", err)
	}
	return data, nil
}

// Column returns one column of every row, in row order.
func Column(rows []ir.IRObject, name string) []ir.IRValue {
	out := make([]ir.IRValue, len(rows))
	for i, row := range rows {
		v, ok := row[name]
		if !ok {
			v = ir.IRNull{}
		}
		out[i] = v
	}
	return out
}
