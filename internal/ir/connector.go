package ir

import (
	"fmt"
	"strings"
)

// Connector is the boolean joiner of a group: AND or OR.
type Connector string

const (
	ConnectorAnd Connector = "AND"
	ConnectorOr  Connector = "OR"
)

// ParseConnector accepts "and"/"or" in any case.
func ParseConnector(s string) (Connector, error) {
	switch Connector(strings.ToUpper(strings.TrimSpace(s))) {
	case ConnectorAnd:
		return ConnectorAnd, nil
	case ConnectorOr:
		return ConnectorOr, nil
	default:
		return "", fmt.Errorf("invalid connector %q: must be AND or OR", s)
	}
}

// Valid reports whether c is AND or OR.
func (c Connector) Valid() bool {
	return c == ConnectorAnd || c == ConnectorOr
}
