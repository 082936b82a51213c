package compiler

import (
	"errors"
	"fmt"
)

// FilterError reports why a filter was rejected. Filter errors are caused
// by the caller's input and are never retryable.
type FilterError struct {
	// Code identifies the error category.
	Code FilterErrorCode

	// Message is a human-readable description.
	Message string

	// Field is the field name as written in the filter, when known.
	Field string

	// Operator is the operator token, when known.
	Operator string

	// Relation is the relation prefix, when known.
	Relation string

	// Details contains additional context.
	Details map[string]string
}

// FilterErrorCode categorizes filter errors.
type FilterErrorCode string

const (
	// ErrCodeFieldNotAllowed indicates a field absent from the whitelist.
	ErrCodeFieldNotAllowed FilterErrorCode = "FIELD_NOT_ALLOWED"

	// ErrCodeRelationNotAllowed indicates a prefix that is not a relationship.
	ErrCodeRelationNotAllowed FilterErrorCode = "RELATION_NOT_ALLOWED"

	// ErrCodeUnsupportedOperator indicates an unknown operator token.
	ErrCodeUnsupportedOperator FilterErrorCode = "UNSUPPORTED_OPERATOR"

	// ErrCodeValueArity indicates the wrong number of operands.
	ErrCodeValueArity FilterErrorCode = "VALUE_ARITY"

	// ErrCodeUnsupportedRelation indicates a cardinality with no join strategy.
	ErrCodeUnsupportedRelation FilterErrorCode = "UNSUPPORTED_RELATION"

	// ErrCodeInvalidValue indicates an operand rejected by type or rule checks.
	ErrCodeInvalidValue FilterErrorCode = "INVALID_VALUE"

	// ErrCodeDepthExceeded indicates nesting deeper than the configured cap.
	ErrCodeDepthExceeded FilterErrorCode = "DEPTH_EXCEEDED"

	// ErrCodeInvalidConnector indicates a group connector other than AND/OR.
	ErrCodeInvalidConnector FilterErrorCode = "INVALID_CONNECTOR"
)

// Error implements the error interface.
func (e *FilterError) Error() string {
	switch {
	case e.Field != "" && e.Operator != "":
		return fmt.Sprintf("%s: %s (field=%s, op=%s)", e.Code, e.Message, e.Field, e.Operator)
	case e.Field != "":
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	case e.Operator != "":
		return fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Operator)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the filter error code carried by err, or "" if err is not
// a *FilterError.
func CodeOf(err error) FilterErrorCode {
	var fe *FilterError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsFilterError returns true if err is any *FilterError.
func IsFilterError(err error) bool {
	return CodeOf(err) != ""
}

// IsFieldNotAllowed returns true if err rejects a non-whitelisted field.
// Uses errors.As to handle wrapped errors.
func IsFieldNotAllowed(err error) bool {
	return CodeOf(err) == ErrCodeFieldNotAllowed
}

// IsRelationNotAllowed returns true if err rejects an unknown relation prefix.
func IsRelationNotAllowed(err error) bool {
	return CodeOf(err) == ErrCodeRelationNotAllowed
}

// IsUnsupportedOperator returns true if err rejects an operator token.
func IsUnsupportedOperator(err error) bool {
	return CodeOf(err) == ErrCodeUnsupportedOperator
}

// IsValueArity returns true if err rejects an operand count.
func IsValueArity(err error) bool {
	return CodeOf(err) == ErrCodeValueArity
}

// IsUnsupportedRelation returns true if err rejects a relationship kind.
func IsUnsupportedRelation(err error) bool {
	return CodeOf(err) == ErrCodeUnsupportedRelation
}

// IsInvalidValue returns true if err rejects an operand.
func IsInvalidValue(err error) bool {
	return CodeOf(err) == ErrCodeInvalidValue
}

// IsDepthExceeded returns true if err rejects an over-nested expression.
func IsDepthExceeded(err error) bool {
	return CodeOf(err) == ErrCodeDepthExceeded
}
