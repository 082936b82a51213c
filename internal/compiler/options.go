package compiler

import (
	"io"
	"log/slog"

	"github.com/roach88/quri/internal/schema"
)

// DefaultMaxDepth caps group nesting. The root group is depth 1.
const DefaultMaxDepth = 32

// Option configures a Compiler.
type Option func(*Compiler)

// WithRelationWhitelist narrows the fields reachable through relations.
func WithRelationWhitelist(w schema.RelationWhitelister) Option {
	return func(c *Compiler) {
		c.whitelist = w
	}
}

// WithValueValidator validates and normalizes every operand.
func WithValueValidator(v schema.ValueValidator) Option {
	return func(c *Compiler) {
		c.validator = v
	}
}

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(c *Compiler) {
		if depth >= 1 {
			c.maxDepth = depth
		}
	}
}

// WithPrimaryKey sets the primary key recorded in plans (default "id").
func WithPrimaryKey(key string) Option {
	return func(c *Compiler) {
		if key != "" {
			c.primaryKey = key
		}
	}
}

// WithName sets the entity name recorded in plans. Defaults to the
// primary storage name.
func WithName(name string) Option {
	return func(c *Compiler) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger sets the logger. Compiles log at debug level only.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
