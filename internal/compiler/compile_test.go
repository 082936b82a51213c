package compiler

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quri/internal/filter"
	"github.com/roach88/quri/internal/ir"
	"github.com/roach88/quri/internal/queryir"
	"github.com/roach88/quri/internal/schema"
	"github.com/roach88/quri/internal/testutil"
)

func TestCompileExpressionScalar(t *testing.T) {
	expr := filter.And(filter.Ops(filter.NewOp("title", "eq", s("hello"))))

	g, err := CompileExpression(expr, postsFields(), "posts")
	require.NoError(t, err)
	assert.Equal(t, &queryir.Group{
		Connector: ir.ConnectorAnd,
		Items: []queryir.Node{
			queryir.Constraint{Field: "posts.title", Comparison: queryir.Equals, Values: []ir.IRValue{s("hello")}, Connector: ir.ConnectorAnd},
		},
	}, g)
}

func TestCompileExpressionPreservesNesting(t *testing.T) {
	// eq(a,1) AND (eq(b,2) OR eq(c,3))
	expr := filter.And(
		filter.Ops(filter.NewOp("a", "eq", i(1))),
		filter.Or(filter.Ops(filter.NewOp("b", "eq", i(2)), filter.NewOp("c", "eq", i(3)))),
	)

	g, err := CompileExpression(expr, postsFields(), "posts")
	require.NoError(t, err)

	want := &queryir.Group{
		Connector: ir.ConnectorAnd,
		Items: []queryir.Node{
			&queryir.Group{
				Connector: ir.ConnectorOr,
				Items: []queryir.Node{
					queryir.Constraint{Field: "posts.b", Comparison: queryir.Equals, Values: []ir.IRValue{i(2)}, Connector: ir.ConnectorOr},
					queryir.Constraint{Field: "posts.c", Comparison: queryir.Equals, Values: []ir.IRValue{i(3)}, Connector: ir.ConnectorOr},
				},
			},
			queryir.Constraint{Field: "posts.a", Comparison: queryir.Equals, Values: []ir.IRValue{i(1)}, Connector: ir.ConnectorAnd},
		},
	}
	if diff := cmp.Diff(want, g); diff != "" {
		t.Errorf("constraint tree mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "AND[OR[posts.b = 2, posts.c = 3], posts.a = 1]", g.String())
}

func TestCompileExpressionDeepNesting(t *testing.T) {
	// Nested groups stay nested even when they share the parent's connector.
	expr := filter.And(nil,
		filter.And(nil,
			filter.Or(filter.Ops(filter.NewOp("a", "gt", i(1)))),
		),
	)

	g, err := CompileExpression(expr, postsFields(), "posts")
	require.NoError(t, err)
	assert.Equal(t, "AND[AND[OR[posts.a > 1]]]", g.String())
}

func TestCompileExpressionEmpty(t *testing.T) {
	g, err := CompileExpression(filter.Expr{}, postsFields(), "posts")
	require.NoError(t, err)
	assert.Equal(t, ir.ConnectorAnd, g.Connector)
	assert.Empty(t, g.Items)
	assert.True(t, g.Empty())
}

func TestCompileExpressionBetweenArity(t *testing.T) {
	bad := filter.And(filter.Ops(filter.NewOp("views", "between", i(1))))
	_, err := CompileExpression(bad, postsFields(), "posts")
	require.Error(t, err)
	assert.True(t, IsValueArity(err))

	good := filter.And(filter.Ops(filter.NewOp("views", "between", i(1), i(10))))
	g, err := CompileExpression(good, postsFields(), "posts")
	require.NoError(t, err)
	assert.Equal(t, "AND[posts.views BETWEEN 1 AND 10]", g.String())
}

func TestCompileExpressionUnknownOperatorAbortsAll(t *testing.T) {
	expr := filter.And(filter.Ops(
		filter.NewOp("a", "eq", i(1)),
		filter.NewOp("b", "eq", i(2)),
		filter.NewOp("title", "contains", s("x")),
	))

	g, err := CompileExpression(expr, postsFields(), "posts")
	require.Error(t, err)
	assert.Nil(t, g, "no partial constraints")
	assert.True(t, IsUnsupportedOperator(err))

	var fe *FilterError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "contains", fe.Operator)
	assert.Equal(t, "title", fe.Field)
}

func TestCompileExpressionErrorInNestedGroup(t *testing.T) {
	expr := filter.And(
		filter.Ops(filter.NewOp("a", "eq", i(1))),
		filter.Or(filter.Ops(filter.NewOp("secret", "eq", i(1)))),
	)

	g, err := CompileExpression(expr, postsFields(), "posts")
	assert.Nil(t, g)
	assert.True(t, IsFieldNotAllowed(err))
}

func TestCompileExpressionRelationFields(t *testing.T) {
	expr := filter.Or(filter.Ops(
		filter.NewOp("tags.name", "eq", s("foo")),
		filter.NewOp("tags.name", "eq", s("bar")),
	))

	g, err := CompileExpression(expr, postsFields(), "posts")
	require.NoError(t, err)
	assert.Equal(t, `OR[tags.name = "foo", tags.name = "bar"]`, g.String())
}

func TestCompileNullHandling(t *testing.T) {
	c := New(postsEntity{})

	g, err := c.Compile(filter.And(filter.Ops(
		filter.NewOp("title", "eq", ir.IRNull{}),
		filter.NewOp("title", "neq", ir.IRNull{}),
	)))
	require.NoError(t, err)
	assert.Equal(t, "AND[posts.title = null, posts.title != null]", g.String())

	for _, op := range []filter.Op{
		filter.NewOp("a", "gt", ir.IRNull{}),
		filter.NewOp("a", "in", i(1), ir.IRNull{}),
		filter.NewOp("a", "between", ir.IRNull{}, i(3)),
		filter.NewOp("title", "like", ir.IRNull{}),
	} {
		t.Run(op.Token, func(t *testing.T) {
			_, err := c.Compile(filter.And(filter.Ops(op)))
			require.Error(t, err)
			assert.True(t, IsInvalidValue(err))
		})
	}
}

func TestCompileRejectsObjectOperands(t *testing.T) {
	_, err := New(postsEntity{}).Compile(filter.And(filter.Ops(
		filter.NewOp("title", "eq", ir.IRObject{"x": i(1)}),
	)))
	assert.True(t, IsInvalidValue(err))
}

func TestCompileLike(t *testing.T) {
	c := New(postsEntity{})

	_, err := c.Compile(filter.And(filter.Ops(filter.NewOp("title", "like", s("%go%")))))
	require.NoError(t, err)

	_, err = c.Compile(filter.And(filter.Ops(filter.NewOp("views", "like", s("1%")))))
	assert.True(t, IsInvalidValue(err), "like on int field")

	_, err = c.Compile(filter.And(filter.Ops(filter.NewOp("title", "like", i(1)))))
	assert.True(t, IsInvalidValue(err), "non-string pattern")
}

func TestCompileInvalidConnector(t *testing.T) {
	_, err := New(postsEntity{}).Compile(filter.Expr{Conn: "XOR", Ops: filter.Ops(filter.NewOp("a", "eq", i(1)))})
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidConnector, CodeOf(err))
}

func TestCompileNilExpression(t *testing.T) {
	_, err := New(postsEntity{}).Compile(nil)
	assert.Error(t, err)
}

func nest(depth int) filter.Expr {
	expr := filter.And(filter.Ops(filter.NewOp("a", "eq", i(1))))
	for n := 1; n < depth; n++ {
		expr = filter.Or(nil, expr)
	}
	return expr
}

func TestCompileDepthCap(t *testing.T) {
	_, err := New(postsEntity{}).Compile(nest(DefaultMaxDepth))
	require.NoError(t, err)

	_, err = New(postsEntity{}).Compile(nest(DefaultMaxDepth + 1))
	require.Error(t, err)
	assert.True(t, IsDepthExceeded(err))

	_, err = New(postsEntity{}, WithMaxDepth(2)).Compile(nest(3))
	assert.True(t, IsDepthExceeded(err))

	_, err = New(postsEntity{}, WithMaxDepth(0)).Compile(nest(3))
	assert.NoError(t, err, "non-positive depth keeps the default")
}

type viewsValidator struct {
	calls int
	mu    sync.Mutex
}

func (u *viewsValidator) ValidateValues(f schema.Field, values []ir.IRValue) ([]ir.IRValue, error) {
	u.mu.Lock()
	u.calls++
	u.mu.Unlock()
	if f.Name == "views" {
		for _, v := range values {
			if n, ok := v.(ir.IRInt); ok && n < 0 {
				return nil, fmt.Errorf("negative views")
			}
		}
	}
	return values, nil
}

func TestCompileValueValidator(t *testing.T) {
	v := &viewsValidator{}
	c := New(postsEntity{}, WithValueValidator(v))

	_, err := c.Compile(filter.And(filter.Ops(
		filter.NewOp("views", "in", i(1), i(2)),
		filter.NewOp("title", "like", s("x%")),
	)))
	require.NoError(t, err)
	assert.Equal(t, 1, v.calls, "like patterns skip the validator")

	_, err = c.Compile(filter.And(filter.Ops(filter.NewOp("views", "gt", i(-1)))))
	require.Error(t, err)
	assert.True(t, IsInvalidValue(err))
	assert.Contains(t, err.Error(), "negative views")
}

func TestCompilerPlan(t *testing.T) {
	c := New(postsEntity{}, WithName("post"), WithPrimaryKey("post_id"))
	expr := filter.Or(filter.Ops(
		filter.NewOp("title", "eq", s("x")),
		filter.NewOp("author.name", "eq", s("ann")),
	))

	plan, err := c.Plan(expr)
	require.NoError(t, err)
	assert.Equal(t, "post", plan.Entity)
	assert.Equal(t, "posts", plan.Table)
	assert.Equal(t, "post_id", plan.PrimaryKey)
	require.Len(t, plan.Joins, 1)
	assert.Len(t, plan.Fingerprint, 64)
	assert.True(t, queryir.Validate(plan).Valid)
}

func TestCompileIsDeterministic(t *testing.T) {
	expr := filter.And(
		filter.Ops(filter.NewOp("a", "in", i(3), i(1), i(2)), filter.NewOp("tags.name", "eq", s("go"))),
		filter.Or(filter.Ops(filter.NewOp("author.name", "like", s("a%")), filter.NewOp("comments.body", "neq", s("spam")))),
	)
	c := New(postsEntity{})

	first, err := c.Plan(expr)
	require.NoError(t, err)
	second, err := c.Plan(expr)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("plans differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.Fingerprint, second.Fingerprint)

	other, err := c.Plan(filter.And(filter.Ops(filter.NewOp("a", "eq", i(1)))))
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, other.Fingerprint)
}

func TestCompilerConcurrentUse(t *testing.T) {
	c := ForEntity(testutil.Entity(t, "posts"))
	expr := filter.And(
		filter.Ops(filter.NewOp("views", "gte", s("10"))),
		filter.Or(filter.Ops(filter.NewOp("tags.name", "eq", s("go")), filter.NewOp("author.name", "eq", s("ann")))),
	)

	want, err := c.Plan(expr)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 16)
	for n := range results {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p, err := c.Plan(expr)
			if err == nil {
				results[n] = p.Fingerprint
			}
		}(n)
	}
	wg.Wait()

	for _, fp := range results {
		assert.Equal(t, want.Fingerprint, fp)
	}
}

func TestCompilerLogsDebugRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := New(postsEntity{}, WithLogger(logger)).Plan(filter.And(filter.Ops(filter.NewOp("a", "eq", i(1)))))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "compiled filter")
	assert.Contains(t, buf.String(), "entity=posts")
	assert.Contains(t, buf.String(), "constraints=1")
}
