package querysql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quri/internal/compiler"
	"github.com/roach88/quri/internal/filter"
	"github.com/roach88/quri/internal/ir"
	"github.com/roach88/quri/internal/queryir"
	"github.com/roach88/quri/internal/testutil"
)

func tagsJoin() queryir.JoinSpec {
	return queryir.JoinSpec{
		Relation: "tags",
		Table:    "tags",
		Kind:     queryir.JoinLeft,
		On:       queryir.JoinCondition{Left: "tags_via.tag_id", Right: "tags.id"},
		Via: &queryir.JoinStep{
			Table: "post_tag",
			Alias: "tags_via",
			On:    queryir.JoinCondition{Left: "posts.id", Right: "tags_via.post_id"},
		},
	}
}

func plan(where *queryir.Group, joins ...queryir.JoinSpec) *queryir.Plan {
	return &queryir.Plan{Entity: "posts", Table: "posts", PrimaryKey: "id", Where: where, Joins: joins}
}

func group(conn ir.Connector, items ...queryir.Node) *queryir.Group {
	g := queryir.NewGroup(conn)
	for _, item := range items {
		switch n := item.(type) {
		case queryir.Constraint:
			g.Add(n)
		case *queryir.Group:
			g.AddGroup(n)
		}
	}
	return g
}

func c(field string, cmp queryir.Comparison, values ...ir.IRValue) queryir.Constraint {
	return queryir.Constraint{Field: field, Comparison: cmp, Values: values}
}

func TestBuild_Simple(t *testing.T) {
	sql, args, err := Build(plan(group(ir.ConnectorAnd, c("posts.title", queryir.Equals, ir.IRString("hello")))))
	require.NoError(t, err)
	assert.Equal(t, "SELECT DISTINCT posts.* FROM posts WHERE (posts.title = ?) ORDER BY posts.id ASC", sql)
	assert.Equal(t, []any{"hello"}, args)
}

func TestBuild_OrderByMandatory(t *testing.T) {
	sql, args, err := Build(plan(nil))
	require.NoError(t, err)
	assert.Equal(t, "SELECT DISTINCT posts.* FROM posts ORDER BY posts.id ASC", sql)
	assert.Empty(t, args)
}

func TestBuild_EmptyGroupsAddNoWhere(t *testing.T) {
	sql, _, err := Build(plan(group(ir.ConnectorAnd, group(ir.ConnectorOr))))
	require.NoError(t, err)
	assert.Equal(t, "SELECT DISTINCT posts.* FROM posts ORDER BY posts.id ASC", sql)
}

func TestBuild_Nesting(t *testing.T) {
	where := group(ir.ConnectorAnd,
		group(ir.ConnectorOr,
			c("posts.b", queryir.Equals, ir.IRInt(2)),
			c("posts.c", queryir.Equals, ir.IRInt(3)),
		),
		c("posts.a", queryir.Equals, ir.IRInt(1)),
	)

	sql, args, err := Build(plan(where))
	require.NoError(t, err)
	assert.Equal(t, "SELECT DISTINCT posts.* FROM posts WHERE ((posts.b = ? OR posts.c = ?) AND posts.a = ?) ORDER BY posts.id ASC", sql)
	assert.Equal(t, []any{int64(2), int64(3), int64(1)}, args)
}

func TestBuild_ManyToManyJoin(t *testing.T) {
	where := group(ir.ConnectorOr,
		c("tags.name", queryir.Equals, ir.IRString("foo")),
		c("tags.name", queryir.Equals, ir.IRString("bar")),
	)

	sql, args, err := Build(plan(where, tagsJoin()))
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT DISTINCT posts.* FROM posts "+
			"LEFT JOIN post_tag AS tags_via ON posts.id = tags_via.post_id "+
			"LEFT JOIN tags AS tags ON tags_via.tag_id = tags.id "+
			"WHERE (tags.name = ? OR tags.name = ?) ORDER BY posts.id ASC",
		sql)
	assert.Equal(t, []any{"foo", "bar"}, args)
}

func TestBuild_UnaliasedJunction(t *testing.T) {
	j := queryir.JoinSpec{
		Relation: "tags",
		Table:    "tags",
		Kind:     queryir.JoinLeft,
		On:       queryir.JoinCondition{Left: "post_tag.tag_id", Right: "tags.id"},
		Via:      &queryir.JoinStep{Table: "post_tag", On: queryir.JoinCondition{Left: "posts.id", Right: "post_tag.post_id"}},
	}

	sql, _, err := Build(plan(group(ir.ConnectorAnd, c("tags.name", queryir.Equals, ir.IRString("go"))), j))
	require.NoError(t, err)
	assert.Contains(t, sql, "LEFT JOIN post_tag ON posts.id = post_tag.post_id LEFT JOIN tags AS tags ON post_tag.tag_id = tags.id")
}

func TestBuild_InnerJoin(t *testing.T) {
	j := queryir.JoinSpec{
		Relation: "author",
		Table:    "users",
		Kind:     queryir.JoinInner,
		On:       queryir.JoinCondition{Left: "posts.author_id", Right: "author.id"},
	}
	sql, _, err := Build(plan(group(ir.ConnectorAnd, c("author.name", queryir.Equals, ir.IRString("ann"))), j))
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM posts JOIN users AS author ON posts.author_id = author.id WHERE")
}

func TestBuild_Comparisons(t *testing.T) {
	tests := []struct {
		name string
		c    queryir.Constraint
		sql  string
		args []any
	}{
		{"eq", c("posts.a", queryir.Equals, ir.IRInt(1)), "posts.a = ?", []any{int64(1)}},
		{"neq", c("posts.a", queryir.NotEquals, ir.IRInt(1)), "posts.a <> ?", []any{int64(1)}},
		{"gt", c("posts.a", queryir.GreaterThan, ir.IRInt(1)), "posts.a > ?", []any{int64(1)}},
		{"lt", c("posts.a", queryir.LessThan, ir.IRInt(1)), "posts.a < ?", []any{int64(1)}},
		{"gte", c("posts.a", queryir.GreaterOrEqual, ir.IRInt(1)), "posts.a >= ?", []any{int64(1)}},
		{"lte", c("posts.a", queryir.LessOrEqual, ir.IRInt(1)), "posts.a <= ?", []any{int64(1)}},
		{"like", c("posts.t", queryir.Like, ir.IRString("go%")), "posts.t LIKE ?", []any{"go%"}},
		{"between", c("posts.a", queryir.Between, ir.IRInt(1), ir.IRInt(9)), "posts.a BETWEEN ? AND ?", []any{int64(1), int64(9)}},
		{"in", c("posts.a", queryir.In, ir.IRInt(1), ir.IRInt(2), ir.IRInt(3)), "posts.a IN (?,?,?)", []any{int64(1), int64(2), int64(3)}},
		{"nin", c("posts.a", queryir.NotIn, ir.IRInt(4)), "posts.a NOT IN (?)", []any{int64(4)}},
		{"is null", c("posts.t", queryir.Equals, ir.IRNull{}), "posts.t IS NULL", nil},
		{"is not null", c("posts.t", queryir.NotEquals, ir.IRNull{}), "posts.t IS NOT NULL", nil},
		{"bool", c("posts.f", queryir.Equals, ir.IRBool(true)), "posts.f = ?", []any{true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := Condition(tt.c.Field, tt.c.Comparison, tt.c.Values)
			require.NoError(t, err)
			sql, args, err := cond.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			if tt.args == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.args, args)
			}
		})
	}
}

func TestCondition_Rejects(t *testing.T) {
	_, err := Condition("posts.a", queryir.Between, []ir.IRValue{ir.IRInt(1)})
	assert.Error(t, err)

	_, err = Condition("posts.a", queryir.Equals, []ir.IRValue{ir.IRObject{}})
	assert.Error(t, err)

	_, err = Condition("posts.a", "~", []ir.IRValue{ir.IRInt(1)})
	assert.Error(t, err)
}

func TestBuild_NoStringInterpolation(t *testing.T) {
	hostile := "'; DROP TABLE posts; --"
	sql, args, err := Build(plan(group(ir.ConnectorAnd, c("posts.title", queryir.Equals, ir.IRString(hostile)))))
	require.NoError(t, err)
	assert.NotContains(t, sql, "DROP")
	assert.Equal(t, []any{hostile}, args)
}

func TestBuild_PostgresPlaceholders(t *testing.T) {
	where := group(ir.ConnectorAnd,
		c("posts.a", queryir.Between, ir.IRInt(1), ir.IRInt(5)),
		c("posts.b", queryir.In, ir.IRInt(7), ir.IRInt(8)),
	)
	sql, _, err := Build(plan(where), WithDialect(DialectPostgres))
	require.NoError(t, err)
	assert.Equal(t, "SELECT DISTINCT posts.* FROM posts WHERE (posts.a BETWEEN $1 AND $2 AND posts.b IN ($3,$4)) ORDER BY posts.id ASC", sql)
}

func TestBuild_RejectsInvalidPlan(t *testing.T) {
	_, _, err := Build(plan(group(ir.ConnectorAnd, c("tags.name", queryir.Equals, ir.IRString("x")))))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not joined")

	_, _, err = Build(nil)
	assert.Error(t, err)
}

func TestBuilder_Unbalanced(t *testing.T) {
	b := NewBuilder("posts", "id")
	require.NoError(t, b.BeginGroup(ir.ConnectorAnd))
	_, _, err := b.ToSql(DialectSQLite)
	assert.Error(t, err)

	assert.Error(t, NewBuilder("posts", "id").EndGroup())
	assert.Error(t, NewBuilder("posts", "id").ApplyConstraint("posts.a", queryir.Equals, []ir.IRValue{ir.IRInt(1)}, ir.ConnectorAnd))
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("SQLite")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)

	d, err = ParseDialect(" postgres ")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)

	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}

func TestBuild_FromCompiledPlan(t *testing.T) {
	c := compiler.ForEntity(testutil.Entity(t, "posts"))
	expr := filter.And(
		filter.Ops(filter.NewOp("status", "eq", ir.IRString("published"))),
		filter.Or(filter.Ops(
			filter.NewOp("tags.name", "eq", ir.IRString("go")),
			filter.NewOp("author.name", "eq", ir.IRString("bob")),
		)),
	)

	p, err := c.Plan(expr)
	require.NoError(t, err)

	sql, args, err := Build(p)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT DISTINCT posts.* FROM posts "+
			"LEFT JOIN post_tag AS tags_via ON posts.id = tags_via.post_id "+
			"LEFT JOIN tags AS tags ON tags_via.tag_id = tags.id "+
			"LEFT JOIN users AS author ON posts.author_id = author.id "+
			"WHERE ((tags.name = ? OR author.name = ?) AND posts.status = ?) ORDER BY posts.id ASC",
		sql)
	assert.Equal(t, []any{"go", "bob", "published"}, args)
	assert.Equal(t, 3, strings.Count(sql, "?"))
}
