package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quri/internal/ir"
)

func TestComparison_Arity(t *testing.T) {
	tests := []struct {
		cmp    Comparison
		lo, hi int
	}{
		{Equals, 1, 1},
		{NotEquals, 1, 1},
		{GreaterThan, 1, 1},
		{LessOrEqual, 1, 1},
		{Like, 1, 1},
		{Between, 2, 2},
		{In, 1, Unbounded},
		{NotIn, 1, Unbounded},
		{Comparison("~"), 0, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.cmp), func(t *testing.T) {
			lo, hi := tt.cmp.Arity()
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}
}

func TestComparison_Accepts(t *testing.T) {
	assert.True(t, Equals.Accepts(1))
	assert.False(t, Equals.Accepts(0))
	assert.False(t, Equals.Accepts(2))
	assert.True(t, Between.Accepts(2))
	assert.False(t, Between.Accepts(1))
	assert.False(t, Between.Accepts(3))
	assert.True(t, In.Accepts(1))
	assert.True(t, In.Accepts(50))
	assert.False(t, In.Accepts(0))
	assert.False(t, Comparison("~").Accepts(1))
}

func TestComparison_AllowsNull(t *testing.T) {
	assert.True(t, Equals.AllowsNull())
	assert.True(t, NotEquals.AllowsNull())
	assert.False(t, In.AllowsNull())
	assert.False(t, GreaterThan.AllowsNull())
}

func TestConstraint_ImplementsNode(t *testing.T) {
	var n Node = Constraint{Field: "posts.id"}
	switch n.(type) {
	case Constraint:
	case *Group:
		t.Fatal("unexpected type")
	}

	n = NewGroup(ir.ConnectorAnd)
	_, ok := n.(*Group)
	assert.True(t, ok)
}

func TestConstraint_Relation(t *testing.T) {
	assert.Equal(t, "tags", Constraint{Field: "tags.name"}.Relation())
	assert.Equal(t, "posts", Constraint{Field: "posts.id"}.Relation())
}

func TestConstraint_String(t *testing.T) {
	tests := []struct {
		name string
		c    Constraint
		want string
	}{
		{"equals string", Constraint{Field: "posts.title", Comparison: Equals, Values: []ir.IRValue{ir.IRString("foo")}}, `posts.title = "foo"`},
		{"equals null", Constraint{Field: "posts.title", Comparison: Equals, Values: []ir.IRValue{ir.IRNull{}}}, `posts.title = null`},
		{"between", Constraint{Field: "posts.views", Comparison: Between, Values: []ir.IRValue{ir.IRInt(1), ir.IRInt(9)}}, `posts.views BETWEEN 1 AND 9`},
		{"in", Constraint{Field: "posts.id", Comparison: In, Values: []ir.IRValue{ir.IRInt(1), ir.IRInt(2)}}, `posts.id IN (1, 2)`},
		{"not in", Constraint{Field: "posts.id", Comparison: NotIn, Values: []ir.IRValue{ir.IRInt(3)}}, `posts.id NOT IN (3)`},
		{"like", Constraint{Field: "tags.name", Comparison: Like, Values: []ir.IRValue{ir.IRString("go%")}}, `tags.name LIKE "go%"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.String())
		})
	}
}

func TestGroup_AddStampsConnector(t *testing.T) {
	g := NewGroup(ir.ConnectorOr)
	g.Add(Constraint{Field: "posts.a", Comparison: Equals, Values: []ir.IRValue{ir.IRInt(1)}, Connector: ir.ConnectorAnd})

	require.Len(t, g.Items, 1)
	c := g.Items[0].(Constraint)
	assert.Equal(t, ir.ConnectorOr, c.Connector)
}

func TestGroup_ConstraintsDepthFirst(t *testing.T) {
	inner := NewGroup(ir.ConnectorOr)
	inner.Add(Constraint{Field: "posts.b", Comparison: Equals, Values: []ir.IRValue{ir.IRInt(2)}})
	inner.Add(Constraint{Field: "posts.c", Comparison: Equals, Values: []ir.IRValue{ir.IRInt(3)}})

	root := NewGroup(ir.ConnectorAnd)
	root.Add(Constraint{Field: "posts.a", Comparison: Equals, Values: []ir.IRValue{ir.IRInt(1)}})
	root.AddGroup(inner)

	var fields []string
	for _, c := range root.Constraints() {
		fields = append(fields, c.Field)
	}
	assert.Equal(t, []string{"posts.a", "posts.b", "posts.c"}, fields)
	assert.Equal(t, `AND[posts.a = 1, OR[posts.b = 2, posts.c = 3]]`, root.String())
	assert.False(t, root.Empty())
}

func TestGroup_Empty(t *testing.T) {
	var nilGroup *Group
	assert.True(t, nilGroup.Empty())

	root := NewGroup(ir.ConnectorAnd)
	root.AddGroup(NewGroup(ir.ConnectorOr))
	assert.True(t, root.Empty(), "nested empty groups hold no constraint")
	assert.Equal(t, "AND[OR[]]", root.String())
}

func TestJoinSpec_String(t *testing.T) {
	j := JoinSpec{
		Relation: "tags",
		Table:    "tags",
		Kind:     JoinLeft,
		On:       JoinCondition{Left: "post_tag.tag_id", Right: "tags.id"},
		Via:      &JoinStep{Table: "post_tag", On: JoinCondition{Left: "posts.id", Right: "post_tag.post_id"}},
	}
	assert.Equal(t,
		"LEFT JOIN post_tag ON posts.id = post_tag.post_id; LEFT JOIN tags AS tags ON post_tag.tag_id = tags.id",
		j.String())
}

func TestJoinSpec_StringAliasedJunction(t *testing.T) {
	j := JoinSpec{
		Relation: "tags",
		Table:    "tags",
		Kind:     JoinLeft,
		On:       JoinCondition{Left: "tags_via.tag_id", Right: "tags.id"},
		Via:      &JoinStep{Table: "taggables", Alias: "tags_via", On: JoinCondition{Left: "posts.id", Right: "tags_via.post_id"}},
	}
	assert.Equal(t,
		"LEFT JOIN taggables AS tags_via ON posts.id = tags_via.post_id; LEFT JOIN tags AS tags ON tags_via.tag_id = tags.id",
		j.String())
	assert.Equal(t, "tags_via", j.Via.Name())
	assert.Equal(t, "taggables", JoinStep{Table: "taggables"}.Name())

	p := &Plan{Entity: "posts", Table: "posts", PrimaryKey: "id", Where: NewGroup(ir.ConnectorAnd), Joins: []JoinSpec{j}}
	b, err := ir.MarshalCanonical(p.Canonical())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"via":{"alias":"tags_via","on":["posts.id","tags_via.post_id"],"table":"taggables"}`)
}

func TestPlan_String(t *testing.T) {
	where := NewGroup(ir.ConnectorAnd)
	where.Add(Constraint{Field: "author.name", Comparison: Equals, Values: []ir.IRValue{ir.IRString("ann")}})
	p := &Plan{
		Entity:     "posts",
		Table:      "posts",
		PrimaryKey: "id",
		Where:      where,
		Joins: []JoinSpec{{
			Relation: "author",
			Table:    "users",
			Kind:     JoinLeft,
			On:       JoinCondition{Left: "posts.author_id", Right: "author.id"},
		}},
	}

	want := "entity: posts (posts.id)\n" +
		"joins:\n" +
		"  LEFT JOIN users AS author ON posts.author_id = author.id\n" +
		"where: AND[author.name = \"ann\"]\n"
	assert.Equal(t, want, p.String())
}

func TestPlan_CanonicalIsFingerprintable(t *testing.T) {
	where := NewGroup(ir.ConnectorAnd)
	where.Add(Constraint{Field: "posts.id", Comparison: In, Values: []ir.IRValue{ir.IRInt(1), ir.IRNull{}}})
	p := &Plan{
		Entity:     "posts",
		Table:      "posts",
		PrimaryKey: "id",
		Where:      where,
		Joins: []JoinSpec{{
			Relation: "tags",
			Table:    "tags",
			Kind:     JoinLeft,
			On:       JoinCondition{Left: "post_tag.tag_id", Right: "tags.id"},
			Via:      &JoinStep{Table: "post_tag", On: JoinCondition{Left: "posts.id", Right: "post_tag.post_id"}},
		}},
	}

	b, err := ir.MarshalCanonical(p.Canonical())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"via":{"on":["posts.id","post_tag.post_id"],"table":"post_tag"}`)
	assert.Contains(t, string(b), `"values":[1,null]`)

	fp1, err := ir.Fingerprint(ir.DomainPlan, p.Canonical())
	require.NoError(t, err)
	fp2, err := ir.Fingerprint(ir.DomainPlan, p.Canonical())
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64)
}
