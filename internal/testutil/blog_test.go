package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlogRegistry(t *testing.T) {
	reg := BlogRegistry(t)
	assert.Equal(t, []string{"attachments", "comments", "posts", "tags", "users"}, reg.Names())
}

func TestEntity(t *testing.T) {
	posts := Entity(t, "posts")
	assert.Equal(t, "posts", posts.PrimaryStorageName())
}

func TestBlogSQL(t *testing.T) {
	sql := BlogSQL(t)
	assert.Contains(t, sql, "CREATE TABLE posts")
	assert.Contains(t, sql, "INSERT INTO post_tag")
}
