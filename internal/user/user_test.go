package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	u := &User{Name: "Kari", Email: "kari@nav.no"}
	ctx := WithUser(context.Background(), u)
	assert.Same(t, u, FromContext(ctx))
}

func TestInGroup(t *testing.T) {
	u := &User{Groups: []string{"a", "b"}}
	assert.True(t, u.InGroup("b"))
	assert.False(t, u.InGroup("c"))
	assert.False(t, u.InGroup(""))
}
