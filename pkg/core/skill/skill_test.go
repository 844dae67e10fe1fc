package skill

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoSkill struct{ id string }

func (e echoSkill) Metadata() Metadata { return Metadata{ID: e.id, Name: e.id} }

func (e echoSkill) Run(_ context.Context, text string, _ []Message, sc *Context) string {
	_, model := sc.Option()
	return e.id + ":" + text + ":" + model
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoSkill{"b"}))
	require.NoError(t, r.Register(echoSkill{"a"}))
	assert.Error(t, r.Register(echoSkill{"a"}))
	assert.Error(t, r.Register(echoSkill{""}))

	s, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, "b:hi:", s.Run(context.Background(), "hi", nil, nil))
	assert.Equal(t, "b:hi:m", s.Run(context.Background(), "hi", nil, &Context{Model: "m"}))

	_, ok = r.Get("c")
	assert.False(t, ok)
	assert.Equal(t, []Metadata{{ID: "a", Name: "a"}, {ID: "b", Name: "b"}}, r.List())
}
