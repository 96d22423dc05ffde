package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/rewrite/internal/ir"
)

func TestStepQuota(t *testing.T) {
	q := NewStepQuota(2)

	assert.False(t, q.Exhausted())
	assert.True(t, q.Consume())
	assert.True(t, q.Consume())
	assert.True(t, q.Exhausted())
	assert.False(t, q.Consume(), "exhausted quota does not count further")
	assert.Equal(t, 2, q.Used())
	assert.Equal(t, 2, q.Limit())
}

func TestStepQuota_Zero(t *testing.T) {
	q := NewStepQuota(0)
	assert.True(t, q.Exhausted())
	assert.False(t, q.Consume())
	assert.Equal(t, 0, q.Used())
}

func TestPendingQueue(t *testing.T) {
	q := newPendingQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok)

	q.Enqueue(ir.NewValue("a"))
	q.Enqueue(ir.NewValue("b"))
	assert.Equal(t, 2, q.Len())

	v, ok := q.TryDequeue()
	assert.True(t, ok)
	assert.Equal(t, "a", v.Payload)

	v, ok = q.TryDequeue()
	assert.True(t, ok)
	assert.Equal(t, "b", v.Payload)
	assert.Equal(t, 0, q.Len())
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("run-1", "run-2")
	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
