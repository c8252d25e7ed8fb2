package observe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_SubscribeReceivesCurrentThenUpdates(t *testing.T) {
	v := NewValue(1)

	var seen []int
	unsub := v.Subscribe(func(n int) { seen = append(seen, n) })

	v.Set(2)
	v.Update(func(n int) int { return n * 10 })

	assert.Equal(t, []int{1, 2, 20}, seen)
	assert.Equal(t, 20, v.Get())

	unsub()
	v.Set(3)
	assert.Equal(t, []int{1, 2, 20}, seen, "unsubscribed callback should not fire")
}

func TestValue_NotifiesInRegistrationOrder(t *testing.T) {
	v := NewValue("")
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		v.Subscribe(func(s string) {
			if s != "" {
				order = append(order, name)
			}
		})
	}
	v.Set("x")
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestValue_SubscriberMaySetReentrantly(t *testing.T) {
	v := NewValue(0)
	v.Subscribe(func(n int) {
		if n == 1 {
			v.Set(2)
		}
	})
	v.Set(1)
	assert.Equal(t, 2, v.Get())
}

func TestDerive_RecomputesSynchronously(t *testing.T) {
	src := NewValue([]int{1, 2, 3})
	sum := Derive[[]int](src, func(xs []int) int {
		total := 0
		for _, x := range xs {
			total += x
		}
		return total
	})
	require.Equal(t, 6, sum.Get())

	src.Set([]int{10})
	assert.Equal(t, 10, sum.Get())

	double := Derive[int](sum, func(n int) int { return n * 2 })
	src.Set([]int{4, 4})
	assert.Equal(t, 8, sum.Get())
	assert.Equal(t, 16, double.Get())

	sum.Detach()
	src.Set([]int{1})
	assert.Equal(t, 8, sum.Get(), "detached view keeps its last value")
}

func TestOutcome(t *testing.T) {
	ok := Outcome{}
	assert.True(t, ok.OK())
	assert.Empty(t, ok.Message())

	failed := Failed(errors.New("boom"))
	assert.False(t, failed.OK())
	assert.Equal(t, "boom", failed.Message())
}
