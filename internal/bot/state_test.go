package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStateStore_GetCreatesEmpty(t *testing.T) {
	s := NewStateStore()
	st := s.Get(1)
	require.Equal(t, StepNone, st.Step)

	s.Set(1, func(st *State) { st.Step = StepCheckoutName })
	require.Equal(t, StepCheckoutName, s.Get(1).Step)

	// чужой чат не затронут
	require.Equal(t, StepNone, s.Get(2).Step)

	s.Clear(1)
	require.Equal(t, StepNone, s.Get(1).Step)
}

func TestStateStore_Expire(t *testing.T) {
	s := NewStateStore()
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	s.Set(1, func(st *State) { st.Step = StepCheckoutName })
	current = current.Add(2 * time.Hour)
	s.Set(2, func(st *State) { st.Step = StepEnterDiscount })

	n := s.Expire(time.Hour)
	require.Equal(t, 1, n)
	require.Equal(t, StepNone, s.Get(1).Step)
	require.Equal(t, StepEnterDiscount, s.Get(2).Step)
}

func TestStateStore_DraftIsolation(t *testing.T) {
	s := NewStateStore()
	s.Set(5, func(st *State) {
		st.Step = StepCheckoutPhone
		st.Checkout.FullName = "علی"
	})
	st := s.Get(5)
	require.Equal(t, "علی", st.Checkout.FullName)
	require.Empty(t, st.Product.Name)
}
