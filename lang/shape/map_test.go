package shape_test

import (
	"testing"

	"github.com/ivscript/iv/lang/shape"
	"github.com/stretchr/testify/require"
)

func TestAddPropertySlotCount(t *testing.T) {
	a := shape.NewArena()
	root := a.NewRoot(shape.NoPrototype)

	x := shape.Intern("x")
	y := shape.Intern("y")

	m1, off1 := a.AddProperty(root, x, shape.Writable|shape.Enumerable|shape.Configurable)
	require.EqualValues(t, 0, off1)
	require.EqualValues(t, 1, a.SlotCount(m1))

	m2, off2 := a.AddProperty(m1, y, shape.Writable|shape.Enumerable|shape.Configurable)
	require.EqualValues(t, 1, off2)
	require.EqualValues(t, 2, a.SlotCount(m2))
}

func TestAddPropertyTransitionSharing(t *testing.T) {
	a := shape.NewArena()
	root := a.NewRoot(shape.NoPrototype)
	x := shape.Intern("x")
	attrs := shape.Writable | shape.Enumerable | shape.Configurable

	m1, _ := a.AddProperty(root, x, attrs)
	m2, _ := a.AddProperty(root, x, attrs)
	require.Equal(t, m1, m2, "adding the same (symbol, attributes) from the same root must share the transition")
}

func TestOffsetsStableAcrossSharedChains(t *testing.T) {
	a := shape.NewArena()
	root := a.NewRoot(shape.NoPrototype)
	x := shape.Intern("x")
	y := shape.Intern("y")
	z := shape.Intern("z")
	attrs := shape.Writable | shape.Enumerable | shape.Configurable

	base, _ := a.AddProperty(root, x, attrs)

	left, offLeft := a.AddProperty(base, y, attrs)
	right, offRight := a.AddProperty(base, z, attrs)
	_ = left
	_ = right

	// y and z are independent branches from the same ancestor; x's offset in
	// both descendants must match the offset recorded on `base`, and each new
	// property takes base's next free slot.
	require.Equal(t, a.Get(base, x).Offset, a.Get(left, x).Offset)
	require.Equal(t, a.Get(base, x).Offset, a.Get(right, x).Offset)
	require.Equal(t, offLeft, offRight)
}

func TestDeleteThenAddReusesOffsetLIFO(t *testing.T) {
	a := shape.NewArena()
	root := a.NewRoot(shape.NoPrototype)
	x := shape.Intern("x")
	y := shape.Intern("y")
	attrs := shape.Writable | shape.Enumerable | shape.Configurable

	m1, offX := a.AddProperty(root, x, attrs)
	m2, offY := a.AddProperty(m1, y, attrs)
	require.NotEqual(t, offX, offY)

	m3 := a.DeleteProperty(m2, y)
	require.True(t, a.Get(m3, y).IsNotFound())

	z := shape.Intern("z")
	m4, offZ := a.AddProperty(m3, z, attrs)
	_ = m4
	require.Equal(t, offY, offZ, "offset freed by delete_property must be reused LIFO")
}

func TestMaxTransitionForksUnique(t *testing.T) {
	a := shape.NewArena()
	cur := a.NewRoot(shape.NoPrototype)
	attrs := shape.Writable | shape.Enumerable | shape.Configurable

	// Cross the transition bound.
	for i := 0; i <= shape.MaxTransition+1; i++ {
		sym := shape.Intern(string(rune('a' + (i % 26))))
		cur, _ = a.AddProperty(cur, sym, attrs)
	}
	require.True(t, a.IsUnique(cur), "crossing MaxTransition must force a unique fork")

	// Adding a further property to the unique fork keeps it unique.
	again, _ := a.AddProperty(cur, shape.Intern("standalone"), attrs)
	require.True(t, a.IsUnique(again))
}

func TestGetMaterializesTableLazily(t *testing.T) {
	a := shape.NewArena()
	root := a.NewRoot(shape.NoPrototype)
	attrs := shape.Writable | shape.Enumerable | shape.Configurable

	syms := []shape.Symbol{shape.Intern("a"), shape.Intern("b"), shape.Intern("c")}
	cur := root
	for _, s := range syms {
		cur, _ = a.AddProperty(cur, s, attrs)
	}

	for i, s := range syms {
		e := a.Get(cur, s)
		require.False(t, e.IsNotFound())
		require.EqualValues(t, i, e.Offset)
	}
	require.True(t, a.Get(cur, shape.Intern("missing")).IsNotFound())
}

func TestUniqueMapMutatesInPlaceUnlessFlattened(t *testing.T) {
	a := shape.NewArena()
	uniq := a.NewUniqueRoot(shape.NoPrototype)
	attrs := shape.Writable | shape.Enumerable | shape.Configurable
	x := shape.Intern("x")

	m1, _ := a.AddProperty(uniq, x, attrs)
	require.Equal(t, uniq, m1, "mutating an un-flattened unique map returns the same map")

	a.Flatten(m1)
	y := shape.Intern("y")
	m2, _ := a.AddProperty(m1, y, attrs)
	require.NotEqual(t, m1, m2, "a flattened unique map forks on further mutation")
	require.False(t, a.Get(m2, x).IsNotFound(), "the fork still sees properties added before Flatten")
}

func TestChangePrototypeTransitionSharing(t *testing.T) {
	a := shape.NewArena()
	root := a.NewRoot(shape.NoPrototype)

	p1, p2 := shape.Prototype(1), shape.Prototype(2)
	m1 := a.ChangePrototype(root, p1)
	m2 := a.ChangePrototype(root, p1)
	require.Equal(t, m1, m2)
	require.Equal(t, p1, a.Prototype(m1))

	m3 := a.ChangePrototype(root, p2)
	require.NotEqual(t, m1, m3)
}

func TestStorageCapacity(t *testing.T) {
	cases := []struct{ slots, want uint32 }{
		{0, 0}, {1, 1}, {2, 2}, {3, 4}, {4, 4}, {5, 8}, {17, 32},
	}
	for _, c := range cases {
		require.EqualValues(t, c.want, shape.StorageCapacity(c.slots))
	}
}
