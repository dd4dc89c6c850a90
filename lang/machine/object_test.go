package machine_test

import (
	"testing"

	"github.com/ivscript/iv/lang/machine"
	"github.com/stretchr/testify/require"
)

func TestObjectSetGetOwnProperty(t *testing.T) {
	o := machine.NewObject(nil)
	require.NoError(t, o.SetField("x", machine.Int(1)))

	v, err := o.Attr("x")
	require.NoError(t, err)
	require.Equal(t, machine.Int(1), v)
}

func TestObjectMissingPropertyIsNilNil(t *testing.T) {
	o := machine.NewObject(nil)
	v, err := o.Attr("missing")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestObjectInheritsFromPrototype(t *testing.T) {
	proto := machine.NewObject(nil)
	require.NoError(t, proto.SetField("greeting", machine.String("hi")))

	o := machine.NewObject(proto)
	v, err := o.Attr("greeting")
	require.NoError(t, err)
	require.Equal(t, machine.String("hi"), v)

	// Own property shadows the inherited one.
	require.NoError(t, o.SetField("greeting", machine.String("bye")))
	v, err = o.Attr("greeting")
	require.NoError(t, err)
	require.Equal(t, machine.String("bye"), v)

	// The prototype itself is unaffected.
	v, err = proto.Attr("greeting")
	require.NoError(t, err)
	require.Equal(t, machine.String("hi"), v)
}

func TestObjectsWithSameShapeShareTransition(t *testing.T) {
	a := machine.NewObject(nil)
	require.NoError(t, a.SetField("x", machine.Int(1)))
	require.NoError(t, a.SetField("y", machine.Int(2)))

	b := machine.NewObject(nil)
	require.NoError(t, b.SetField("x", machine.Int(3)))
	require.NoError(t, b.SetField("y", machine.Int(4)))

	require.ElementsMatch(t, a.AttrNames(), b.AttrNames())

	av, _ := a.Attr("y")
	bv, _ := b.Attr("y")
	require.Equal(t, machine.Int(2), av)
	require.Equal(t, machine.Int(4), bv)
}

func TestObjectDeleteProperty(t *testing.T) {
	o := machine.NewObject(nil)
	require.NoError(t, o.SetField("x", machine.Int(1)))
	o.DeleteProperty("x")

	v, err := o.Attr("x")
	require.NoError(t, err)
	require.Nil(t, v)
}
