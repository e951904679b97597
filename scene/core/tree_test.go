package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/balok/scene/linalg"
)

const eps = 1e-9

func unit() mgl64.Vec3 { return mgl64.Vec3{1, 1, 1} }

func assertVec(t *testing.T, want, got mgl64.Vec3, msgAndArgs ...any) {
	t.Helper()
	assert.InDeltaSlice(t, want[:], got[:], eps, msgAndArgs...)
}

func TestNewBoxVertexOrder(t *testing.T) {
	b := NewBox(mgl64.Vec3{1, 1, 0}, mgl64.Vec3{1, 2, 1})
	want := [8]mgl64.Vec3{
		{1.5, 2, 0.5}, {0.5, 2, 0.5}, {1.5, 0, 0.5}, {0.5, 0, 0.5},
		{1.5, 2, -0.5}, {0.5, 2, -0.5}, {1.5, 0, -0.5}, {0.5, 0, -0.5},
	}
	assert.Equal(t, want, b.Vertices)
}

func TestAddChildOrder(t *testing.T) {
	tree := NewTree()
	root := tree.NewNode("root", mgl64.Vec3{}, unit())
	a := tree.NewNode("a", mgl64.Vec3{}, unit())
	b := tree.NewNode("b", mgl64.Vec3{}, unit())
	c := tree.NewNode("c", mgl64.Vec3{}, unit())

	require.NoError(t, tree.AddChild(root, a))
	n, _ := tree.Node(root)
	assert.Equal(t, a, n.FirstChild())

	require.NoError(t, tree.AddChild(root, b))
	require.NoError(t, tree.AddChild(root, c))
	n, _ = tree.Node(root)
	assert.Equal(t, a, n.FirstChild(), "first child must not move")
	assert.Equal(t, []NodeId{a, b, c}, tree.Children(root))
	assert.Equal(t, []NodeId{b, c}, tree.Siblings(a))
	assert.Nil(t, tree.Children(a))

	snapshot := tree.Children(root)
	snapshot[0] = c
	assert.Equal(t, []NodeId{a, b, c}, tree.Children(root), "Children must be a snapshot")
}

func TestAddSiblingChain(t *testing.T) {
	tree := NewTree()
	a := tree.NewNode("a", mgl64.Vec3{}, unit())
	b := tree.NewNode("b", mgl64.Vec3{}, unit())
	c := tree.NewNode("c", mgl64.Vec3{}, unit())
	require.NoError(t, tree.SetRoot(b))
	require.NoError(t, tree.AddChild(b, a))
	require.NoError(t, tree.AddSibling(a, c))
	assert.Equal(t, []NodeId{a, c}, tree.Children(b))
}

func TestLinkValidation(t *testing.T) {
	tree := NewTree()
	root := tree.NewNode("root", mgl64.Vec3{}, unit())
	a := tree.NewNode("a", mgl64.Vec3{}, unit())
	b := tree.NewNode("b", mgl64.Vec3{}, unit())
	d := tree.NewNode("d", mgl64.Vec3{}, unit())

	assert.ErrorIs(t, tree.AddChild(a, a), ErrSelfLink)
	assert.ErrorIs(t, tree.AddChild(a, NodeId(42)), ErrUnknownNode)
	assert.ErrorIs(t, tree.AddChild(a, root), ErrAlreadyAttached)

	require.NoError(t, tree.AddChild(root, a))
	assert.ErrorIs(t, tree.AddChild(b, a), ErrAlreadyAttached)

	// b is free-standing with d below it; hanging b below d would loop.
	require.NoError(t, tree.AddChild(b, d))
	assert.ErrorIs(t, tree.AddChild(d, b), ErrCycle)
	assert.ErrorIs(t, tree.SetRoot(d), ErrAlreadyAttached)
}

func TestLookup(t *testing.T) {
	tree := NewTree()
	id := tree.NewNode("torso", mgl64.Vec3{}, unit())
	got, ok := tree.Lookup("torso")
	assert.True(t, ok)
	assert.Equal(t, id, got)
	_, ok = tree.Lookup("tail")
	assert.False(t, ok)
	assert.Equal(t, "torso", tree.Name(id))
	assert.Equal(t, 1, tree.Len())
}

func TestRotateRoundTrip(t *testing.T) {
	for _, axis := range []linalg.Axis{linalg.AxisX, linalg.AxisY, linalg.AxisZ} {
		for _, theta := range []float64{0.1, 1, math.Pi / 2, 3, 2 * math.Pi} {
			tree := NewTree()
			n := tree.NewNode("n", mgl64.Vec3{1, 4, 0}, mgl64.Vec3{1, 2, 1})
			require.NoError(t, tree.SetOrigin(n, mgl64.Vec3{1, 5, 0.5}))
			require.NoError(t, tree.RotateAboutPivot(n, linalg.AxisZ, 0.3))
			before := tree.Local(n)

			require.NoError(t, tree.RotateAboutPivot(n, axis, theta))
			require.NoError(t, tree.RotateAboutPivot(n, axis, -theta))
			assert.True(t, before.ApproxEqual(tree.Local(n), eps), "axis %v theta %v", axis, theta)
		}
	}
}

func TestRotateKeepsPivotFixed(t *testing.T) {
	pivot := mgl64.Vec3{-1, 5, 2}
	for _, axis := range []linalg.Axis{linalg.AxisX, linalg.AxisY, linalg.AxisZ} {
		for _, theta := range []float64{-2.5, 0.7, math.Pi} {
			tree := NewTree()
			n := tree.NewNode("n", mgl64.Vec3{-1, 4, 0}, mgl64.Vec3{1, 2, 1})
			require.NoError(t, tree.SetOrigin(n, pivot))
			require.NoError(t, tree.RotateAboutPivot(n, axis, theta))
			assertVec(t, pivot, tree.Local(n).Transform(pivot), "axis %v theta %v", axis, theta)

			require.NoError(t, tree.RotateAboutPivot(n, axis, theta/3))
			assertVec(t, pivot, tree.Local(n).Transform(pivot))
		}
	}
}

func TestRotateIsIncremental(t *testing.T) {
	tree := NewTree()
	n := tree.NewNode("n", mgl64.Vec3{0, 1, 0}, unit())
	require.NoError(t, tree.SetOrigin(n, mgl64.Vec3{0, 2, 0}))
	require.NoError(t, tree.RotateAboutPivot(n, linalg.AxisX, 0.4))
	require.NoError(t, tree.RotateAboutPivot(n, linalg.AxisX, 0.5))

	direct := NewTree()
	m := direct.NewNode("m", mgl64.Vec3{0, 1, 0}, unit())
	require.NoError(t, direct.SetOrigin(m, mgl64.Vec3{0, 2, 0}))
	require.NoError(t, direct.RotateAboutPivot(m, linalg.AxisX, 0.9))

	assert.True(t, tree.Local(n).ApproxEqual(direct.Local(m), eps))
}

func TestWorldVerticesCompositionOrder(t *testing.T) {
	tree := NewTree()
	root := tree.NewNode("root", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 2, 2})
	child := tree.NewNode("child", mgl64.Vec3{0, 3, 0}, mgl64.Vec3{1, 2, 1})
	require.NoError(t, tree.SetOrigin(child, mgl64.Vec3{0, 2, 0}))
	require.NoError(t, tree.AddChild(root, child))

	require.NoError(t, tree.RotateAboutPivot(root, linalg.AxisY, 0.8))
	require.NoError(t, tree.RotateAboutPivot(child, linalg.AxisZ, -1.2))

	rootWorld := linalg.Translate3D(3, -1, 2).Mul4(tree.Local(root))
	verts, err := tree.WorldVertices(child, rootWorld)
	require.NoError(t, err)

	n, _ := tree.Node(child)
	want := rootWorld.Mgl().Mul4(tree.Local(child).Mgl())
	for i, v := range n.Geometry.Vertices {
		assertVec(t, mgl64.TransformCoordinate(v, want), verts[i], "vertex %d", i)
	}
}

func TestThreeNodeChain(t *testing.T) {
	tree := NewTree()
	root := tree.NewNode("root", mgl64.Vec3{0, 0, 0}, unit())
	child := tree.NewNode("child", mgl64.Vec3{0, 7.5, 0}, mgl64.Vec3{1, 5, 1})
	grandchild := tree.NewNode("grandchild", mgl64.Vec3{0, 10.5, 0.5}, unit())
	require.NoError(t, tree.SetOrigin(child, mgl64.Vec3{0, 5, 0}))
	require.NoError(t, tree.SetOrigin(grandchild, mgl64.Vec3{0, 10, 0}))
	require.NoError(t, tree.AddChild(root, child))
	require.NoError(t, tree.AddChild(child, grandchild))

	require.NoError(t, tree.RotateAboutPivot(child, linalg.AxisX, math.Pi/2))

	rootWorld := linalg.Ident4().Mul4(tree.Local(root))
	childWorld := rootWorld.Mul4(tree.Local(child))

	// x stays, y' = 5 - z, z' = y - 5
	p, err := tree.WorldPoint(grandchild, childWorld, mgl64.Vec3{0, 10, 1})
	require.NoError(t, err)
	assertVec(t, mgl64.Vec3{0, 4, 5}, p)

	verts, err := tree.WorldVertices(grandchild, childWorld)
	require.NoError(t, err)
	n, _ := tree.Node(grandchild)
	for i, v := range n.Geometry.Vertices {
		assertVec(t, mgl64.Vec3{v[0], 5 - v[2], v[1] - 5}, verts[i], "vertex %d", i)
	}

	// the grandchild's own joint composes underneath the child's
	require.NoError(t, tree.RotateAboutPivot(grandchild, linalg.AxisX, math.Pi/2))
	p, err = tree.WorldPoint(grandchild, childWorld, mgl64.Vec3{0, 10, 1})
	require.NoError(t, err)
	assertVec(t, mgl64.Vec3{0, 5, 4}, p)
}

func TestWalkVisitsParentsFirst(t *testing.T) {
	tree := NewTree()
	root := tree.NewNode("root", mgl64.Vec3{}, unit())
	a := tree.NewNode("a", mgl64.Vec3{}, unit())
	b := tree.NewNode("b", mgl64.Vec3{}, unit())
	c := tree.NewNode("c", mgl64.Vec3{}, unit())
	tree.NewNode("loose", mgl64.Vec3{}, unit())
	require.NoError(t, tree.AddChild(root, a))
	require.NoError(t, tree.AddChild(root, b))
	require.NoError(t, tree.AddChild(a, c))
	require.NoError(t, tree.RotateAboutPivot(root, linalg.AxisZ, 1))

	var order []string
	var depths []int
	tree.Walk(func(id NodeId, parentWorld linalg.Mat4, depth int) bool {
		order = append(order, tree.Name(id))
		depths = append(depths, depth)
		if id == c {
			assert.True(t, parentWorld.ApproxEqual(tree.Local(root), eps))
		}
		return true
	})
	assert.Equal(t, []string{"root", "a", "c", "b"}, order)
	assert.Equal(t, []int{0, 1, 2, 1}, depths)
}

func TestJointStateTracksDeltas(t *testing.T) {
	tree := NewTree()
	n := tree.NewNode("arm", mgl64.Vec3{3, 9, 0}, mgl64.Vec3{1, 2, 1})
	require.NoError(t, tree.SetOrigin(n, mgl64.Vec3{3, 10, 0}))
	js := NewJointState()

	delta, err := js.SetJointAngle(tree, n, linalg.AxisX, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, delta, eps)

	delta, err = js.SetJointAngle(tree, n, linalg.AxisX, 0.2)
	require.NoError(t, err)
	assert.InDelta(t, -0.3, delta, eps)
	assert.InDelta(t, 0.2, js.Angle(n, linalg.AxisX), eps)

	direct := NewTree()
	m := direct.NewNode("arm", mgl64.Vec3{3, 9, 0}, mgl64.Vec3{1, 2, 1})
	require.NoError(t, direct.SetOrigin(m, mgl64.Vec3{3, 10, 0}))
	require.NoError(t, direct.RotateAboutPivot(m, linalg.AxisX, 0.2))
	assert.True(t, tree.Local(n).ApproxEqual(direct.Local(m), eps))

	delta, err = js.SetJointAngle(tree, n, linalg.AxisX, 0.2)
	require.NoError(t, err)
	assert.Zero(t, delta)

	_, err = js.SetJointAngle(tree, n, linalg.AxisZ, -0.7)
	require.NoError(t, err)
	assert.Equal(t, []Joint{{n, linalg.AxisX}, {n, linalg.AxisZ}}, js.Joints())

	_, err = js.SetJointAngle(tree, NodeId(9), linalg.AxisX, 1)
	assert.ErrorIs(t, err, ErrUnknownNode)
	assert.Zero(t, js.Angle(NodeId(9), linalg.AxisX))
}

func TestJointStateReset(t *testing.T) {
	tree := NewTree()
	n := tree.NewNode("leg", mgl64.Vec3{1, 4, 0}, mgl64.Vec3{1, 2, 1})
	js := NewJointState()
	_, err := js.SetJointAngle(tree, n, linalg.AxisX, 1.1)
	require.NoError(t, err)
	require.NoError(t, js.Reset(tree))
	assert.True(t, tree.Local(n).ApproxEqual(linalg.Ident4(), eps))
	assert.Zero(t, js.Angle(n, linalg.AxisX))
}

func pivotRotation(o mgl64.Vec3, axis linalg.Axis, rad float64) linalg.Mat4 {
	return linalg.Translate3D(o[0], o[1], o[2]).
		Mul4(linalg.Rotate(axis, rad)).
		Mul4(linalg.Translate3D(-o[0], -o[1], -o[2]))
}

func TestJointStateMultiAxis(t *testing.T) {
	origin := mgl64.Vec3{3, 10, 0}
	tree := NewTree()
	n := tree.NewNode("arm", mgl64.Vec3{3, 9, 0}, mgl64.Vec3{1, 2, 1})
	require.NoError(t, tree.SetOrigin(n, origin))
	require.NoError(t, tree.RotateAboutPivot(n, linalg.AxisY, 0.25))
	base := tree.Local(n)

	js := NewJointState()
	require.NoError(t, js.Track(tree, n, linalg.AxisX))
	require.NoError(t, js.Track(tree, n, linalg.AxisZ))
	assert.True(t, tree.Local(n).ApproxEqual(base, eps), "tracking does not rotate")

	// set in the opposite order to tracking
	_, err := js.SetJointAngle(tree, n, linalg.AxisZ, 1)
	require.NoError(t, err)
	_, err = js.SetJointAngle(tree, n, linalg.AxisX, 1)
	require.NoError(t, err)

	want := pivotRotation(origin, linalg.AxisZ, 1).
		Mul4(pivotRotation(origin, linalg.AxisX, 1)).
		Mul4(base)
	assert.True(t, tree.Local(n).ApproxEqual(want, eps))

	// moving one axis back and forth lands on the same transform
	_, err = js.SetJointAngle(tree, n, linalg.AxisX, -0.4)
	require.NoError(t, err)
	_, err = js.SetJointAngle(tree, n, linalg.AxisX, 1)
	require.NoError(t, err)
	assert.True(t, tree.Local(n).ApproxEqual(want, eps))

	require.NoError(t, js.Reset(tree))
	assert.True(t, tree.Local(n).ApproxEqual(base, eps))
	assert.Zero(t, js.Angle(n, linalg.AxisX))
	assert.Zero(t, js.Angle(n, linalg.AxisZ))

	assert.ErrorIs(t, js.Track(tree, NodeId(9), linalg.AxisX), ErrUnknownNode)
}
