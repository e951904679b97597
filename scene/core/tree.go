// Package core is the scene graph: an arena of rigid box nodes linked as a
// left-child/right-sibling tree, with pivot rotations and world-space
// vertex evaluation.
package core

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/gekko3d/balok/scene/linalg"
)

// NodeId addresses a node inside its Tree.
type NodeId int32

const Nil NodeId = -1

var (
	ErrUnknownNode     = errors.New("unknown node")
	ErrAlreadyAttached = errors.New("node already attached")
	ErrCycle           = errors.New("link would create a cycle")
	ErrSelfLink        = errors.New("node linked to itself")
)

type Node struct {
	Name string
	// Origin is the pivot, in the parent's local frame.
	Origin   mgl64.Vec3
	Local    linalg.Mat4
	Geometry Box

	firstChild  NodeId
	nextSibling NodeId
	attached    bool
}

func (n *Node) FirstChild() NodeId  { return n.firstChild }
func (n *Node) NextSibling() NodeId { return n.nextSibling }

type Tree struct {
	nodes  []Node
	byName map[string]NodeId
	root   NodeId
}

func NewTree() *Tree {
	return &Tree{
		byName: make(map[string]NodeId),
		root:   Nil,
	}
}

// NewNode appends an unattached node. Its pivot starts at the box center
// and its local transform at unit scale. The first node becomes the root.
func (t *Tree) NewNode(name string, center, size mgl64.Vec3) NodeId {
	id := NodeId(len(t.nodes))
	t.nodes = append(t.nodes, Node{
		Name:        name,
		Origin:      center,
		Local:       linalg.Scale3D(1, 1, 1),
		Geometry:    NewBox(center, size),
		firstChild:  Nil,
		nextSibling: Nil,
	})
	if name != "" {
		if _, dup := t.byName[name]; !dup {
			t.byName[name] = id
		}
	}
	if t.root == Nil {
		t.root = id
	}
	return id
}

func (t *Tree) Len() int { return len(t.nodes) }

func (t *Tree) Root() NodeId { return t.root }

func (t *Tree) SetRoot(id NodeId) error {
	if !t.valid(id) {
		return errors.Wrapf(ErrUnknownNode, "root %d", id)
	}
	if t.nodes[id].attached {
		return errors.Wrapf(ErrAlreadyAttached, "root %q", t.nodes[id].Name)
	}
	t.root = id
	return nil
}

func (t *Tree) Lookup(name string) (NodeId, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Node returns a copy of the node's state.
func (t *Tree) Node(id NodeId) (Node, error) {
	if !t.valid(id) {
		return Node{}, errors.Wrapf(ErrUnknownNode, "node %d", id)
	}
	return t.nodes[id], nil
}

func (t *Tree) Name(id NodeId) string {
	if !t.valid(id) {
		return ""
	}
	return t.nodes[id].Name
}

func (t *Tree) Local(id NodeId) linalg.Mat4 {
	if !t.valid(id) {
		return linalg.Ident4()
	}
	return t.nodes[id].Local
}

// SetOrigin moves the pivot. It must happen before rotations that rely
// on it; earlier rotations keep the pivot they were applied about.
func (t *Tree) SetOrigin(id NodeId, origin mgl64.Vec3) error {
	if !t.valid(id) {
		return errors.Wrapf(ErrUnknownNode, "node %d", id)
	}
	t.nodes[id].Origin = origin
	return nil
}

// ResetLocal sets the local transform back to identity.
func (t *Tree) ResetLocal(id NodeId) error {
	if !t.valid(id) {
		return errors.Wrapf(ErrUnknownNode, "node %d", id)
	}
	t.nodes[id].Local = linalg.Ident4()
	return nil
}

// SetLocal replaces the local transform.
func (t *Tree) SetLocal(id NodeId, local linalg.Mat4) error {
	if !t.valid(id) {
		return errors.Wrapf(ErrUnknownNode, "node %d", id)
	}
	t.nodes[id].Local = local
	return nil
}

// AddChild appends child as the last child of parent.
func (t *Tree) AddChild(parent, child NodeId) error {
	if err := t.checkLink(parent, child); err != nil {
		return err
	}
	p := &t.nodes[parent]
	if p.firstChild == Nil {
		if t.reaches(child, parent) {
			return errors.Wrapf(ErrCycle, "%q under %q", t.nodes[child].Name, p.Name)
		}
		p.firstChild = child
		t.nodes[child].attached = true
		return nil
	}
	return t.AddSibling(p.firstChild, child)
}

// AddSibling appends sibling at the end of node's sibling chain.
func (t *Tree) AddSibling(node, sibling NodeId) error {
	if err := t.checkLink(node, sibling); err != nil {
		return err
	}
	last := node
	for t.nodes[last].nextSibling != Nil {
		last = t.nodes[last].nextSibling
	}
	if t.reaches(sibling, last) {
		return errors.Wrapf(ErrCycle, "%q after %q", t.nodes[sibling].Name, t.nodes[last].Name)
	}
	t.nodes[last].nextSibling = sibling
	t.nodes[sibling].attached = true
	return nil
}

func (t *Tree) checkLink(from, to NodeId) error {
	if !t.valid(from) || !t.valid(to) {
		return errors.Wrapf(ErrUnknownNode, "link %d -> %d", from, to)
	}
	if from == to {
		return errors.Wrapf(ErrSelfLink, "%q", t.nodes[from].Name)
	}
	if t.nodes[to].attached || to == t.root {
		return errors.Wrapf(ErrAlreadyAttached, "%q", t.nodes[to].Name)
	}
	return nil
}

// reaches reports whether target is reachable from start through child
// and sibling links.
func (t *Tree) reaches(start, target NodeId) bool {
	stack := []NodeId{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		n := &t.nodes[id]
		if n.firstChild != Nil {
			stack = append(stack, n.firstChild)
		}
		if n.nextSibling != Nil {
			stack = append(stack, n.nextSibling)
		}
	}
	return false
}

// Children returns a snapshot of id's children in insertion order.
func (t *Tree) Children(id NodeId) []NodeId {
	if !t.valid(id) || t.nodes[id].firstChild == Nil {
		return nil
	}
	first := t.nodes[id].firstChild
	return append([]NodeId{first}, t.Siblings(first)...)
}

// Siblings returns the nodes after id in its sibling chain.
func (t *Tree) Siblings(id NodeId) []NodeId {
	if !t.valid(id) {
		return nil
	}
	var out []NodeId
	for s := t.nodes[id].nextSibling; s != Nil; s = t.nodes[s].nextSibling {
		out = append(out, s)
	}
	return out
}

// RotateAboutPivot pre-multiplies the local transform with
// T(origin)·R(rad)·T(-origin). Children follow through composition.
func (t *Tree) RotateAboutPivot(id NodeId, axis linalg.Axis, rad float64) error {
	if !t.valid(id) {
		return errors.Wrapf(ErrUnknownNode, "node %d", id)
	}
	n := &t.nodes[id]
	o := n.Origin
	pivot := linalg.Translate3D(o[0], o[1], o[2]).
		Mul4(linalg.Rotate(axis, rad)).
		Mul4(linalg.Translate3D(-o[0], -o[1], -o[2]))
	n.Local = pivot.Mul4(n.Local)
	return nil
}

// WorldVertices returns parentWorld·(Local·v) for the 8 box vertices.
func (t *Tree) WorldVertices(id NodeId, parentWorld linalg.Mat4) ([8]mgl64.Vec3, error) {
	var out [8]mgl64.Vec3
	if !t.valid(id) {
		return out, errors.Wrapf(ErrUnknownNode, "node %d", id)
	}
	n := &t.nodes[id]
	for i, v := range n.Geometry.Vertices {
		out[i] = parentWorld.Transform(n.Local.Transform(v))
	}
	return out, nil
}

// WorldPoint maps a point given in id's untransformed frame.
func (t *Tree) WorldPoint(id NodeId, parentWorld linalg.Mat4, p mgl64.Vec3) (mgl64.Vec3, error) {
	if !t.valid(id) {
		return mgl64.Vec3{}, errors.Wrapf(ErrUnknownNode, "node %d", id)
	}
	return parentWorld.Transform(t.nodes[id].Local.Transform(p)), nil
}

// Walk visits the rooted tree depth-first, parents before children,
// passing each node's inbound parent transform and depth. Returning
// false from fn skips that node's subtree.
func (t *Tree) Walk(fn func(id NodeId, parentWorld linalg.Mat4, depth int) bool) {
	if t.root == Nil {
		return
	}
	t.walk(t.root, linalg.Ident4(), 0, fn)
}

func (t *Tree) walk(id NodeId, parentWorld linalg.Mat4, depth int, fn func(NodeId, linalg.Mat4, int) bool) {
	if !fn(id, parentWorld, depth) {
		return
	}
	world := parentWorld.Mul4(t.nodes[id].Local)
	for c := t.nodes[id].firstChild; c != Nil; c = t.nodes[c].nextSibling {
		t.walk(c, world, depth+1, fn)
	}
}

func (t *Tree) valid(id NodeId) bool {
	return id >= 0 && int(id) < len(t.nodes)
}
