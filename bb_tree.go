package cmcache

// BBTree is a BroadPhase that sorts shapes into a bounding box tree.
//
// The tree is rebuilt from the cached shape bounding boxes on every
// EachPair call. Nodes are pooled between calls. It reports the same pairs as
// BruteForce.
type BBTree struct {
	root        *Node
	pooledNodes *Node
}

type Node struct {
	obj    *Shape
	index  int // position of obj in the shapes passed to EachPair
	bb     BB
	parent *Node

	a, b *Node
}

func NewBBTree() *BBTree {
	return &BBTree{}
}

// EachPair calls f for every pair of shapes with intersecting bounding boxes
// that QueryReject accepts. The shape earlier in shapes is passed first.
func (tree *BBTree) EachPair(shapes []*Shape, f func(a, b *Shape)) {
	tree.recycleSubtree(tree.root)
	tree.root = nil

	leaves := make([]*Node, len(shapes))
	for i, shape := range shapes {
		leaf := tree.NewLeaf(shape, i)
		tree.root = tree.SubtreeInsert(tree.root, leaf)
		leaves[i] = leaf
	}

	for _, leaf := range leaves {
		tree.markLeaf(leaf, f)
	}
}

// markLeaf reports the pairs leaf forms with the right hand sibling subtrees
// on its path to the root. Every pair has exactly one lowest common ancestor,
// so it is reported once.
func (tree *BBTree) markLeaf(leaf *Node, f func(a, b *Shape)) {
	for node := leaf; node.parent != nil; node = node.parent {
		if node == node.parent.a {
			node.parent.b.markLeafQuery(leaf, f)
		}
	}
}

func (subtree *Node) markLeafQuery(leaf *Node, f func(a, b *Shape)) {
	if !leaf.bb.Intersects(subtree.bb) {
		return
	}
	if subtree.IsLeaf() {
		a, b := leaf, subtree
		if b.index < a.index {
			a, b = b, a
		}
		if !QueryReject(a.obj, b.obj) {
			f(a.obj, b.obj)
		}
		return
	}
	subtree.a.markLeafQuery(leaf, f)
	subtree.b.markLeafQuery(leaf, f)
}

func (tree *BBTree) SubtreeInsert(subtree *Node, leaf *Node) *Node {
	if subtree == nil {
		return leaf
	}
	if subtree.IsLeaf() {
		return tree.NewNode(leaf, subtree)
	}

	costA := subtree.b.bb.Area() + subtree.a.bb.MergedArea(leaf.bb)
	costB := subtree.a.bb.Area() + subtree.b.bb.MergedArea(leaf.bb)

	if costA == costB {
		costA = subtree.a.bb.Proximity(leaf.bb)
		costB = subtree.b.bb.Proximity(leaf.bb)
	}

	if costB < costA {
		NodeSetB(subtree, tree.SubtreeInsert(subtree.b, leaf))
	} else {
		NodeSetA(subtree, tree.SubtreeInsert(subtree.a, leaf))
	}

	subtree.bb = subtree.bb.Merge(leaf.bb)
	return subtree
}

func (tree *BBTree) NewNode(a, b *Node) *Node {
	node := tree.NodeFromPool()
	node.obj = nil
	node.bb = a.bb.Merge(b.bb)
	node.parent = nil

	NodeSetA(node, a)
	NodeSetB(node, b)
	return node
}

func (tree *BBTree) NewLeaf(obj *Shape, index int) *Node {
	node := tree.NodeFromPool()
	node.obj = obj
	node.index = index
	node.bb = obj.BB
	node.parent = nil
	node.a = nil
	node.b = nil
	return node
}

func (tree *BBTree) NodeFromPool() *Node {
	node := tree.pooledNodes

	if node != nil {
		tree.pooledNodes = node.parent
		return node
	}

	// Pool is exhausted make more
	for i := 0; i < pooledBufferSize; i++ {
		tree.RecycleNode(&Node{})
	}

	return &Node{}
}

func (tree *BBTree) RecycleNode(node *Node) {
	node.obj = nil
	node.a = nil
	node.b = nil
	node.parent = tree.pooledNodes
	tree.pooledNodes = node
}

func (tree *BBTree) recycleSubtree(subtree *Node) {
	if subtree == nil {
		return
	}
	if !subtree.IsLeaf() {
		tree.recycleSubtree(subtree.a)
		tree.recycleSubtree(subtree.b)
	}
	tree.RecycleNode(subtree)
}

// Count returns the number of nodes in the tree built by the last EachPair.
func (tree *BBTree) Count() int {
	return countSubtree(tree.root)
}

func countSubtree(subtree *Node) int {
	if subtree == nil {
		return 0
	}
	if subtree.IsLeaf() {
		return 1
	}
	return 1 + countSubtree(subtree.a) + countSubtree(subtree.b)
}

func NodeSetA(node, value *Node) {
	node.a = value
	value.parent = node
}

func NodeSetB(node, value *Node) {
	node.b = value
	value.parent = node
}

func (node *Node) IsLeaf() bool {
	return node.obj != nil
}
