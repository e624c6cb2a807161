package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Node is a named scene graph node with its local transform.
type Node struct {
	Name      string
	Transform mgl32.Mat4
	Children  []*Node
}

// NamedInstance pairs a name with a world transform. It only lives between
// import and world population, and in instance files.
type NamedInstance struct {
	Name      string
	Transform mgl32.Mat4
}

// Flatten walks the graph depth first, pre-order. Every instance transform
// is the node local transform multiplied on the right by the accumulated
// parent transform.
func Flatten(root *Node) []NamedInstance {
	result := make([]NamedInstance, 0)
	flatten(root, mgl32.Ident4(), &result)
	return result
}

func flatten(node *Node, parent mgl32.Mat4, result *[]NamedInstance) {
	if node == nil {
		return
	}
	t := node.Transform.Mul4(parent)
	*result = append(*result, NamedInstance{Name: node.Name, Transform: t})
	for _, child := range node.Children {
		flatten(child, t, result)
	}
}

// FindNodeByName returns the first node named name in pre-order.
func FindNodeByName(root *Node, name string) (*Node, bool) {
	if root == nil {
		return nil, false
	}
	if root.Name == name {
		return root, true
	}
	for _, child := range root.Children {
		if n, ok := FindNodeByName(child, name); ok {
			return n, true
		}
	}
	return nil, false
}
