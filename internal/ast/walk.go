package ast

// Inspect traverses nodes in depth-first order, calling f for each node. If
// f returns false the children of that node are skipped.
func Inspect(nodes []Node, f func(Node) bool) {
	for _, n := range nodes {
		if !f(n) {
			continue
		}
		if p, ok := n.(Parent); ok {
			Inspect(p.Children(), f)
		}
	}
}

// FindAll returns every node of type T under nodes, in depth-first order.
func FindAll[T Node](nodes []Node) []T {
	var found []T
	Inspect(nodes, func(n Node) bool {
		if t, ok := n.(T); ok {
			found = append(found, t)
		}
		return true
	})
	return found
}

// FindFirst returns the first node of type T under nodes.
func FindFirst[T Node](nodes []Node) (T, bool) {
	var found T
	ok := false
	Inspect(nodes, func(n Node) bool {
		if ok {
			return false
		}
		if t, is := n.(T); is {
			found, ok = t, true
			return false
		}
		return true
	})
	return found, ok
}
