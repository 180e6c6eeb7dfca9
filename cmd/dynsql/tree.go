package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/canonical/dynsql/internal/ast"
)

// nodeDump is the YAML form of a parsed node.
type nodeDump struct {
	Node     string     `yaml:"node"`
	Text     string     `yaml:"text,omitempty"`
	Children []nodeDump `yaml:"children,omitempty"`
}

func nodeName(n ast.Node) string {
	name := fmt.Sprintf("%T", n)
	return strings.TrimPrefix(name, "*ast.")
}

func dumpNode(n ast.Node) nodeDump {
	d := nodeDump{Node: nodeName(n)}
	if stmt, ok := n.(*ast.Statement); ok {
		d.Node += " " + stmt.Type.String()
	}
	p, ok := n.(ast.Parent)
	if !ok {
		d.Text = n.String()
		return d
	}
	for _, child := range p.Children() {
		d.Children = append(d.Children, dumpNode(child))
	}
	return d
}

// printTree writes one line per node, indented by depth. Leaves show the
// text they were parsed from.
func printTree(w io.Writer, n ast.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	p, ok := n.(ast.Parent)
	if !ok {
		fmt.Fprintf(w, "%s%s %q\n", indent, nodeName(n), n.String())
		return
	}
	if stmt, ok := n.(*ast.Statement); ok {
		fmt.Fprintf(w, "%sStatement %s\n", indent, stmt.Type)
	} else {
		fmt.Fprintf(w, "%s%s\n", indent, nodeName(n))
	}
	for _, child := range p.Children() {
		printTree(w, child, depth+1)
	}
}
