package rbtree

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes the subtree sideways, right children above their parent, one
// node per line: color, value and black-height. format renders a value; nil
// uses %v.
func (allocator *Allocator[T]) Dump(w io.Writer, root NodeID, format func(T) string) error {
	if format == nil {
		format = func(value T) string { return fmt.Sprint(value) }
	}

	if root == Nil {
		_, err := io.WriteString(w, "(empty)\n")

		return err
	}

	return allocator.dump(w, root, 0, format)
}

func (allocator *Allocator[T]) dump(w io.Writer, nodeIdx NodeID, depth int, format func(T) string) error {
	if nodeIdx == Nil {
		return nil
	}

	nd := allocator.storage[nodeIdx]

	err := allocator.dump(w, nd.right, depth+1, format)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s%s %s h=%d\n", strings.Repeat("    ", depth), colorName(nd.color), format(nd.value), nd.height)
	if err != nil {
		return err
	}

	return allocator.dump(w, nd.left, depth+1, format)
}

// WriteDot outputs the subtree in Graphviz DOT format. Null children are drawn
// as small black leaves so that the black-heights can be checked by eye.
func (allocator *Allocator[T]) WriteDot(w io.Writer, root NodeID, format func(T) string) error {
	if format == nil {
		format = func(value T) string { return fmt.Sprint(value) }
	}

	var nodelist, edgelist strings.Builder

	nodelist.WriteString("strict digraph {\n")
	nodelist.WriteString("\tnode [fontname=Arial,fontsize=12];\n")

	leaves := 0

	for nodeIdx := range allocator.nodes(root) {
		nd := allocator.storage[nodeIdx]

		fillColor := "black"
		if nd.color == red {
			fillColor = "red"
		}

		fmt.Fprintf(&nodelist, "\t\"%d\" [label=\"%s\\nh=%d\",style=filled,fillcolor=%s,fontcolor=white];\n",
			nodeIdx, strings.ReplaceAll(format(nd.value), `"`, `\"`), nd.height, fillColor)

		for _, child := range [2]NodeID{nd.left, nd.right} {
			if child != Nil {
				fmt.Fprintf(&edgelist, "\t\"%d\" -> \"%d\";\n", nodeIdx, child)

				continue
			}

			leaves++
			fmt.Fprintf(&nodelist, "\t\"nil%d\" [label=\"\",shape=square,style=filled,fillcolor=black,width=.15];\n", leaves)
			fmt.Fprintf(&edgelist, "\t\"%d\" -> \"nil%d\";\n", nodeIdx, leaves)
		}
	}

	edgelist.WriteString("}\n")

	_, err := io.WriteString(w, nodelist.String()+edgelist.String())

	return err
}

func colorName(color bool) string {
	if color == red {
		return "R"
	}

	return "B"
}
