package parser

import (
	"strings"

	"github.com/dgallion1/robby/internal/doctree"
)

// treeBuilder nests sections by heading level. Text seen between headings is
// buffered and attached to the innermost open section when the next heading
// arrives or the document ends.
type treeBuilder struct {
	root    *doctree.DocNode
	stack   []builderEntry
	pending strings.Builder
}

type builderEntry struct {
	node  *doctree.DocNode
	level int
}

func newTreeBuilder(title string) *treeBuilder {
	root := &doctree.DocNode{Title: title}
	return &treeBuilder{
		root:  root,
		stack: []builderEntry{{node: root, level: 0}},
	}
}

// heading opens a new section at level, closing any section at the same or a
// deeper level.
func (b *treeBuilder) heading(level int, title string) {
	b.flush()
	node := &doctree.DocNode{Title: title}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, node)
	b.stack = append(b.stack, builderEntry{node: node, level: level})
}

// paragraph buffers a block of body text.
func (b *treeBuilder) paragraph(text string) {
	if text == "" {
		return
	}
	if b.pending.Len() > 0 {
		b.pending.WriteString("\n\n")
	}
	b.pending.WriteString(text)
}

func (b *treeBuilder) flush() {
	t := strings.TrimSpace(b.pending.String())
	b.pending.Reset()
	if t == "" {
		return
	}
	top := b.stack[len(b.stack)-1].node
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// tree finishes the build. Text that appeared before the first heading
// becomes its own leading section so it stays addressable as a page.
func (b *treeBuilder) tree(title string) *doctree.DocTree {
	b.flush()
	tree := &doctree.DocTree{Title: title}
	if b.root.Text != "" {
		tree.Children = append(tree.Children, &doctree.DocNode{Text: b.root.Text})
	}
	tree.Children = append(tree.Children, b.root.Children...)
	return tree
}
