package doctree

import "strings"

// DocTree is the root of a parsed structured document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Text content of this node (may be empty for container nodes)
	Children []*DocNode // Subsections
}

// Flatten renders a node and all of its descendants as plain text, headings
// inlined on their own line, sections separated by blank lines.
func (n *DocNode) Flatten() string {
	var buf strings.Builder
	n.flattenInto(&buf)
	return strings.TrimSpace(buf.String())
}

func (n *DocNode) flattenInto(buf *strings.Builder) {
	if n.Title != "" {
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(n.Title)
	}
	if n.Text != "" {
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(n.Text)
	}
	for _, c := range n.Children {
		c.flattenInto(buf)
	}
}

// Sections returns the flattened text of each top-level section, skipping
// sections with no text at all.
func (t *DocTree) Sections() []string {
	var out []string
	for _, c := range t.Children {
		if s := c.Flatten(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
