// Package query defines the selection tree produced by query readers and
// consumed by the engine: which fields and links of the graph a client asked
// for, independent of any query language.
package query

// Selection is one requested item inside a Node: a Field or a Link.
type Selection interface {
	ResultKey() string
	selection()
}

// Node is a set of selections requested from a single graph node.
type Node struct {
	Selections []Selection
}

// Field requests a leaf value.
type Field struct {
	Name  string
	Alias string
	Args  map[string]any
}

func (f *Field) ResultKey() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func (*Field) selection() {}

// Link requests traversal of an edge into a nested selection.
type Link struct {
	Name  string
	Alias string
	Args  map[string]any
	Node  *Node
}

func (l *Link) ResultKey() string {
	if l.Alias != "" {
		return l.Alias
	}
	return l.Name
}

func (*Link) selection() {}

// Fields returns the field selections of the node in order.
func (n *Node) Fields() []*Field {
	var fields []*Field
	for _, s := range n.Selections {
		if f, ok := s.(*Field); ok {
			fields = append(fields, f)
		}
	}
	return fields
}

// Links returns the link selections of the node in order.
func (n *Node) Links() []*Link {
	var links []*Link
	for _, s := range n.Selections {
		if l, ok := s.(*Link); ok {
			links = append(links, l)
		}
	}
	return links
}

// Merge unions several selection trees into one. Selections keep first-seen
// order, duplicate fields collapse by result key, and links sharing a result
// key have their nested nodes merged recursively.
func Merge(nodes ...*Node) *Node {
	merged := &Node{}
	seenField := make(map[string]struct{})
	linkIndex := make(map[string]int)
	linkParts := make(map[string][]*Node)

	for _, n := range nodes {
		if n == nil {
			continue
		}
		for _, s := range n.Selections {
			switch sel := s.(type) {
			case *Field:
				key := sel.ResultKey()
				if _, ok := seenField[key]; ok {
					continue
				}
				seenField[key] = struct{}{}
				merged.Selections = append(merged.Selections, sel)
			case *Link:
				key := sel.ResultKey()
				if _, ok := linkIndex[key]; ok {
					linkParts[key] = append(linkParts[key], sel.Node)
					continue
				}
				linkIndex[key] = len(merged.Selections)
				linkParts[key] = []*Node{sel.Node}
				merged.Selections = append(merged.Selections, sel)
			}
		}
	}

	// Second pass: rebuild merged links so input nodes stay untouched.
	for key, parts := range linkParts {
		if len(parts) == 1 {
			continue
		}
		i := linkIndex[key]
		orig := merged.Selections[i].(*Link)
		merged.Selections[i] = &Link{
			Name:  orig.Name,
			Alias: orig.Alias,
			Args:  orig.Args,
			Node:  Merge(parts...),
		}
	}
	return merged
}
