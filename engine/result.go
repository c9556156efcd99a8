package engine

// Result is the flat execution index: root-level values plus one row of
// resolved values per visited node id. Link values hold target ids; the
// denormalize package folds them back into a nested tree.
type Result struct {
	Root  map[string]any
	Index map[string]map[any]map[string]any
}

func newResult() *Result {
	return &Result{
		Root:  make(map[string]any),
		Index: make(map[string]map[any]map[string]any),
	}
}

// Row returns the resolved values for one id of one node, creating the row
// on first use.
func (r *Result) Row(node string, id any) map[string]any {
	rows, ok := r.Index[node]
	if !ok {
		rows = make(map[any]map[string]any)
		r.Index[node] = rows
	}
	row, ok := rows[id]
	if !ok {
		row = make(map[string]any)
		rows[id] = row
	}
	return row
}
