// Package listaction implements the generic reorder/select/clone/delete
// operations shared by the chord-pattern list and the neighbourhood list.
package listaction

// Kind enumerates the possible list mutations.
type Kind int

const (
	Delete Kind = iota
	SwapWithPrev
	Select
	Deselect
	Clone
)

// Action is a single list mutation, targeting an index (ignored for
// Deselect).
type Action struct {
	Kind  Kind
	Index int
}

// ApplyTo applies the action to vec and selected in place, using clone to
// duplicate an element for the Clone action.
func ApplyTo[X any](a Action, clone func(X) X, vec *[]X, selected *int, hasSelected *bool) {
	switch a.Kind {
	case Delete:
		i := a.Index
		*vec = append((*vec)[:i], (*vec)[i+1:]...)
		if *hasSelected {
			if *selected == 0 {
				return
			}
			if *selected >= i {
				*selected--
			}
		}
	case SwapWithPrev:
		i := a.Index
		(*vec)[i], (*vec)[i-1] = (*vec)[i-1], (*vec)[i]
		if *hasSelected {
			if *selected == i {
				*selected = i - 1
			} else if *selected == i-1 {
				*selected = i
			}
		}
	case Select:
		*selected = a.Index
		*hasSelected = true
	case Deselect:
		*hasSelected = false
	case Clone:
		*vec = append(*vec, clone((*vec)[a.Index]))
		if *hasSelected {
			*selected = len(*vec) - 1
		}
	}
}
