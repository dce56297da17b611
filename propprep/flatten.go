package propprep

// SubProperty is one flattened node of a normalized property AST. Its
// Children are indices into the same []SubProperty slice; because
// indices are assigned so every node's children already exist by the
// time the node itself is appended (binders are the one exception, see
// Flatten), the checker can iterate the slice once, bottom-up, to
// recompute every subformula's label from already-known children.
type SubProperty struct {
	Kind        Kind
	BoolConst   bool
	Atom        *Atom
	Children    []int
	VarName     string
	BinderIndex int  // for KindVar: index of the enclosing Lfp/Gfp entry
	Depth       int  // static transition depth: count of EX/AX between this node and its furthest literal
	IsLeastFP   bool // meaningful only for KindLfp/KindGfp entries
}

// Flatten lowers a normalized (PNF+ENF) property tree into a dependency
// ordered []SubProperty and returns the root's index. The root is the
// last entry unless it is a fixed point, whose entry is reserved ahead
// of its body so the body can self-reference it.
func Flatten(root *Node) ([]SubProperty, int) {
	f := &flattener{scope: map[string]int{}}
	rootIdx := f.visit(root)
	return f.out, rootIdx
}

type flattener struct {
	out   []SubProperty
	scope map[string]int
}

func (f *flattener) visit(n *Node) int {
	switch n.Kind {
	case KindLfp, KindGfp:
		idx := len(f.out)
		f.out = append(f.out, SubProperty{}) // reserve: body may self-reference
		f.scope[n.VarName] = idx
		bodyIdx := f.visit(n.Children[0])
		f.out[idx] = SubProperty{
			Kind:      n.Kind,
			VarName:   n.VarName,
			Children:  []int{bodyIdx},
			Depth:     f.out[bodyIdx].Depth,
			IsLeastFP: n.Kind == KindLfp,
		}
		delete(f.scope, n.VarName)
		return idx

	case KindVar:
		binder, ok := f.scope[n.VarName]
		if !ok {
			panic("propprep: unbound variable " + n.VarName)
		}
		idx := len(f.out)
		f.out = append(f.out, SubProperty{Kind: KindVar, VarName: n.VarName, BinderIndex: binder})
		return idx

	case KindConst:
		idx := len(f.out)
		f.out = append(f.out, SubProperty{Kind: KindConst, BoolConst: n.BoolConst})
		return idx

	case KindAtom:
		idx := len(f.out)
		f.out = append(f.out, SubProperty{Kind: KindAtom, Atom: n.Atom})
		return idx

	case KindEX, KindAX:
		child := f.visit(n.Children[0])
		idx := len(f.out)
		f.out = append(f.out, SubProperty{Kind: n.Kind, Children: []int{child}, Depth: f.out[child].Depth + 1})
		return idx

	case KindAnd, KindOr:
		left := f.visit(n.Children[0])
		right := f.visit(n.Children[1])
		depth := f.out[left].Depth
		if f.out[right].Depth > depth {
			depth = f.out[right].Depth
		}
		idx := len(f.out)
		f.out = append(f.out, SubProperty{Kind: n.Kind, Children: []int{left, right}, Depth: depth})
		return idx

	default:
		panic("propprep: Flatten: unhandled kind (did you forget to Normalize?)")
	}
}

