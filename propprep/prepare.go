package propprep

import "fmt"

// Property is a fully prepared property: parsed, normalized to PNF/ENF,
// and flattened, ready for the checker to label.
type Property struct {
	Source string
	Flat   []SubProperty
	Root   int
}

// Prepare parses, normalizes and flattens src in one step.
func Prepare(src string) (*Property, error) {
	node, err := Parse(src)
	if err != nil {
		return nil, err
	}
	normalized := Normalize(node)
	flat, root := Flatten(normalized)
	return &Property{Source: src, Flat: flat, Root: root}, nil
}

// String renders a minimal debug form of the flattened property, for
// logging and test failure messages.
func (p *Property) String() string {
	return fmt.Sprintf("propprep.Property{source:%q, nodes:%d}", p.Source, len(p.Flat))
}
