package store

import (
	"fmt"
	"strings"
)

func isConcrete(m *Model) bool {
	return !m.Abstract && !m.Proxy
}

// ParentList returns every ancestor of the model, depth first, without duplicates.
func ParentList(model *Model) []*Model {
	var parents []*Model
	seen := map[*Model]bool{model: true}
	var walk func(m *Model)
	walk = func(m *Model) {
		for _, p := range m.Parents {
			if seen[p] {
				continue
			}
			seen[p] = true
			parents = append(parents, p)
			walk(p)
		}
	}
	walk(model)
	return parents
}

// ConcreteAncestors returns the concrete models that share storage with model,
// starting with model itself (when concrete) and ending with the top-most
// concrete ancestor. Abstract and proxy models are skipped.
//
// Each model may reach at most one concrete parent, directly or through
// abstract and proxy parents; otherwise ErrAmbiguousInheritance is returned.
func ConcreteAncestors(model *Model) ([]*Model, error) {
	var chain []*Model
	inChain := map[*Model]bool{model: true}
	if isConcrete(model) {
		chain = append(chain, model)
	}

	cur := model
	for {
		next, err := nearestConcrete(cur)
		if err != nil {
			return nil, err
		}
		if len(next) == 0 {
			break
		}
		if len(next) > 1 {
			return nil, fmt.Errorf("%w: %s has concrete parents %s",
				ErrAmbiguousInheritance, cur, modelNames(next))
		}
		if inChain[next[0]] {
			return nil, fmt.Errorf("%w: cycle through %s", ErrAmbiguousInheritance, next[0])
		}
		inChain[next[0]] = true
		chain = append(chain, next[0])
		cur = next[0]
	}

	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAbstractModel, model)
	}
	return chain, nil
}

// nearestConcrete returns the concrete models reachable from m's parents
// through abstract and proxy models only.
func nearestConcrete(m *Model) ([]*Model, error) {
	var found []*Model
	seen := make(map[*Model]bool)
	onPath := map[*Model]bool{m: true}

	var walk func(cur *Model) error
	walk = func(cur *Model) error {
		for _, p := range cur.Parents {
			if onPath[p] {
				return fmt.Errorf("%w: cycle through %s", ErrAmbiguousInheritance, p)
			}
			if seen[p] {
				continue
			}
			seen[p] = true
			if isConcrete(p) {
				found = append(found, p)
				continue
			}
			onPath[p] = true
			if err := walk(p); err != nil {
				return err
			}
			delete(onPath, p)
		}
		return nil
	}

	if err := walk(m); err != nil {
		return nil, err
	}
	return found, nil
}

// TopConcreteParent returns the concrete ancestor that owns the model's storage kind.
func TopConcreteParent(model *Model) (*Model, error) {
	chain, err := ConcreteAncestors(model)
	if err != nil {
		return nil, err
	}
	return chain[len(chain)-1], nil
}

// HasConcreteParents returns true if the model shares storage with concrete ancestors.
func HasConcreteParents(model *Model) (bool, error) {
	chain, err := ConcreteAncestors(model)
	if err != nil {
		return false, err
	}
	return len(chain) > 1, nil
}

// StorageKind returns the kind entities of the model are stored under.
func StorageKind(model *Model) (string, error) {
	root, err := TopConcreteParent(model)
	if err != nil {
		return "", err
	}
	return root.Kind, nil
}

func modelNames(models []*Model) string {
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}
	return "[" + strings.Join(names, ", ") + "]"
}
