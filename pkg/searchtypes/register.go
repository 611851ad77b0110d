package searchtypes

import (
	"fmt"
	"slices"

	"github.com/rubiojr/wsearch/pkg/search"
)

// All builds every built-in type, in registration order. The generic
// application type is not included; the kind specific types cover the same
// entities.
func All(deps search.Deps) []search.SearchableItemType {
	tables := NewTableType(deps)
	fields := NewFieldType(deps)
	return []search.SearchableItemType{
		NewDatabaseType(deps),
		NewBuilderType(deps),
		NewDashboardType(deps),
		NewAutomationType(deps),
		tables,
		fields,
		NewRowType(deps, tables, fields),
	}
}

// Register adds the built-in types to reg, skipping the disabled ones.
func Register(reg *search.Registry, deps search.Deps, disabled ...string) error {
	for _, t := range All(deps) {
		if slices.Contains(disabled, t.Type()) {
			continue
		}
		if err := reg.Register(t); err != nil {
			return fmt.Errorf("registering search types: %w", err)
		}
	}
	return nil
}

// NewRegistry returns a frozen registry holding the built-in types.
func NewRegistry(deps search.Deps, disabled ...string) (*search.Registry, error) {
	reg := search.NewRegistry()
	if err := Register(reg, deps, disabled...); err != nil {
		return nil, err
	}
	reg.Freeze()
	return reg, nil
}
