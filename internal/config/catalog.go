package config

import (
	"colaheal/internal/ast"
	"colaheal/internal/logic"
)

// StructureConfig bundles every structure-specific configured input a
// verification run needs: the sort of values flow sets carry, the
// invariant a freshly allocated / a shared cell must satisfy,
// and the per-field outflow and logically-contains predicates the post-image
// engine consults when computing a node's flow and when discharging a
// "contains" obligation.
type StructureConfig struct {
	Name                string
	NodeType            *ast.Type
	FlowValueType       *ast.Type
	LocalNodeInvariant  *Blueprint
	SharedNodeInvariant *Blueprint
	Outflow             map[string]*Blueprint // keyed by pointer field name
	LogicallyContains   *Blueprint
}

func freshBlueprintFactory() *logic.SymbolFactory { return logic.NewSymbolFactory() }

// singlyLinkedSetConfig models a singly-linked concurrent set keyed by a
// `key` field, outflow on `next`
// unconditional (every value not already placed reaches the successor),
// membership decided by key equality.
func singlyLinkedSetConfig() *StructureConfig {
	f := freshBlueprintFactory()
	nodeType := &ast.Type{Name: "Node", Sort: ast.SortPointer}
	nodeType.Fields = map[string]*ast.Type{"next": nodeType, "key": ast.DataType}

	self := f.Fresh("self", nodeType, logic.FirstOrder)
	nextField := f.Fresh("next", nodeType, logic.FirstOrder)
	value := f.Fresh("value", ast.DataType, logic.FirstOrder)
	keyField := f.Fresh("key", ast.DataType, logic.FirstOrder)

	localInvariant := &Blueprint{
		Self:   self,
		Fields: map[string]*logic.Symbol{"next": nextField},
		Body: &logic.StackAxiom{
			Op:    ast.OpEq,
			Left:  &ast.SymbolicExpr{Sym: nextField},
			Right: &ast.NullExpr{},
		},
	}

	outflowNext := &Blueprint{
		Self:  self,
		Value: value,
		Body:  logic.Emp(), // unconditional: every candidate value reaches the successor
	}

	logicallyContains := &Blueprint{
		Self:   self,
		Value:  value,
		Fields: map[string]*logic.Symbol{"key": keyField},
		Body: &logic.StackAxiom{
			Op:    ast.OpEq,
			Left:  &ast.SymbolicExpr{Sym: value},
			Right: &ast.SymbolicExpr{Sym: keyField},
		},
	}

	return &StructureConfig{
		Name:               "singly_linked_set",
		NodeType:           nodeType,
		FlowValueType:      ast.DataType,
		LocalNodeInvariant: localInvariant,
		Outflow:            map[string]*Blueprint{"next": outflowNext},
		LogicallyContains:  logicallyContains,
	}
}

// sortedListConfig refines singlyLinkedSetConfig with an order-bearing
// outflow: outflow on `next` is everything strictly greater than the node's
// key, which is what lets a sorted list's search stop early and still stay
// linearizable.
func sortedListConfig() *StructureConfig {
	f := freshBlueprintFactory()
	nodeType := &ast.Type{Name: "Node", Sort: ast.SortPointer}
	nodeType.Fields = map[string]*ast.Type{"next": nodeType, "key": ast.DataType}

	self := f.Fresh("self", nodeType, logic.FirstOrder)
	keyField := f.Fresh("key", ast.DataType, logic.FirstOrder)
	nextField := f.Fresh("next", nodeType, logic.FirstOrder)
	value := f.Fresh("value", ast.DataType, logic.FirstOrder)

	localInvariant := &Blueprint{
		Self:   self,
		Fields: map[string]*logic.Symbol{"next": nextField},
		Body: &logic.StackAxiom{
			Op:    ast.OpEq,
			Left:  &ast.SymbolicExpr{Sym: nextField},
			Right: &ast.NullExpr{},
		},
	}

	outflowNext := &Blueprint{
		Self:   self,
		Value:  value,
		Fields: map[string]*logic.Symbol{"key": keyField},
		Body: &logic.StackAxiom{
			Op:    ast.OpGt,
			Left:  &ast.SymbolicExpr{Sym: value},
			Right: &ast.SymbolicExpr{Sym: keyField},
		},
	}

	logicallyContains := &Blueprint{
		Self:   self,
		Value:  value,
		Fields: map[string]*logic.Symbol{"key": keyField},
		Body: &logic.StackAxiom{
			Op:    ast.OpEq,
			Left:  &ast.SymbolicExpr{Sym: value},
			Right: &ast.SymbolicExpr{Sym: keyField},
		},
	}

	return &StructureConfig{
		Name:               "sorted_list",
		NodeType:           nodeType,
		FlowValueType:      ast.DataType,
		LocalNodeInvariant: localInvariant,
		Outflow:            map[string]*Blueprint{"next": outflowNext},
		LogicallyContains:  logicallyContains,
	}
}

// flowQueueConfig models a FIFO queue as a singly-linked chain with a `val`
// field instead of `key`; ordering among queued values (FIFO discharge
// order) is not expressible as a single-node blueprint, since a blueprint
// only ever sees one node's own fields, so it is left to internal/solve's
// obligation tracking instead.
func flowQueueConfig() *StructureConfig {
	f := freshBlueprintFactory()
	nodeType := &ast.Type{Name: "Node", Sort: ast.SortPointer}
	nodeType.Fields = map[string]*ast.Type{"next": nodeType, "val": ast.DataType}

	self := f.Fresh("self", nodeType, logic.FirstOrder)
	nextField := f.Fresh("next", nodeType, logic.FirstOrder)
	value := f.Fresh("value", ast.DataType, logic.FirstOrder)
	valField := f.Fresh("val", ast.DataType, logic.FirstOrder)

	localInvariant := &Blueprint{
		Self:   self,
		Fields: map[string]*logic.Symbol{"next": nextField},
		Body: &logic.StackAxiom{
			Op:    ast.OpEq,
			Left:  &ast.SymbolicExpr{Sym: nextField},
			Right: &ast.NullExpr{},
		},
	}

	outflowNext := &Blueprint{
		Self:  self,
		Value: value,
		Body:  logic.Emp(),
	}

	logicallyContains := &Blueprint{
		Self:   self,
		Value:  value,
		Fields: map[string]*logic.Symbol{"val": valField},
		Body: &logic.StackAxiom{
			Op:    ast.OpEq,
			Left:  &ast.SymbolicExpr{Sym: value},
			Right: &ast.SymbolicExpr{Sym: valField},
		},
	}

	return &StructureConfig{
		Name:               "flow_queue",
		NodeType:           nodeType,
		FlowValueType:      ast.DataType,
		LocalNodeInvariant: localInvariant,
		Outflow:            map[string]*Blueprint{"next": outflowNext},
		LogicallyContains:  logicallyContains,
	}
}

// GetCatalog returns a fresh map of the canonical structure configurations
// built into colaheal, keyed by the name passed to --config. A fresh map
// (and fresh blueprint placeholder symbols) is built on every call rather
// than shared from a package-level variable, so that no verification run
// can mutate state another run observes.
func GetCatalog() map[string]*StructureConfig {
	return map[string]*StructureConfig{
		"singly_linked_set": singlyLinkedSetConfig(),
		"sorted_list":       sortedListConfig(),
		"flow_queue":        flowQueueConfig(),
	}
}

// IsKnownStructure reports whether name names a catalog entry.
func IsKnownStructure(name string) bool {
	_, ok := GetCatalog()[name]
	return ok
}

// GetStructureConfig returns the catalog entry for name, or nil if unknown.
func GetStructureConfig(name string) *StructureConfig {
	return GetCatalog()[name]
}
