package config

import (
	"colaheal/internal/encode"
	"colaheal/internal/logic"
)

// EncodeInvariants asserts the configured local/shared node invariant,
// instantiated against every matching memory resource found in now, as a
// premise on ctx. This is the "EncodeInvariants" step the post-image
// engine's satisfiability and implication queries always run first, so that
// a configured invariant (e.g. a sorted list's local-node invariant that
// next is null) is available to every query without every caller re-deriving it.
func (c *StructureConfig) EncodeInvariants(ctx *encode.Context, now logic.Formula) error {
	for _, m := range logic.Collect[logic.MemoryAxiom](now, nil) {
		var bp *Blueprint
		if m.Shared() {
			bp = c.SharedNodeInvariant
		} else {
			bp = c.LocalNodeInvariant
		}
		if bp == nil {
			continue
		}
		if err := ctx.AddPremise(bp.Instantiate(m, nil)); err != nil {
			return err
		}
	}
	return nil
}
