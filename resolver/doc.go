// Package resolver computes the backup targets an offsite host must provide.
//
// TargetResolver searches the node registry for backup client nodes and
// flattens each node's declared target list into a single sequence:
//
//	nodes := registry.Search(ctx, "tags:backupclient")
//	for each node: append node["opscode_backup"]["targets"]...
//
// Order follows the registry's iteration order, then each node's declared
// order. Duplicates are kept. A node without the attribute contributes
// nothing. A failed search fails the whole resolution: there is no partial
// result.
package resolver
