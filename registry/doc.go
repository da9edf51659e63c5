// Package registry provides read-only search over the node registry, the index
// of every registered host together with its tags and declared attributes.
//
// The package implements the interfaces.NodeQuery interface with three
// backends:
//
//   - MemoryRegistry: an ordered in-memory node list for fixtures and tests
//   - FileRegistry: a directory of node documents (JSON or YAML)
//   - HTTPRegistry: a search endpoint returning node documents as rows
//
// # Query Syntax
//
// Queries are a single field:value term:
//
//	tags:backupclient          nodes carrying the tag
//	name:backup01              nodes with the given name
//	chef_environment:prod      nodes in the given environment
//	opscode_backup.role:client nodes whose attribute equals (or lists) the value
//	*:*                        every node
//
// A value of "*" matches any node on which the field is present.
//
// # Node Documents
//
// Node documents follow the shape of a chef node object:
//
//	{
//	  "name": "db01",
//	  "chef_environment": "prod",
//	  "normal": {
//	    "tags": ["backupclient"],
//	    "opscode_backup": {"targets": ["db01-pg"]}
//	  }
//	}
//
// The default, normal, override and automatic attribute maps are deep-merged,
// later levels winning, into the Node.Attributes view.
//
// Backends are selected from a URI with NewQueryFromURI:
//
//	file:///var/lib/offsite/nodes
//	https://registry.example.com/api
package registry
