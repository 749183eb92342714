// Package schema describes database structure independently of any product.
//
// It holds the descriptors the reconciliation engine works with (Table, Column,
// Index, View, Schema) together with the two pure algorithms it relies on:
//
//   - Homology: structural comparison of two table descriptions.
//   - ViewPlanner: dependency-safe ordering of view drops and deploys.
//
// Descriptors are plain values. Copy produces a deep copy that shares no slices
// with the original, which is how they cross cache boundaries.
//
// # Names
//
// Object identity is decided by a NamePolicy. The default, UpperCase, treats
// names case-insensitively. CaseSensitive uses names verbatim for products
// configured with case-sensitive identifiers.
//
// # Schema Files
//
// Target schemas can be declared in YAML:
//
//	tables:
//	  - name: Customer
//	    columns:
//	      - {name: id, type: BIG_INTEGER, primaryKey: true}
//	      - {name: name, type: STRING, width: 60, nullable: true}
//	    indexes:
//	      - {name: Customer_1, columns: [name], unique: true}
//	views:
//	  - name: CustomerNames
//	    select: SELECT name FROM Customer
package schema
