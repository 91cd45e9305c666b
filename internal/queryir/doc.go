// Package queryir is the storage-level query representation of the
// reference backend.
//
// Plans never talk SQL. The store describes each physical access (a type
// scan, an index range, an incidence set) as a queryir.Query, and
// internal/querysql compiles it to parameterised SQL. Keeping the access
// paths as data lets them be validated and tested without a database.
//
// Query and Predicate are sealed: only types in this package implement
// them, so backends can switch over them exhaustively.
//
//	Select{
//	  From:    "index_entries",
//	  Columns: []string{"atom"},
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: "index_id", Value: int64(3)},
//	    Compare{Field: "key", Op: LT, Value: key},
//	  }},
//	  OrderBy: []string{"atom"},
//	}
//
// Literal values are limited to string, int64, bool and []byte.
package queryir
