// Package keyspec implements the hierarchical path addresses used by member
// data tables: categories, path entries with key fields and wildcards, the
// canonical binary key, xpath and minikey forms, and the message navigation
// needed to reroot a body between depths or delete one of its sub-fields.
//
// A concrete keyspec (no wildcards) encodes to a Key; wildcarded keyspecs are
// only legal as queries.
package keyspec
