// Package output renders magma-auth results as a table, JSON or YAML.
//
// Table output understands structs, slices of structs or scalars, and
// maps. Field names come from the json tag. A `table:"-"` tag hides a
// field; `table:"wide"` shows it only in wide mode.
package output
