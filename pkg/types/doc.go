// Package types defines the Resource and Storage contracts, the daybook
// entity types, change events, configuration, and standard errors shared
// by the stores and the backends.
package types
