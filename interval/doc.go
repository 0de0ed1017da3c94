// Package interval implements interval-union operations on sets of genomic
// coordinates read from BED files or region strings. Overlapping intervals
// are merged, not tracked separately. Regions restrict variant calls to a
// target panel, or exclude blacklisted regions when inverted.
package interval
