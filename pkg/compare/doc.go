// Package compare summarizes a metric across several result sets.
package compare
