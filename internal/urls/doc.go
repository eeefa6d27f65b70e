// Package urls holds the documentation URLs referenced from error hints and
// command help, so they can be updated in one place.
package urls
