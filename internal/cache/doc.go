// Package cache keeps recently synthesized audio in memory so that reading
// the same text with the same voice again does not call the API. Nothing
// is written to disk.
package cache
