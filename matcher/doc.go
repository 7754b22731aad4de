// Package matcher decides which catalog search result corresponds to a track
// found in the local library.
//
// Titles are compared after Normalize; candidates on excluded albums, or
// whose names carry an exclusion token the local name lacks (live, remix,
// cover and the like), are skipped. Among the survivors the earliest release
// wins. A result that matches nothing is reported as NoMatch, never as an error.
package matcher
