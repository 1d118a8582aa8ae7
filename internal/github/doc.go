// Package github is the remote data source for queue processing: it reads a
// pull request's state and mergeability, updates its branch, and performs
// squash merges through the GitHub REST API.
//
// Requests authenticate with a static token (oauth2 transport), are paced by
// an optional token bucket, and GETs are revalidated with ETags so polling an
// unchanged pull request costs a 304.
package github
