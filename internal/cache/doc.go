// Package cache persists fetched page bodies on disk so repeated runs within
// the TTL do not hit the network again.
package cache
