//go:build !linux

package arp

import "io"

// FromCache is only supported on linux and returns nil elsewhere.
func FromCache() io.Reader {
	return nil
}
