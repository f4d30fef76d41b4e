//go:build linux

package arp

import (
	"bytes"
	"io"
	"os"
)

const procCache = "/proc/net/arp"

// FromCache returns "/proc/net/arp" as io.Reader, nil if it can not be read.
func FromCache() io.Reader {
	b, err := os.ReadFile(procCache)
	if err != nil {
		return nil
	}
	return bytes.NewReader(b)
}
