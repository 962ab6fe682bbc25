//go:build !unix

package userperm

import "os"

// os.Geteuid and os.Getegid return -1 on platforms without POSIX ids.
func effectiveUID() uint32 {
	if id := os.Geteuid(); id >= 0 {
		return uint32(id)
	}
	return NoID
}

func effectiveGID() uint32 {
	if id := os.Getegid(); id >= 0 {
		return uint32(id)
	}
	return NoID
}
