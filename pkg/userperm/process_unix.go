//go:build unix

package userperm

import "golang.org/x/sys/unix"

func effectiveUID() uint32 { return uint32(unix.Geteuid()) }

func effectiveGID() uint32 { return uint32(unix.Getegid()) }
