package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently so log lines can be aggregated and queried.
const (
	// ========================================================================
	// Identity
	// ========================================================================
	KeyUID        = "uid"        // Resolved user ID
	KeyGID        = "gid"        // Resolved primary group ID
	KeyOwnerUID   = "owner_uid"  // Inode owner user ID
	KeyOwnerGID   = "owner_gid"  // Inode owner group ID
	KeyGroups     = "groups"     // Supplementary group IDs
	KeyCredential = "credential" // Whole credential (slog.LogValuer)
	KeyUserSpec   = "user_spec"  // user[:group] spec passed to a lookup

	// ========================================================================
	// Configuration & Operation
	// ========================================================================
	KeyConfigPath = "config_path" // Configuration file in use
	KeyOperation  = "operation"   // Command or sub-operation name
	KeySource     = "source"      // Where a value came from: config, flag, process, userdb
	KeyError      = "error"       // Error message
)

// UID creates a uid attribute
func UID(uid uint32) slog.Attr {
	return slog.Any(KeyUID, uid)
}

// GID creates a gid attribute
func GID(gid uint32) slog.Attr {
	return slog.Any(KeyGID, gid)
}

// Groups creates a supplementary groups attribute
func Groups(gids []uint32) slog.Attr {
	return slog.Any(KeyGroups, gids)
}

// Source creates a value-origin attribute
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// Operation creates an operation attribute
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Err creates an error attribute. A nil error yields an empty attribute,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
