// Package userperm models the identity a storage client presents when it
// evaluates filesystem permissions.
//
// A Credential carries:
//   - the effective user and group IDs (each optional)
//   - an ordered list of supplementary group IDs
//   - the inode owner identity used for ownership comparisons, which may
//     differ from the acting identity (e.g. an operation re-executed with
//     elevated privileges on behalf of another user)
//
// Unset IDs resolve lazily against a ProcessIdentity, by default the
// effective uid/gid of the running process. Inode owner IDs that are unset
// resolve to the resolved user/group IDs, not to the raw fields.
//
// Credentials are plain values. The supplementary group list is never
// modified in place: every mutator installs a fresh slice. Copies that share
// group storage therefore stay independent, and there is no borrowed/owned
// lifetime to track.
package userperm
