// Package archive builds the normalized source tarball for a release.
//
// The tarball is exported from version control, then round-tripped through
// an extract-and-copy pipeline that materializes symlinks into regular
// files, so downstream packaging tools never see links. A SHA-512 sidecar
// and the debian orig tarball alias are produced alongside.
package archive
