// Package release resolves the version pair driving a packaging run.
//
// The product version names every downstream artifact: the source archive,
// the per-target download URLs and the arguments handed to the publishing
// commands. The native runtime version is consulted only to decide whether
// the product version carries a development snapshot suffix.
package release
