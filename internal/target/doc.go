// Package target models packaging targets: OS distribution plus optional
// architecture pairs grouped into apt and yum namespaces.
//
// It owns the naming rules shared by the downloader and the publishing
// commands: default architecture suffixes, distribution family tags, and
// built package URLs.
package target
