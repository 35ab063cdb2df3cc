package target

import (
	"errors"
	"fmt"
	"strings"
)

// Namespace identifies a packaging repository flavor.
// The set is closed: packages are published either to an APT (deb)
// or a YUM (rpm) repository.
type Namespace int

const (
	// NamespaceApt covers Debian-family targets publishing .deb packages.
	NamespaceApt Namespace = iota
	// NamespaceYum covers RPM-family targets publishing .rpm packages.
	NamespaceYum
)

// ErrUnknownNamespace is returned when a namespace string is not apt or yum.
var ErrUnknownNamespace = errors.New("unknown packaging namespace")

// ParseNamespace converts user input to a Namespace.
func ParseNamespace(s string) (Namespace, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "apt":
		return NamespaceApt, nil
	case "yum":
		return NamespaceYum, nil
	default:
		return NamespaceApt, fmt.Errorf("%w: %q", ErrUnknownNamespace, s)
	}
}

// String returns the lowercase namespace name.
func (n Namespace) String() string {
	if n == NamespaceYum {
		return "yum"
	}

	return "apt"
}

// Target identifies an OS distribution plus optional architecture,
// e.g. "debian-bookworm" or "almalinux-9-aarch64".
type Target string

// Default target tables. Declaration order is the processing order.
var (
	//nolint:gochecknoglobals // Static configuration tables.
	DefaultAptTargets = []Target{
		"debian-bookworm",
		"debian-bookworm-arm64",
		"debian-trixie",
		"debian-trixie-arm64",
		"ubuntu-jammy",
		"ubuntu-noble",
		"ubuntu-noble-arm64",
	}

	//nolint:gochecknoglobals // Static configuration tables.
	DefaultYumTargets = []Target{
		"almalinux-8",
		"almalinux-9",
		"almalinux-9-aarch64",
		"amazonlinux-2023",
		"amazonlinux-2023-aarch64",
	}
)

// Family returns the distribution family tag: the upper-cased substring
// before the first hyphen ("debian-bookworm-arm64" -> "DEBIAN").
func (t Target) Family() string {
	name := string(t)
	if i := strings.Index(name, "-"); i >= 0 {
		name = name[:i]
	}

	return strings.ToUpper(name)
}

// ArtifactName returns the artifact basename for the target within the
// given namespace. Targets without an explicit architecture get the default
// architecture suffix of their namespace: "-amd64" for apt, "-x86_64" for yum.
func (t Target) ArtifactName(ns Namespace) string {
	name := string(t)

	switch ns {
	case NamespaceYum:
		if strings.HasSuffix(name, "-aarch64") {
			return name
		}

		return name + "-x86_64"
	case NamespaceApt:
		fallthrough
	default:
		if strings.HasSuffix(name, "-arm64") {
			return name
		}

		return name + "-amd64"
	}
}

// BuiltPackageURL returns the download URL of the pre-built package bundle
// for the target, following the github releases layout.
func (t Target) BuiltPackageURL(base, version string, ns Namespace) string {
	return fmt.Sprintf("%s/releases/download/v%s/%s.tar.gz",
		strings.TrimSuffix(base, "/"), version, t.ArtifactName(ns))
}

// Families returns the distinct distribution families of the given targets,
// in first-occurrence order.
func Families(targets []Target) []string {
	seen := make(map[string]struct{}, len(targets))
	families := make([]string, 0, len(targets))

	for _, t := range targets {
		family := t.Family()
		if _, ok := seen[family]; ok {
			continue
		}

		seen[family] = struct{}{}

		families = append(families, family)
	}

	return families
}
