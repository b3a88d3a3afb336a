package flake

import (
	"regexp"
	"strings"
)

// CanonicalRef is the remote source every published template must
// declare for its flake-fhs input.
const CanonicalRef = "github:luochen1990/flake-fhs"

// ManifestName is the flake manifest file expected in every template.
const ManifestName = "flake.nix"

var refPattern = regexp.MustCompile(`flake-fhs\.url\s*=\s*"([^"]+)"`)

// ContainsCanonicalRef reports whether the manifest text declares the
// canonical remote reference.
func ContainsCanonicalRef(content string) bool {
	return strings.Contains(content, CanonicalRef)
}

// DeclaredRefs returns every flake-fhs.url assignment value found in
// the manifest text, in order of appearance. Malformed input yields
// an empty result, never an error.
func DeclaredRefs(content string) []string {
	matches := refPattern.FindAllStringSubmatch(content, -1)
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, m[1])
	}
	return refs
}
