package server

import (
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// maxFileRefs bounds the expanded reference list per request.
const maxFileRefs = 50

// refPattern matches @path tokens in a prompt, glob metacharacters
// included.
var refPattern = regexp.MustCompile(`@([A-Za-z0-9_.~/{}\[\]*?-]+)`)

// ExtractFileRefs returns the raw @path tokens found in a prompt, in order
// of appearance, trailing sentence punctuation stripped.
func ExtractFileRefs(prompt string) []string {
	var refs []string
	for _, m := range refPattern.FindAllStringSubmatch(prompt, -1) {
		ref := strings.TrimRight(m[1], ".,;:")
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// ExpandFileRefs resolves the @path tokens of a prompt against root. Glob
// patterns expand to the files they match; plain paths are kept only if
// they exist. With no root, raw tokens are returned unresolved.
func ExpandFileRefs(prompt, root string) []string {
	refs := ExtractFileRefs(prompt)
	if root == "" || len(refs) == 0 {
		return refs
	}

	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var resolved []string

	add := func(path string) {
		if !seen[path] && len(resolved) < maxFileRefs {
			seen[path] = true
			resolved = append(resolved, path)
		}
	}

	for _, ref := range refs {
		ref = strings.TrimPrefix(ref, "./")
		if strings.ContainsAny(ref, "*?[{") {
			matches, err := doublestar.Glob(fsys, ref)
			if err != nil {
				continue
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}

		if info, err := fs.Stat(fsys, strings.TrimSuffix(ref, "/")); err == nil {
			if info.IsDir() {
				add(strings.TrimSuffix(ref, "/") + "/")
			} else {
				add(ref)
			}
		}
	}
	return resolved
}
