package selector

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

// Type detection precedence: filename match, then extension, then shebang,
// then magic bytes. "text" and "binary" come from content sniffing; a
// symlink is typed by its target's content but keeps its logical path.

var filenameTypes = map[string][]string{
	"Makefile":       {"makefile"},
	"GNUmakefile":    {"makefile"},
	"Dockerfile":     {"dockerfile"},
	"Containerfile":  {"dockerfile"},
	"Rakefile":       {"ruby"},
	"Gemfile":        {"ruby"},
	"go.mod":         {"gomod"},
	"go.sum":         {"gomod"},
	"Cargo.toml":     {"toml"},
	"CMakeLists.txt": {"cmake"},
}

var extensionTypes = map[string][]string{
	".go":    {"go"},
	".rs":    {"rust"},
	".js":    {"javascript"},
	".mjs":   {"javascript"},
	".cjs":   {"javascript"},
	".jsx":   {"javascript"},
	".ts":    {"typescript"},
	".tsx":   {"typescript"},
	".css":   {"css"},
	".scss":  {"css"},
	".md":    {"markdown"},
	".sh":    {"shell"},
	".bash":  {"shell"},
	".zsh":   {"shell"},
	".py":    {"python"},
	".rb":    {"ruby"},
	".json":  {"json"},
	".yaml":  {"yaml"},
	".yml":   {"yaml"},
	".toml":  {"toml"},
	".html":  {"html"},
	".xml":   {"xml"},
	".sql":   {"sql"},
	".proto": {"proto"},
	".tf":    {"terraform"},
	".java":  {"java"},
	".kt":    {"kotlin"},
	".swift": {"swift"},
	".c":     {"c"},
	".h":     {"c"},
	".cc":    {"cpp"},
	".cpp":   {"cpp"},
	".hpp":   {"cpp"},
}

var shebangTypes = map[string][]string{
	"sh":     {"shell"},
	"bash":   {"shell"},
	"zsh":    {"shell"},
	"python": {"python"},
	"node":   {"javascript"},
	"ruby":   {"ruby"},
	"perl":   {"perl"},
}

// DetectTypes returns the set of type tags for a path. A symlink is tagged
// "symlink" and then typed by its target's name and content.
func DetectTypes(path string) map[string]bool {
	types := map[string]bool{}

	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		types["symlink"] = true
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			path = resolved
		}
	}

	base := filepath.Base(path)
	if tags, ok := filenameTypes[base]; ok {
		addAll(types, tags)
	}
	if tags, ok := extensionTypes[strings.ToLower(filepath.Ext(base))]; ok {
		addAll(types, tags)
	}

	head := readHead(path)
	if len(head) > 0 {
		if len(types) == 0 || (!hasLanguage(types)) {
			if tags := detectShebang(head); len(tags) > 0 {
				addAll(types, tags)
			}
		}
		if isBinary(head) {
			types["binary"] = true
		} else {
			types["text"] = true
		}
	}

	return types
}

func hasLanguage(types map[string]bool) bool {
	for t := range types {
		if t != "symlink" && t != "text" && t != "binary" {
			return true
		}
	}
	return false
}

func addAll(types map[string]bool, tags []string) {
	for _, t := range tags {
		types[t] = true
	}
}

func readHead(path string) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	buf := make([]byte, 8000)
	n, _ := bufio.NewReader(f).Read(buf)
	return buf[:n]
}

func detectShebang(head []byte) []string {
	if !bytes.HasPrefix(head, []byte("#!")) {
		return nil
	}
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	fields := strings.Fields(string(line[2:]))
	if len(fields) == 0 {
		return nil
	}
	interp := filepath.Base(fields[0])
	if interp == "env" && len(fields) > 1 {
		interp = filepath.Base(fields[1])
	}
	// strip versions like python3
	interp = strings.TrimRight(interp, "0123456789.")
	return shebangTypes[interp]
}

// isBinary mirrors git's heuristic: a NUL byte in the first 8000 bytes.
func isBinary(head []byte) bool {
	return bytes.IndexByte(head, 0) >= 0
}
