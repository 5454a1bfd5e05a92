package git

import "sort"

// Status is the classified view of the index and working tree. All paths
// are repo-relative and sorted.
type Status struct {
	Staged    []string
	Unstaged  []string
	Untracked []string
	Modified  []string

	StagedAdded    []string
	StagedModified []string
	StagedDeleted  []string
	StagedRenamed  []string
	StagedCopied   []string

	UnstagedModified []string
	UnstagedDeleted  []string
}

// parsePorcelain parses `git status --porcelain=v1 -z` output. Entries are
// NUL-terminated; rename/copy entries carry the original path in a second
// NUL-terminated field which is discarded (the stored path is the current
// one).
func parsePorcelain(out []byte) *Status {
	st := &Status{}
	fields := splitNul(out)
	for i := 0; i < len(fields); i++ {
		entry := fields[i]
		if len(entry) < 4 {
			continue
		}
		x, y := entry[0], entry[1]
		path := entry[3:]

		if x == '?' && y == '?' {
			st.Untracked = append(st.Untracked, path)
			continue
		}

		switch x {
		case 'A':
			st.StagedAdded = append(st.StagedAdded, path)
		case 'M', 'T':
			st.StagedModified = append(st.StagedModified, path)
		case 'D':
			st.StagedDeleted = append(st.StagedDeleted, path)
		case 'R':
			st.StagedRenamed = append(st.StagedRenamed, path)
			i++ // consume the original path field
		case 'C':
			st.StagedCopied = append(st.StagedCopied, path)
			i++
		}
		if x != ' ' && x != '?' {
			st.Staged = append(st.Staged, path)
		}

		switch y {
		case 'M', 'T':
			st.UnstagedModified = append(st.UnstagedModified, path)
		case 'D':
			st.UnstagedDeleted = append(st.UnstagedDeleted, path)
		}
		if y != ' ' && y != '?' {
			st.Unstaged = append(st.Unstaged, path)
		}
	}

	seen := map[string]bool{}
	for _, p := range append(append([]string{}, st.Staged...), st.Unstaged...) {
		if !seen[p] {
			seen[p] = true
			st.Modified = append(st.Modified, p)
		}
	}

	for _, list := range []*[]string{
		&st.Staged, &st.Unstaged, &st.Untracked, &st.Modified,
		&st.StagedAdded, &st.StagedModified, &st.StagedDeleted,
		&st.StagedRenamed, &st.StagedCopied,
		&st.UnstagedModified, &st.UnstagedDeleted,
	} {
		sort.Strings(*list)
	}
	return st
}

func splitNul(out []byte) []string {
	var fields []string
	start := 0
	for i, b := range out {
		if b == 0 {
			if i > start {
				fields = append(fields, string(out[start:i]))
			}
			start = i + 1
		}
	}
	if start < len(out) {
		fields = append(fields, string(out[start:]))
	}
	return fields
}
