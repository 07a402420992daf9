package hostserver

import "github.com/tidwall/btree"

// sortedNames orders a store listing for stable JSON output. Snapshots are
// small; the tree is rebuilt per refresh.
func sortedNames(names []string) []string {
	var set btree.Set[string]
	for _, n := range names {
		set.Insert(n)
	}

	out := make([]string, 0, set.Len())
	set.Scan(func(n string) bool {
		out = append(out, n)
		return true
	})
	return out
}
