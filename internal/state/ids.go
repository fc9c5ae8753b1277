package state

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
)

// ValidateID rejects ids that cannot be mapped safely onto the items tree.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("item id is empty")
	}
	if strings.Contains(id, `\`) || strings.HasPrefix(id, "/") {
		return fmt.Errorf("invalid item id %q", id)
	}
	if path.Clean(id) != id {
		return fmt.Errorf("invalid item id %q", id)
	}
	for _, seg := range strings.Split(id, "/") {
		if seg == "" || seg == "." || seg == ".." || strings.HasPrefix(seg, ".") {
			return fmt.Errorf("invalid item id %q", id)
		}
	}
	return nil
}

type idKey struct {
	section string
	number  int // -1 when the name has no numeric prefix
	id      string
}

func parseIDKey(id string) idKey {
	section, name := "", id
	if i := strings.LastIndex(id, "/"); i >= 0 {
		section, name = id[:i], id[i+1:]
	}

	digits := 0
	for digits < len(name) && name[digits] >= '0' && name[digits] <= '9' {
		digits++
	}
	number := -1
	if digits > 0 {
		if n, err := strconv.Atoi(name[:digits]); err == nil {
			number = n
		}
	}
	return idKey{section: section, number: number, id: id}
}

// CompareIDs orders ids by section, then numeric prefix of the last
// segment, then the full id. It is a total order.
func CompareIDs(a, b string) int {
	ka, kb := parseIDKey(a), parseIDKey(b)
	if ka.section != kb.section {
		return strings.Compare(ka.section, kb.section)
	}
	if ka.number != kb.number {
		if ka.number < kb.number {
			return -1
		}
		return 1
	}
	return strings.Compare(ka.id, kb.id)
}

// SortIDs sorts ids in place with CompareIDs.
func SortIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return CompareIDs(ids[i], ids[j]) < 0
	})
}

// SortItems sorts items in place by id with CompareIDs.
func SortItems(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return CompareIDs(items[i].ID, items[j].ID) < 0
	})
}
