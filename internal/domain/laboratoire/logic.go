package laboratoire

// CheckParent validates a structure's parent assignment against the
// laboratory's existing structures. structureID is zero for a structure
// being created. A parent must exist, belong to the same laboratory,
// and must not close a cycle through the structure itself.
func CheckParent(all map[int64]Structure, structureID, laboratoireID int64, parent *int64) error {
	if parent == nil {
		return nil
	}
	if *parent == structureID {
		return ErrParentCycle
	}
	node, ok := all[*parent]
	if !ok {
		return ErrParentNotFound
	}
	if node.Laboratoire != laboratoireID {
		return ErrParentOtherLab
	}

	// Walk up from the proposed parent; hitting the structure being
	// edited means the edit would close a loop. The visited guard keeps
	// the walk finite even over inconsistent data.
	visited := map[int64]bool{}
	for node.Parent != nil {
		next := *node.Parent
		if next == structureID {
			return ErrParentCycle
		}
		if visited[next] {
			return ErrParentCycle
		}
		visited[next] = true
		parentNode, ok := all[next]
		if !ok {
			return nil
		}
		node = parentNode
	}
	return nil
}
