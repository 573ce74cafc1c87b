package griddb

import "github.com/lunfardo314/griddb/storage"

// linkGraph writes the edge child -> node. Called only at commit, with
// child the version that was the working tip and is now becoming a fixed
// point in the graph: the working version is never linked until commit.
func linkGraph(tx storage.Tx, tree string, child Version, node VersionNode) error {
	_, err := tx.Insert(tree, encodeVersion(child), encodeVersionNode(node))
	return err
}

func nodeOf(tx storage.Tx, tree string, v Version) (VersionNode, bool, error) {
	raw, err := tx.Get(tree, encodeVersion(v))
	if err != nil {
		return VersionNode{}, false, err
	}
	if raw == nil {
		return VersionNode{}, false, nil
	}
	n, err := decodeVersionNode(raw)
	if err != nil {
		return VersionNode{}, false, err
	}
	return n, true, nil
}

// walkToRoot follows parent pointers from start until it reaches a node
// with no parent (the graph root), returning the full chain including
// start and the root. A version with no recorded node before the root is
// reached means the graph cannot vouch for a path and ErrNoPathExistsToRoot
// is returned.
func walkToRoot(tx storage.Tx, tree string, start Version) ([]Version, error) {
	chain := []Version{start}
	cur := start
	for {
		node, ok, err := nodeOf(tx, tree, cur)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoPathExistsToRoot
		}
		if node.Parent == nil {
			return chain, nil
		}
		cur = *node.Parent
		chain = append(chain, cur)
	}
}

// findPath computes the ordered list of versions to traverse when
// migrating the working view's parent from a to b, plus
// b's own parent in the graph (end_parent), which the orchestrator caches
// in metadata. If a == b the result is the length-1 path [a].
func findPath(tx storage.Tx, tree string, a, b Version) (path []Version, endParent *Version, err error) {
	chainA, err := walkToRoot(tx, tree, a)
	if err != nil {
		return nil, nil, err
	}
	chainB, err := walkToRoot(tx, tree, b)
	if err != nil {
		return nil, nil, err
	}

	indexA := make(map[Version]int, len(chainA))
	for i, v := range chainA {
		indexA[v] = i
	}

	lcaA, lcaB := -1, -1
	for i, v := range chainB {
		if j, ok := indexA[v]; ok {
			lcaA, lcaB = j, i
			break
		}
	}
	if lcaA < 0 {
		return nil, nil, ErrNoPathExists
	}

	path = make([]Version, 0, lcaA+1+lcaB)
	path = append(path, chainA[:lcaA+1]...)
	for i := lcaB - 1; i >= 0; i-- {
		path = append(path, chainB[i])
	}

	bNode, ok, err := nodeOf(tx, tree, b)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrNoPathExistsToRoot
	}
	endParent = bNode.Parent

	return path, endParent, nil
}
