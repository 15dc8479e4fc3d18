package event

import (
	"strconv"
	"strings"
)

// pathNode is one segment of a parsed field path: either a map key or an
// array index.
//
// Grounded on vector's PathIter / PathNode (src/event/util/log/get.rs,
// all_fields.rs): "." descends into a map, "[n]" indexes into an array.
type pathNode struct {
	key     string
	index   int
	isIndex bool
}

// parsePath splits a dotted/indexed path string ("a.b[0].c") into its
// component nodes. An empty path yields no nodes.
func parsePath(path string) []pathNode {
	if path == "" {
		return nil
	}
	var nodes []pathNode
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			nodes = append(nodes, pathNode{key: cur.String()})
			cur.Reset()
		}
	}

	i := 0
	for i < len(path) {
		c := path[i]
		switch c {
		case '.':
			flush()
			i++
		case '[':
			flush()
			j := strings.IndexByte(path[i:], ']')
			if j < 0 {
				// Malformed: treat the rest as a literal key segment.
				cur.WriteString(path[i:])
				i = len(path)
				continue
			}
			idxStr := path[i+1 : i+j]
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				cur.WriteString(path[i : i+j+1])
				i += j + 1
				continue
			}
			nodes = append(nodes, pathNode{index: idx, isIndex: true})
			i += j + 1
		default:
			cur.WriteByte(c)
			i++
		}
	}
	flush()
	return nodes
}
