package editor

import (
	"github.com/chazu/semio/pkg/cluster"
	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/flatten"
)

// Cluster contracts ids into one node and returns its id. The node anchor
// comes from the current placement. opts.Types defaults to the editor's
// catalog.
func (e *Editor) Cluster(ids []design.PieceID, opts cluster.Options) (design.PieceID, error) {
	if opts.Types == nil {
		opts.Types = e.cat
	}
	var node design.PieceID
	err := e.run("cluster", func(d *design.Design) error {
		res, err := cluster.Cluster(d, ids, flatten.Flatten(d, e.cat), opts)
		if err != nil {
			return err
		}
		*d = *res.Design
		node = res.Node
		return nil
	})
	return node, err
}

// Explode replaces the cluster node with the pieces it holds.
func (e *Editor) Explode(node design.PieceID) error {
	return e.run("explode", func(d *design.Design) error {
		out, err := cluster.Explode(d, node)
		if err != nil {
			return err
		}
		*d = *out
		return nil
	})
}
