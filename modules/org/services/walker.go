package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/org-hierarchy/modules/org/domain/hierarchy"
)

var tracer = otel.Tracer("org-hierarchy/services")

// Walker enumerates the descendants of a node depth-first.
type Walker struct {
	dir   hierarchy.Directory
	names NameResolver
}

func NewWalker(dir hierarchy.Directory, names NameResolver) *Walker {
	return &Walker{dir: dir, names: names}
}

// Walk returns a cursor over every descendant of nodeID (nodeID itself is not
// yielded). For each node the cursor yields its child accounts in listing
// order, then each child OU in listing order, every OU immediately followed by
// its own subtree.
//
// The cursor performs no remote call until the first Next.
func (w *Walker) Walk(ctx context.Context, nodeID string) *Cursor {
	return &Cursor{
		ctx:    ctx,
		w:      w,
		stack:  []frame{{parentID: nodeID, kind: hierarchy.KindAccount}},
		rootID: nodeID,
	}
}

// frame is one open node on the walk stack. kind is the listing phase:
// accounts are drained first, then organizational units.
type frame struct {
	parentID string
	depth    int
	kind     hierarchy.Kind
	page     []hierarchy.Child
	pos      int
	cursor   string
	fetched  bool
}

// Cursor is a pull-based iterator over walked nodes, used like pgx.Rows:
//
//	cur := walker.Walk(ctx, rootID)
//	for cur.Next() {
//		n := cur.Node()
//	}
//	if err := cur.Err(); err != nil {
//		...
//	}
//
// The first error stops the walk for good; nothing after it is yielded.
type Cursor struct {
	ctx      context.Context
	w        *Walker
	stack    []frame
	rootID   string
	node     hierarchy.Node
	err      error
	yielded  int
	maxDepth int
}

// Next advances to the next node, fetching listing pages and resolving names
// as needed. It returns false when the walk is complete or has failed.
func (c *Cursor) Next() bool {
	if c.err != nil {
		return false
	}
	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]

		if top.pos < len(top.page) {
			child := top.page[top.pos]
			top.pos++
			return c.yield(top, child)
		}

		if !top.fetched || top.cursor != "" {
			if err := c.fetch(top); err != nil {
				return c.fail(err)
			}
			continue
		}

		if top.kind == hierarchy.KindAccount {
			*top = frame{parentID: top.parentID, depth: top.depth, kind: hierarchy.KindOrganizationalUnit}
			continue
		}

		c.stack[len(c.stack)-1] = frame{}
		c.stack = c.stack[:len(c.stack)-1]
	}
	orgWalkMaxDepth.Set(float64(c.maxDepth))
	return false
}

// Node returns the node produced by the last successful Next.
func (c *Cursor) Node() hierarchy.Node {
	return c.node
}

// Err returns the error that stopped the walk, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Yielded is the number of nodes produced so far.
func (c *Cursor) Yielded() int {
	return c.yielded
}

// MaxDepth is the deepest level reached so far; children of the walk start are depth 1.
func (c *Cursor) MaxDepth() int {
	return c.maxDepth
}

func (c *Cursor) yield(top *frame, child hierarchy.Child) bool {
	kind := top.kind
	if child.ID == "" {
		return c.fail(fmt.Errorf("%w: child of %s without id", hierarchy.ErrMalformedResponse, top.parentID))
	}
	if child.Kind != "" && child.Kind != kind {
		return c.fail(fmt.Errorf("%w: %s listed as %s under a %s listing of %s",
			hierarchy.ErrMalformedResponse, child.ID, child.Kind, kind, top.parentID))
	}

	parentID := top.parentID
	depth := top.depth + 1

	name, err := c.w.names.ResolveName(c.ctx, kind, child.ID)
	if err != nil {
		return c.fail(err)
	}

	c.node = hierarchy.Node{ID: child.ID, Name: name, Kind: kind, ParentID: parentID}
	c.yielded++
	if depth > c.maxDepth {
		c.maxDepth = depth
	}
	recordNodeDiscovered(kind)
	logWithFields(c.ctx, logrus.DebugLevel, "node discovered", logrus.Fields{
		"id":        child.ID,
		"name":      name,
		"kind":      kind,
		"parent_id": parentID,
		"depth":     depth,
	})

	// top may move once the stack grows; nothing below reads it.
	if kind == hierarchy.KindOrganizationalUnit {
		c.stack = append(c.stack, frame{parentID: child.ID, depth: depth, kind: hierarchy.KindAccount})
	}
	return true
}

func (c *Cursor) fetch(top *frame) error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	ctx, span := tracer.Start(c.ctx, "org.ListChildren", trace.WithAttributes(
		attribute.String("org.parent_id", top.parentID),
		attribute.String("org.child_kind", string(top.kind)),
	))
	defer span.End()

	page, err := c.w.dir.ListChildren(ctx, top.parentID, top.kind, top.cursor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if page.NextCursor != "" && page.NextCursor == top.cursor {
		return fmt.Errorf("%w: listing of %s under %s repeated cursor %q",
			hierarchy.ErrMalformedResponse, top.kind, top.parentID, page.NextCursor)
	}
	span.SetAttributes(attribute.Int("org.children", len(page.Children)))
	recordPage(top.kind)

	top.page = page.Children
	top.pos = 0
	top.cursor = page.NextCursor
	top.fetched = true
	return nil
}

func (c *Cursor) fail(err error) bool {
	c.err = err
	c.node = hierarchy.Node{}
	c.stack = nil
	logWithFields(c.ctx, logrus.ErrorLevel, "walk aborted", logrus.Fields{
		"start_id": c.rootID,
		"yielded":  c.yielded,
		"error":    err.Error(),
	})
	return false
}

// Collect drains the cursor. On error it returns no nodes.
func Collect(c *Cursor) ([]hierarchy.Node, error) {
	var out []hierarchy.Node
	for c.Next() {
		out = append(out, c.Node())
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
