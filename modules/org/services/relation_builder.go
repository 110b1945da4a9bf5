package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iota-uz/org-hierarchy/modules/org/domain/hierarchy"
)

// RelationBuilder flattens the whole hierarchy below the directory root.
type RelationBuilder struct {
	dir    hierarchy.Directory
	walker *Walker
}

// NewRelationBuilder wires a builder; names defaults to a NodeResolver over dir.
func NewRelationBuilder(dir hierarchy.Directory, names NameResolver) *RelationBuilder {
	if names == nil {
		names = NewNodeResolver(dir)
	}
	return &RelationBuilder{dir: dir, walker: NewWalker(dir, names)}
}

// BuildRelation fetches the root once, then materializes the root row followed
// by every walked descendant in traversal order. Any failure returns a nil
// relation together with the original error.
func (b *RelationBuilder) BuildRelation(ctx context.Context) (rel *hierarchy.Relation, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "org.BuildRelation")
	defer func() {
		orgRelationBuildSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	root, err := b.dir.Root(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("org.root_id", root.ID))

	return b.buildFrom(ctx, root, start)
}

func (b *RelationBuilder) buildFrom(ctx context.Context, root hierarchy.Root, start time.Time) (*hierarchy.Relation, error) {
	rows := []hierarchy.Node{{
		ID:   root.ID,
		Name: root.Name,
		Kind: hierarchy.KindRoot,
	}}

	cur := b.walker.Walk(ctx, root.ID)
	for cur.Next() {
		rows = append(rows, cur.Node())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	rel := &hierarchy.Relation{Rows: rows}
	recordRelation(rel)
	counts := rel.Counts()
	logWithFields(ctx, logrus.InfoLevel, "hierarchy flattened", logrus.Fields{
		"root_id":     root.ID,
		"rows":        rel.Len(),
		"accounts":    counts[hierarchy.KindAccount],
		"ous":         counts[hierarchy.KindOrganizationalUnit],
		"max_depth":   cur.MaxDepth(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return rel, nil
}
