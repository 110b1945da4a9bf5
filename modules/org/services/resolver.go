package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/org-hierarchy/modules/org/domain/hierarchy"
)

var ErrUnsupportedKind = errors.New("name resolution is not supported for this kind")

// NameResolver returns the display name of a listed node.
type NameResolver interface {
	ResolveName(ctx context.Context, kind hierarchy.Kind, id string) (string, error)
}

// NodeResolver dispatches name lookups to the directory call matching the
// node kind. Every call is one remote request.
type NodeResolver struct {
	dir hierarchy.Directory
}

func NewNodeResolver(dir hierarchy.Directory) *NodeResolver {
	return &NodeResolver{dir: dir}
}

// ResolveName returns "" for ids the directory reports as not found; every
// other directory error is returned as is.
func (r *NodeResolver) ResolveName(ctx context.Context, kind hierarchy.Kind, id string) (string, error) {
	var (
		name string
		err  error
	)
	switch kind {
	case hierarchy.KindAccount:
		name, err = r.dir.DescribeAccount(ctx, id)
	case hierarchy.KindOrganizationalUnit:
		name, err = r.dir.DescribeOrganizationalUnit(ctx, id)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	if err != nil {
		if errors.Is(err, hierarchy.ErrNotFound) {
			logWithFields(ctx, logrus.WarnLevel, "name lookup found no node, using empty name", logrus.Fields{
				"kind":  kind,
				"id":    id,
				"error": err.Error(),
			})
			return "", nil
		}
		return "", err
	}
	return name, nil
}
