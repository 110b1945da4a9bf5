package sink

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/org-hierarchy/modules/org/domain/hierarchy"
)

// CSVWriter writes a header row followed by one record per node.
type CSVWriter struct{}

func (CSVWriter) Write(w io.Writer, rel *hierarchy.Relation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(hierarchy.Columns); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, n := range rows(rel) {
		if err := cw.Write(n.Record()); err != nil {
			return errors.Wrapf(err, "write csv row %s", n.ID)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "flush csv")
	}
	return nil
}

// JSONLWriter writes one JSON object per line.
type JSONLWriter struct{}

func (JSONLWriter) Write(w io.Writer, rel *hierarchy.Relation) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, n := range rows(rel) {
		if err := enc.Encode(n); err != nil {
			return errors.Wrapf(err, "encode node %s", n.ID)
		}
	}
	return nil
}

// YAMLWriter writes the relation as a single sequence of mappings.
type YAMLWriter struct{}

func (YAMLWriter) Write(w io.Writer, rel *hierarchy.Relation) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	nodes := rows(rel)
	if nodes == nil {
		nodes = []hierarchy.Node{}
	}
	if err := enc.Encode(nodes); err != nil {
		return errors.Wrap(err, "encode yaml")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "close yaml encoder")
	}
	return nil
}
