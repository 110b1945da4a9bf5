// Package sink serializes a flattened hierarchy into file formats.
package sink

import (
	"io"
	"strings"

	"github.com/go-faster/errors"

	"github.com/iota-uz/org-hierarchy/modules/org/domain/hierarchy"
)

type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSONL    Format = "jsonl"
	FormatYAML     Format = "yaml"
	FormatXLSX     Format = "xlsx"
	FormatPostgres Format = "postgres"
)

var (
	ErrUnknownFormat = errors.New("unknown export format")
	// ErrNotFileFormat is returned by New for formats that are not written to a stream.
	ErrNotFileFormat = errors.New("format is not a file format")
)

func ParseFormat(v string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(v))); f {
	case FormatCSV, FormatJSONL, FormatYAML, FormatXLSX, FormatPostgres:
		return f, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%q", v)
	}
}

// Binary reports whether the format must not be written to a terminal.
func (f Format) Binary() bool { return f == FormatXLSX }

// Writer encodes a relation onto w. The relation is written in row order.
type Writer interface {
	Write(w io.Writer, rel *hierarchy.Relation) error
}

func New(f Format) (Writer, error) {
	switch f {
	case FormatCSV:
		return CSVWriter{}, nil
	case FormatJSONL:
		return JSONLWriter{}, nil
	case FormatYAML:
		return YAMLWriter{}, nil
	case FormatXLSX:
		return XLSXWriter{Sheet: DefaultSheet}, nil
	case FormatPostgres:
		return nil, errors.Wrapf(ErrNotFileFormat, "%s", f)
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", string(f))
	}
}

func rows(rel *hierarchy.Relation) []hierarchy.Node {
	if rel == nil {
		return nil
	}
	return rel.Rows
}
