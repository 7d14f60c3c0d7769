// Package queryclass recognizes index-lifecycle queries: statements whose
// effect is to create or drop a materialized index rather than compute a
// result set. Everything else is a plain query for the dispatcher.
package queryclass

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// FullyQualifiedTableName is a dotted table reference split into its parts.
// One-part names carry only the table, two-part names schema.table, and
// three-part names datasource.schema.table.
type FullyQualifiedTableName struct {
	Datasource string
	Schema     string
	Table      string
}

func parseFQTN(name string) FullyQualifiedTableName {
	parts := strings.Split(name, ".")
	switch len(parts) {
	case 1:
		return FullyQualifiedTableName{Table: parts[0]}
	case 2:
		return FullyQualifiedTableName{Schema: parts[0], Table: parts[1]}
	default:
		return FullyQualifiedTableName{
			Datasource: parts[0],
			Schema:     parts[1],
			Table:      strings.Join(parts[2:], "."),
		}
	}
}

// IndexDetails is the parsed description of one index-lifecycle query.
// IndexName is empty for skipping indexes, which are singletons per table.
type IndexDetails struct {
	IndexName   string
	Table       FullyQualifiedTableName
	AutoRefresh bool
	Drop        bool
}

// StoreIndexName is the name of the backing document-store index holding the
// materialized data.
func (d IndexDetails) StoreIndexName() string {
	var parts []string
	for _, p := range []string{d.Table.Datasource, d.Table.Schema, d.Table.Table} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	qualifier := strings.Join(parts, "_")
	if d.IndexName == "" {
		return strings.ToLower(fmt.Sprintf("glint_%s_skipping_index", qualifier))
	}
	return strings.ToLower(fmt.Sprintf("glint_%s_%s_index", qualifier, d.IndexName))
}

// Classifier is the query-classification collaborator consumed by the
// dispatcher.
type Classifier interface {
	IsIndexQuery(query string) bool
	Extract(query string) (IndexDetails, error)
}

var (
	createSkippingRe = regexp.MustCompile(`(?is)^\s*CREATE\s+SKIPPING\s+INDEX\s+ON\s+([\w.]+)\s*\(.+?\)\s*(?:WITH\s*\((.*)\)\s*)?$`)
	createCoveringRe = regexp.MustCompile(`(?is)^\s*CREATE\s+INDEX\s+(\w+)\s+ON\s+([\w.]+)\s*\(.+?\)\s*(?:WITH\s*\((.*)\)\s*)?$`)
	dropSkippingRe   = regexp.MustCompile(`(?is)^\s*DROP\s+SKIPPING\s+INDEX\s+ON\s+([\w.]+)\s*$`)
	dropCoveringRe   = regexp.MustCompile(`(?is)^\s*DROP\s+INDEX\s+(\w+)\s+ON\s+([\w.]+)\s*$`)
	autoRefreshRe    = regexp.MustCompile(`(?i)auto_refresh\s*=\s*true`)
)

// Default is a regex-based classifier covering the materialized index DDL
// subset.
type Default struct{}

func (Default) IsIndexQuery(query string) bool {
	return createSkippingRe.MatchString(query) ||
		createCoveringRe.MatchString(query) ||
		dropSkippingRe.MatchString(query) ||
		dropCoveringRe.MatchString(query)
}

func (Default) Extract(query string) (IndexDetails, error) {
	if m := dropSkippingRe.FindStringSubmatch(query); m != nil {
		return IndexDetails{Table: parseFQTN(m[1]), Drop: true}, nil
	}
	if m := dropCoveringRe.FindStringSubmatch(query); m != nil {
		return IndexDetails{IndexName: m[1], Table: parseFQTN(m[2]), Drop: true}, nil
	}
	if m := createSkippingRe.FindStringSubmatch(query); m != nil {
		return IndexDetails{
			Table:       parseFQTN(m[1]),
			AutoRefresh: autoRefreshRe.MatchString(m[2]),
		}, nil
	}
	if m := createCoveringRe.FindStringSubmatch(query); m != nil {
		return IndexDetails{
			IndexName:   m[1],
			Table:       parseFQTN(m[2]),
			AutoRefresh: autoRefreshRe.MatchString(m[3]),
		}, nil
	}
	return IndexDetails{}, errors.Errorf("not an index query: %q", query)
}
