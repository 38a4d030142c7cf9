// Package projection implements the Row Projection Planner (C7): the
// algorithm that, given a projection request over a table, determines
// per-version which columns are effective (stored), void (nullable fill),
// or PK-reconstructed.
package projection

import (
	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/types"
	"github.com/kasugasql/immutaschema/pkg/version"
	"github.com/kasugasql/immutaschema/pkg/vtable"
)

// Query is either "all columns" or an explicit list of requested column
// names (ordinal/qualified resolution already having happened upstream in
// C4/C11; by the time it reaches the planner, names are plain column
// names).
type Query struct {
	All     bool
	Columns []types.ColumnName // ignored if All
}

// VersionSplit is the per-version projection breakdown into four pairwise
// disjoint column sets: PK columns split by whether they were requested
// (PKEffective) or not (PKVoid), and requested non-PK columns split by
// whether this version stores them (NonPKEffective) or not (NonPKVoid).
type VersionSplit struct {
	PKEffective    []types.ColumnName
	PKVoid         []types.ColumnName
	NonPKEffective []types.ColumnName
	NonPKVoid      []types.ColumnName
}

// Result maps each active version to its VersionSplit.
type Result struct {
	byVersion map[version.Number]VersionSplit
	order     []version.Number
}

// Splits returns the version splits in ascending VersionNumber order.
func (r *Result) Splits() []struct {
	Number version.Number
	Split  VersionSplit
} {
	out := make([]struct {
		Number version.Number
		Split  VersionSplit
	}, len(r.order))
	for i, n := range r.order {
		out[i] = struct {
			Number version.Number
			Split  VersionSplit
		}{Number: n, Split: r.byVersion[n]}
	}
	return out
}

// Plan computes the Result for q against vt's PK columns and the given
// active versions (must be supplied in ascending Number order).
//
// Algorithm (§4.3): compute the union of (vtable PK columns) ∪ (columns
// appearing in any active version). Any requested name absent from that
// union fails NameErrorNotFound. Then partition by each version's declared
// non-PK columns.
func Plan(vt *vtable.VTable, activeVersions []*version.Version, q Query) (*Result, error) {
	pkCols := vt.PKColumnNames()
	pkSet := make(map[types.ColumnName]bool, len(pkCols))
	for _, c := range pkCols {
		pkSet[c] = true
	}

	union := make(map[types.ColumnName]bool)
	for _, c := range pkCols {
		union[c] = true
	}
	for _, v := range activeVersions {
		for _, c := range v.NonPKColumns() {
			union[c.Name] = true
		}
	}

	var requested []types.ColumnName
	if q.All {
		for c := range union {
			requested = append(requested, c)
		}
	} else {
		for _, c := range q.Columns {
			if !union[c] {
				return nil, errs.NewNameErrorNotFound(c)
			}
			requested = append(requested, c)
		}
	}
	requestedSet := make(map[types.ColumnName]bool, len(requested))
	for _, c := range requested {
		requestedSet[c] = true
	}

	res := &Result{byVersion: make(map[version.Number]VersionSplit, len(activeVersions))}
	for _, v := range activeVersions {
		var split VersionSplit
		for _, c := range pkCols {
			if requestedSet[c] {
				split.PKEffective = append(split.PKEffective, c)
			} else {
				split.PKVoid = append(split.PKVoid, c)
			}
		}
		for c := range requestedSet {
			if pkSet[c] {
				continue
			}
			if v.HasColumn(c) {
				split.NonPKEffective = append(split.NonPKEffective, c)
			} else {
				split.NonPKVoid = append(split.NonPKVoid, c)
			}
		}
		res.byVersion[v.Id().Number] = split
		res.order = append(res.order, v.Id().Number)
	}
	return res, nil
}
