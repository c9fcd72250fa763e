// Package chart picks a visualization for a query result and renders it
// to a shareable HTML artifact.
package chart

import (
	"strings"

	"github.com/querychat/querychat/internal/warehouse"
)

type Kind string

const (
	KindBar       Kind = "bar"
	KindLine      Kind = "line"
	KindHistogram Kind = "histogram"
	KindScatter   Kind = "scatter"
)

// Selection names the chart to draw and which columns feed its axes.
type Selection struct {
	Kind  Kind
	X     string
	Y     string
	Title string
}

// profile classifies the result columns by the values of the first row,
// preserving column order.
type profile struct {
	columns []string
	numeric []string
	textual []string
}

type rule struct {
	name    string
	matches func(p profile, question string) bool
	build   func(p profile) Selection
}

// rules is evaluated top to bottom; the first match wins. Reordering
// entries changes selection behavior, so additions go where they belong,
// not at the end.
var rules = []rule{
	{
		name: "single numeric column as histogram",
		matches: func(p profile, _ string) bool {
			return len(p.columns) == 1 && len(p.numeric) == 1
		},
		build: func(p profile) Selection {
			x := p.numeric[0]
			return Selection{Kind: KindHistogram, X: x, Title: "Distribution of " + x}
		},
	},
	{
		name: "category plus measure as line for trends",
		matches: func(p profile, question string) bool {
			return len(p.numeric) >= 1 && len(p.textual) >= 1 && hasAny(question, "trend", "over time")
		},
		build: func(p profile) Selection {
			x, y := p.textual[0], p.numeric[0]
			return Selection{Kind: KindLine, X: x, Y: y, Title: y + " over " + x}
		},
	},
	{
		name: "category plus measure as bar",
		matches: func(p profile, _ string) bool {
			return len(p.numeric) >= 1 && len(p.textual) >= 1
		},
		build: func(p profile) Selection {
			x, y := p.textual[0], p.numeric[0]
			return Selection{Kind: KindBar, X: x, Y: y, Title: y + " by " + x}
		},
	},
	{
		name: "two measures as scatter for correlations",
		matches: func(p profile, question string) bool {
			return len(p.numeric) >= 2 && len(p.textual) == 0 && hasAny(question, "scatter", "correlation")
		},
		build: func(p profile) Selection {
			y, x := p.numeric[0], p.numeric[1]
			return Selection{Kind: KindScatter, X: x, Y: y, Title: "Scatter plot of " + y + " vs " + x}
		},
	},
	{
		name: "two measures as bar",
		matches: func(p profile, _ string) bool {
			return len(p.numeric) >= 2 && len(p.textual) == 0
		},
		build: func(p profile) Selection {
			y, x := p.numeric[0], p.numeric[1]
			return Selection{Kind: KindBar, X: x, Y: y, Title: y + " by " + x}
		},
	},
}

// Select returns the chart to draw for the result, or ok=false when no
// rule applies (empty results, all-text data, and similar shapes).
func Select(columns []string, rows []warehouse.Row, question string) (Selection, bool) {
	if len(rows) == 0 || len(columns) == 0 {
		return Selection{}, false
	}
	p := profileColumns(columns, rows[0])
	question = strings.ToLower(question)
	for _, r := range rules {
		if r.matches(p, question) {
			return r.build(p), true
		}
	}
	return Selection{}, false
}

func profileColumns(columns []string, first warehouse.Row) profile {
	p := profile{columns: columns}
	for _, column := range columns {
		value, ok := first[column]
		if !ok {
			continue
		}
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			p.numeric = append(p.numeric, column)
		case string:
			p.textual = append(p.textual, column)
		}
	}
	return p
}

func hasAny(question string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(question, keyword) {
			return true
		}
	}
	return false
}
