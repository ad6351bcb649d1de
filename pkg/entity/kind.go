package entity

import (
	"strings"

	"github.com/matzehuels/labgraph/pkg/errors"
)

// Kind identifies the type of a laboratory record.
type Kind string

// Entity kinds. Material, Action, Analysis and Measurement are graph node
// kinds; Sample groups nodes and Actor describes who performed a step.
const (
	KindSample      Kind = "sample"
	KindMaterial    Kind = "material"
	KindAction      Kind = "action"
	KindAnalysis    Kind = "analysis"
	KindMeasurement Kind = "measurement"
	KindActor       Kind = "actor"
)

var (
	allKinds  = []Kind{KindSample, KindMaterial, KindAction, KindAnalysis, KindMeasurement, KindActor}
	nodeKinds = []Kind{KindMaterial, KindAction, KindAnalysis, KindMeasurement}

	collections = map[Kind]string{
		KindSample:      "samples",
		KindMaterial:    "materials",
		KindAction:      "actions",
		KindAnalysis:    "analyses",
		KindMeasurement: "measurements",
		KindActor:       "actors",
	}
)

// Kinds returns every entity kind in display order.
func Kinds() []Kind { return append([]Kind(nil), allKinds...) }

// NodeKinds returns the four graph node kinds in fixed order:
// material, action, analysis, measurement.
func NodeKinds() []Kind { return append([]Kind(nil), nodeKinds...) }

// ParseKind converts a kind name to a Kind. Matching is case-insensitive
// because stored references use class names ("Material") while the REST
// paths use lowercase ("material").
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := collections[k]; !ok {
		return "", errors.New(errors.ErrCodeInvalidKind, "unknown entity kind: %q", s)
	}
	return k, nil
}

// normalizeKind lowercases a kind without validating it. Unknown kinds in
// references are kept so that dangling or foreign references survive decoding.
func normalizeKind(s string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(s)))
}

// IsNode reports whether k is one of the graph node kinds.
func (k Kind) IsNode() bool {
	switch k {
	case KindMaterial, KindAction, KindAnalysis, KindMeasurement:
		return true
	}
	return false
}

// Title returns the capitalized kind name ("Material") as used in stored
// references and sample member maps.
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Collection returns the storage collection name for k ("analyses").
func (k Kind) Collection() string { return collections[k] }

func (k Kind) String() string { return string(k) }
