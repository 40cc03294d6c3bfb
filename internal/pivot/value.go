// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package pivot

import (
	"math"

	"github.com/shopspring/decimal"
)

// Kind identifies what a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
)

// Value is a nullable table cell. Most cells are numbers; rank-over-time
// tables also carry network names.
type Value struct {
	Num  float64
	Str  string
	Kind Kind
}

// Null is the empty cell.
var Null = Value{}

// Num returns a numeric cell.
func Num(f float64) Value {
	return Value{Num: f, Kind: KindNumber}
}

// Text returns a text cell.
func Text(s string) Value {
	return Value{Str: s, Kind: KindText}
}

// IsNull reports whether the cell is empty.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// Float returns the numeric value and whether the cell holds a number.
func (v Value) Float() (float64, bool) {
	return v.Num, v.Kind == KindNumber
}

// finite reports whether the cell can be written as JSON.
func (v Value) finite() bool {
	if v.Kind != KindNumber {
		return true
	}
	return !math.IsNaN(v.Num) && !math.IsInf(v.Num, 0)
}

// Sub returns v - o, null when either side is not a number.
func (v Value) Sub(o Value) Value {
	a, ok1 := v.Float()
	b, ok2 := o.Float()
	if !ok1 || !ok2 {
		return Null
	}
	return Num(a - b)
}

// equalRounded compares two cells after rounding numbers to places.
// Two nulls are equal.
func equalRounded(a, b Value, places int32) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNumber:
		return roundFloat(a.Num, places) == roundFloat(b.Num, places)
	case KindText:
		return a.Str == b.Str
	default:
		return true
	}
}

// ratio returns num/den*100, null for a zero denominator.
func ratio(num, den float64) Value {
	if den == 0 {
		return Null
	}
	return Num(num / den * 100)
}

// roundFloat rounds half to even at the given number of decimal places.
// Non-finite input is returned unchanged so serialization can report it.
func roundFloat(f float64, places int32) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	r, _ := decimal.NewFromFloat(f).RoundBank(places).Float64()
	return r
}
