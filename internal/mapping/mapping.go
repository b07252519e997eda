// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package mapping holds channel-name remapping: a channel with no guide data
// or logo of its own borrows them from the channel it is mapped to.
package mapping

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Table maps a channel name to the name of the channel it borrows from.
// Keys and values are NFC-normalised.
type Table map[string]string

// Key normalises a channel name for lookups. Operators paste names from
// different sources, so composed and decomposed forms must compare equal.
func Key(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Parse reads the "from=to,from2=to2" form. Pairs without '=' or with an
// empty source name are skipped.
func Parse(s string) Table {
	t := Table{}
	for _, pair := range strings.Split(s, ",") {
		from, to, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		from = Key(from)
		if from == "" {
			continue
		}
		t[from] = Key(to)
	}
	return t
}

// Target returns the channel name that name maps to.
func (t Table) Target(name string) (string, bool) {
	if len(t) == 0 {
		return "", false
	}
	to, ok := t[Key(name)]
	return to, ok
}

// Overlay returns a copy of t with the entries of o taking precedence.
func (t Table) Overlay(o Table) Table {
	out := make(Table, len(t)+len(o))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Effective combines the configured table with the persisted entries of
// store. A nil store yields base unchanged.
func Effective(ctx context.Context, base Table, store Store) (Table, error) {
	if store == nil {
		return base, nil
	}
	persisted, err := store.All(ctx)
	if err != nil {
		return base, err
	}
	return base.Overlay(persisted), nil
}
