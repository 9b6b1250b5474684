package core

import (
	"fmt"
	"reflect"
	"strings"
)

// KeyField is one column of a natural key.
// An OnlyIfSet field only takes part in the key when its value is not blank.
type KeyField struct {
	Column    string
	Value     interface{}
	OnlyIfSet bool
}

func (f KeyField) blank() bool {
	if f.Value == nil {
		return true
	}
	rv := reflect.ValueOf(f.Value)
	switch rv.Kind() {
	case reflect.String:
		return strings.TrimSpace(rv.String()) == ""
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return rv.IsZero()
}

// NaturalKey is the ordered list of fields identifying "the same" row for a duplicate guard.
type NaturalKey struct {
	Entity string
	Fields []KeyField
}

func NewNaturalKey(entity string, fields ...KeyField) NaturalKey {
	return NaturalKey{Entity: entity, Fields: fields}
}

// Effective returns the fields that take part in the lookup.
func (k NaturalKey) Effective() []KeyField {
	flds := make([]KeyField, 0, len(k.Fields))
	for _, f := range k.Fields {
		if f.OnlyIfSet && f.blank() {
			continue
		}
		flds = append(flds, f)
	}
	return flds
}

// Where renders the key as a postgres predicate with placeholders starting at $argStart.
func (k NaturalKey) Where(argStart int) (string, []interface{}) {
	flds := k.Effective()
	conds := make([]string, 0, len(flds))
	args := make([]interface{}, 0, len(flds))
	for i, f := range flds {
		conds = append(conds, fmt.Sprintf("%s = $%d", f.Column, argStart+i))
		args = append(args, deref(f.Value))
	}
	return strings.Join(conds, " AND "), args
}

// MatchedBy reports whether a stored row, described by its own key, satisfies this lookup key.
func (k NaturalKey) MatchedBy(row NaturalKey) bool {
	for _, f := range k.Effective() {
		var found bool
		for _, rf := range row.Fields {
			if rf.Column != f.Column {
				continue
			}
			found = true
			if fmt.Sprint(deref(rf.Value)) != fmt.Sprint(deref(f.Value)) {
				return false
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (k NaturalKey) String() string {
	parts := make([]string, 0, len(k.Fields))
	for _, f := range k.Effective() {
		parts = append(parts, fmt.Sprintf("%s=%v", f.Column, deref(f.Value)))
	}
	return k.Entity + "(" + strings.Join(parts, ", ") + ")"
}

func deref(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return v
}
