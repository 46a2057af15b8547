// Package fields binds abstract chart roles to result columns.
package fields

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mahesh-hegde/vizext/app/common"
	"github.com/mahesh-hegde/vizext/app/host"
)

type MatchMode string

const (
	// MatchExact only accepts a column whose field name equals the bound name.
	MatchExact MatchMode = "exact"
	// MatchContains tries an exact match across all columns first, then
	// accepts the first column whose field name contains the bound name.
	// Aggregated field names such as "SUM(Sales)" resolve this way, but so
	// can an unrelated column with a similar name.
	MatchContains MatchMode = "contains"
)

func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(s) {
	case "", MatchExact:
		return MatchExact, nil
	case MatchContains:
		return MatchContains, nil
	}
	return "", fmt.Errorf("unknown match mode %q", s)
}

// Mapping is the resolved role -> column index binding.
type Mapping map[common.FieldRole]int

// FindColumn returns the index of the column bound to name, or -1.
func FindColumn(columns []host.Column, name string, mode MatchMode) int {
	if name == "" {
		return -1
	}
	if idx := slices.IndexFunc(columns, func(c host.Column) bool { return c.FieldName == name }); idx >= 0 {
		return idx
	}
	if mode != MatchContains {
		return -1
	}
	return slices.IndexFunc(columns, func(c host.Column) bool { return strings.Contains(c.FieldName, name) })
}

// TypeFallback assigns the first text column to Category and the first
// numeric column to Value, for whichever of the two is still unbound.
type TypeFallback struct {
	Category common.FieldRole
	Value    common.FieldRole
}

// Apply fills the unbound roles of m in column order, skipping columns that
// are already taken by another role. m is not modified.
func (f TypeFallback) Apply(columns []host.Column, m Mapping) Mapping {
	out := make(Mapping, len(m)+2)
	taken := make(map[int]struct{}, len(m))
	for role, idx := range m {
		out[role] = idx
		taken[idx] = struct{}{}
	}
	pick := func(role common.FieldRole, want func(common.DataType) bool) {
		if _, bound := out[role]; bound || role == "" {
			return
		}
		for i, c := range columns {
			if _, used := taken[i]; used {
				continue
			}
			if want(c.DataType) {
				out[role] = i
				taken[i] = struct{}{}
				return
			}
		}
	}
	pick(f.Category, common.DataType.IsText)
	pick(f.Value, common.DataType.IsNumeric)
	return out
}

type Resolver struct {
	Roles    []common.FieldRole
	Mode     MatchMode
	Fallback *TypeFallback
}

// Resolve binds every required role. Bindings come first; the type
// fallback, if configured, only runs when some role is still unbound. The
// returned error wraps common.ErrUnresolved and names the missing roles.
func (r Resolver) Resolve(columns []host.Column, bindings map[common.FieldRole]string) (Mapping, error) {
	m := make(Mapping, len(r.Roles))
	for _, role := range r.Roles {
		if idx := FindColumn(columns, bindings[role], r.Mode); idx >= 0 {
			m[role] = idx
		}
	}
	if len(m) < len(r.Roles) && r.Fallback != nil {
		m = r.Fallback.Apply(columns, m)
	}

	var missing []string
	for _, role := range r.Roles {
		if _, ok := m[role]; !ok {
			missing = append(missing, string(role))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrUnresolved, strings.Join(missing, ", "))
	}
	return m, nil
}
