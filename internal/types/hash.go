package types

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/fnv"
	"slices"
)

// Hash returns a hash consistent with ExprEqual.
func Hash(e Expr) uint64 {
	h := fnv.New64a()
	writeHash(h, e)
	return h.Sum64()
}

func writeTag(h hash.Hash64, tag string, n uint64) {
	_, _ = h.Write([]byte(tag))
	_, _ = h.Write(binary.LittleEndian.AppendUint64(nil, n))
}

func writeString(h hash.Hash64, s string) {
	writeTag(h, "s", uint64(len(s)))
	_, _ = h.Write([]byte(s))
}

func writeHash(h hash.Hash64, e Expr) {
	if e == nil {
		writeTag(h, "nil", 0)
		return
	}
	switch x := e.(type) {
	case *Value:
		if x.Value == nil {
			writeTag(h, "null", 0)
			return
		}
		writeTag(h, "value", boolBit(x.Const))
		_, _ = fmt.Fprintf(h, "%#v", NormalizeValue(x.Value))
	case *Property:
		writeTag(h, "prop", 0)
		writeString(h, x.Alias)
		writeString(h, x.Name)
	case *Unary:
		writeTag(h, "unary", uint64(x.Op))
		writeHash(h, x.Operand)
	case *LogicBinary:
		writeTag(h, "lbin", uint64(x.Op))
		writeHash(h, x.Left)
		writeHash(h, x.Right)
	case *ValueBinary:
		writeTag(h, "vbin", uint64(x.Op))
		writeHash(h, x.Left)
		writeHash(h, x.Right)
	case *Function:
		writeTag(h, "func", uint64(len(x.Args)))
		writeString(h, x.Name)
		writeExprs(h, x.Args)
	case *Aggregate:
		writeTag(h, "agg", boolBit(x.Distinct))
		writeString(h, x.Name)
		writeHash(h, x.Arg)
	case *Set:
		writeTag(h, "set", uint64(x.Kind))
		if x.Kind.IsLogical() {
			writeUnordered(h, x.Children)
			return
		}
		writeExprs(h, x.Children)
	case *Foreign:
		writeTag(h, "foreign", uint64(len(x.TableArgs)))
		writeString(h, x.Relation)
		writeString(h, x.Alias)
		for _, arg := range x.TableArgs {
			writeString(h, arg)
		}
		if x.Inner == nil {
			writeHash(h, nil)
		} else {
			writeHash(h, x.Inner)
		}
	case *DynamicSQL:
		writeTag(h, "sql", 0)
		writeString(h, x.Key)
		_, _ = fmt.Fprintf(h, "%#v", NormalizeValue(x.Arg))
	case *From:
		writeTag(h, "from", 0)
		writeString(h, x.Object)
	case *Where:
		writeTag(h, "where", 0)
		writeQuery(h, x.Source)
		writeHash(h, x.Predicate)
	case *GroupBy:
		writeTag(h, "groupby", uint64(len(x.Keys)))
		writeQuery(h, x.Source)
		writeExprs(h, x.Keys)
	case *Having:
		writeTag(h, "having", 0)
		writeHash(h, x.Source)
		writeHash(h, x.Predicate)
	case *OrderBy:
		writeTag(h, "orderby", uint64(len(x.Keys)))
		writeQuery(h, x.Source)
		for _, k := range x.Keys {
			writeTag(h, "key", boolBit(k.Ascending))
			writeHash(h, k.Expr)
		}
	case *Section:
		writeTag(h, "section", uint64(x.Offset))
		writeTag(h, "take", uint64(x.Limit))
		writeQuery(h, x.Source)
	case *Select:
		writeTag(h, "select", uint64(len(x.Projections)))
		writeQuery(h, x.Source)
		for _, p := range x.Projections {
			writeString(h, p.Alias)
			writeHash(h, p.Expr)
		}
	default:
		_, _ = fmt.Fprintf(h, "%T", e)
	}
}

func writeQuery(h hash.Hash64, q Query) {
	if q == nil {
		writeHash(h, nil)
		return
	}
	writeHash(h, q)
}

func writeExprs(h hash.Hash64, exprs []Expr) {
	for _, e := range exprs {
		writeHash(h, e)
	}
}

// writeUnordered hashes the distinct child hashes in sorted order.
func writeUnordered(h hash.Hash64, exprs []Expr) {
	seen := make(map[uint64]struct{}, len(exprs))
	sums := make([]uint64, 0, len(exprs))
	for _, e := range exprs {
		sum := Hash(e)
		if _, ok := seen[sum]; ok {
			continue
		}
		seen[sum] = struct{}{}
		sums = append(sums, sum)
	}
	slices.Sort(sums)
	for _, sum := range sums {
		writeTag(h, "m", sum)
	}
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
