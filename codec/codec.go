// Package codec serializes expression trees to a compact tagged JSON form.
//
// Properties encode as {"@": "path"}, bound parameters encode as their raw
// JSON value, and every other node encodes as an object whose "$" member
// names its kind:
//
//	{"$":"bin","op":"gt","l":{"@":"Age"},"r":18}
//
// Decoding dispatches on the name of an object's first member, "@" or "$".
// Any other JSON value, objects included, decodes as a raw parameter. A
// parameter whose own encoding starts with one of those names is wrapped:
//
//	{"$":"value","v":{"@":"not a property"}}
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/zoobzio/exprql/internal/types"
)

// Node kind tags.
const (
	TagValue     = "value"
	TagConst     = "const"
	TagBinary    = "bin"
	TagUnary     = "unary"
	TagFunction  = "func"
	TagAggregate = "aggregate"
	TagSet       = "set"
	TagForeign   = "foreign"
	TagSQL       = "sql"
	TagFrom      = "from"
	TagWhere     = "where"
	TagGroupBy   = "groupby"
	TagHaving    = "having"
	TagOrderBy   = "orderby"
	TagSection   = "section"
	TagSelect    = "select"
)

const (
	keyProperty = "@"
	keyTag      = "$"
)

// Marshal encodes e.
func Marshal(e types.Expr) ([]byte, error) {
	tree, err := encode(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// Encode writes the encoding of e to w.
func Encode(w io.Writer, e types.Expr) error {
	tree, err := encode(e)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(tree)
}

// Unmarshal decodes an expression.
func Unmarshal(data []byte) (types.Expr, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads one expression from r.
func Decode(r io.Reader) (types.Expr, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	tree, err := readValue(dec)
	if err != nil {
		return nil, &types.DecodeError{Path: "$", Reason: "invalid JSON", Err: err}
	}
	return decode("$", tree)
}

type object = map[string]any

func encode(e types.Expr) (any, error) {
	switch x := e.(type) {
	case nil:
		return nil, nil
	case *types.Value:
		if x == nil || x.Value == nil {
			return nil, nil
		}
		if x.Const {
			return object{keyTag: TagConst, "v": x.Value}, nil
		}
		raw, err := rawValue(x.Value)
		if err != nil {
			return nil, err
		}
		if k := firstKey(raw); k == keyProperty || k == keyTag {
			return object{keyTag: TagValue, "v": raw}, nil
		}
		return raw, nil
	case *types.Property:
		return object{keyProperty: x.Path()}, nil
	case *types.Unary:
		operand, err := encode(x.Operand)
		if err != nil {
			return nil, err
		}
		return object{keyTag: TagUnary, "op": x.Op.Name(), "x": operand}, nil
	case *types.LogicBinary:
		return encodeBinary(x.Op.Name(), x.Left, x.Right)
	case *types.ValueBinary:
		return encodeBinary(x.Op.Name(), x.Left, x.Right)
	case *types.Function:
		args, err := encodeList(x.Args)
		if err != nil {
			return nil, err
		}
		return object{keyTag: TagFunction, "name": x.Name, "args": args}, nil
	case *types.Aggregate:
		o := object{keyTag: TagAggregate, "name": x.Name}
		if x.Arg != nil {
			arg, err := encode(x.Arg)
			if err != nil {
				return nil, err
			}
			o["arg"] = arg
		}
		if x.Distinct {
			o["distinct"] = true
		}
		return o, nil
	case *types.Set:
		items, err := encodeList(x.Children)
		if err != nil {
			return nil, err
		}
		return object{keyTag: TagSet, "kind": x.Kind.String(), "items": items}, nil
	case *types.Foreign:
		o := object{keyTag: TagForeign, "relation": x.Relation}
		if x.Alias != "" {
			o["alias"] = x.Alias
		}
		if x.Inner != nil {
			inner, err := encode(x.Inner)
			if err != nil {
				return nil, err
			}
			o["inner"] = inner
		}
		if len(x.TableArgs) > 0 {
			o["args"] = x.TableArgs
		}
		return o, nil
	case *types.DynamicSQL:
		o := object{keyTag: TagSQL, "key": x.Key}
		if x.Arg != nil {
			arg, err := rawValue(x.Arg)
			if err != nil {
				return nil, err
			}
			o["arg"] = arg
		}
		return o, nil
	case types.Query:
		return encodeQuery(x)
	}
	return nil, &types.ExpressionError{Expr: fmt.Sprintf("%T", e), Reason: "cannot be serialized"}
}

func encodeBinary(op string, left, right types.Expr) (any, error) {
	l, err := encode(left)
	if err != nil {
		return nil, err
	}
	r, err := encode(right)
	if err != nil {
		return nil, err
	}
	return object{keyTag: TagBinary, "op": op, "l": l, "r": r}, nil
}

func encodeList(list []types.Expr) ([]any, error) {
	out := make([]any, len(list))
	for i, e := range list {
		v, err := encode(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// rawValue checks that v has a JSON encoding.
func rawValue(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode parameter %v: %w", v, err)
	}
	return data, nil
}

// firstKey returns the first member name of a JSON object, or "".
func firstKey(data json.RawMessage) string {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return ""
	}
	tok, err := dec.Token()
	if err != nil {
		return ""
	}
	key, _ := tok.(string)
	return key
}

func encodeQuery(q types.Query) (any, error) {
	withSource := func(tag string, src types.Query) (object, error) {
		s, err := encode(src)
		if err != nil {
			return nil, err
		}
		return object{keyTag: tag, "source": s}, nil
	}

	switch x := q.(type) {
	case *types.From:
		return object{keyTag: TagFrom, "object": x.Object}, nil
	case *types.Where:
		o, err := withSource(TagWhere, x.Source)
		if err != nil {
			return nil, err
		}
		if o["predicate"], err = encode(x.Predicate); err != nil {
			return nil, err
		}
		return o, nil
	case *types.GroupBy:
		o, err := withSource(TagGroupBy, x.Source)
		if err != nil {
			return nil, err
		}
		if o["keys"], err = encodeList(x.Keys); err != nil {
			return nil, err
		}
		return o, nil
	case *types.Having:
		o, err := withSource(TagHaving, x.Source)
		if err != nil {
			return nil, err
		}
		if o["predicate"], err = encode(x.Predicate); err != nil {
			return nil, err
		}
		return o, nil
	case *types.OrderBy:
		o, err := withSource(TagOrderBy, x.Source)
		if err != nil {
			return nil, err
		}
		keys := make([]any, len(x.Keys))
		for i, k := range x.Keys {
			e, err := encode(k.Expr)
			if err != nil {
				return nil, err
			}
			keys[i] = object{"x": e, "asc": k.Ascending}
		}
		o["keys"] = keys
		return o, nil
	case *types.Section:
		o, err := withSource(TagSection, x.Source)
		if err != nil {
			return nil, err
		}
		o["skip"] = x.Offset
		if x.Limit != types.NoLimit {
			o["take"] = x.Limit
		}
		return o, nil
	case *types.Select:
		o, err := withSource(TagSelect, x.Source)
		if err != nil {
			return nil, err
		}
		cols := make([]any, len(x.Projections))
		for i, p := range x.Projections {
			e, err := encode(p.Expr)
			if err != nil {
				return nil, err
			}
			col := object{"x": e}
			if p.Alias != "" {
				col["as"] = p.Alias
			}
			cols[i] = col
		}
		o["columns"] = cols
		return o, nil
	}
	return nil, &types.ExpressionError{Expr: q.String(), Reason: "unknown query stage"}
}
