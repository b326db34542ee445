package codec

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/zoobzio/exprql/internal/types"
)

func decodeErr(path, format string, args ...any) error {
	return &types.DecodeError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// jsonObject is a decoded JSON object. first is the name of its first member.
type jsonObject struct {
	first   string
	members map[string]any
}

// readValue reads one JSON value from dec. Objects become *jsonObject so the
// first member name survives for dispatch.
func readValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch tok {
	case json.Delim('{'):
		obj := &jsonObject{members: map[string]any{}}
		for i := 0; dec.More(); i++ {
			t, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := t.(string)
			if i == 0 {
				obj.first = key
			}
			v, err := readValue(dec)
			if err != nil {
				return nil, err
			}
			obj.members[key] = v
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case json.Delim('['):
		arr := []any{}
		for dec.More() {
			v, err := readValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return tok, nil
}

// plain turns a tree from readValue back into maps and slices.
func plain(v any) any {
	switch x := v.(type) {
	case *jsonObject:
		m := make(map[string]any, len(x.members))
		for k, e := range x.members {
			m[k] = plain(e)
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	}
	return v
}

// decode dispatches on the first member name: "@" is a property, "$" a tagged
// node, and anything else a raw parameter.
func decode(path string, tree any) (types.Expr, error) {
	obj, ok := tree.(*jsonObject)
	if !ok {
		return rawParameter(tree), nil
	}
	if obj.first == keyProperty {
		return decodeProperty(path, obj.members[keyProperty])
	}
	if obj.first != keyTag {
		return rawParameter(tree), nil
	}
	name, ok := obj.members[keyTag].(string)
	if !ok {
		return nil, decodeErr(path+"."+keyTag, "tag must be a string")
	}

	n := &node{path: path, obj: obj.members}
	switch name {
	case TagValue:
		return rawParameter(n.obj["v"]), nil
	case TagConst:
		return n.constant()
	case TagBinary:
		return n.binary()
	case TagUnary:
		return n.unary()
	case TagFunction:
		return n.function()
	case TagAggregate:
		return n.aggregate()
	case TagSet:
		return n.set()
	case TagForeign:
		return n.foreign()
	case TagSQL:
		return n.dynamicSQL()
	case TagFrom, TagWhere, TagGroupBy, TagHaving, TagOrderBy, TagSection, TagSelect:
		return n.stage(name)
	}
	return nil, decodeErr(path+"."+keyTag, "unknown tag %q", name)
}

func rawParameter(v any) types.Expr {
	if v == nil {
		return types.Null
	}
	return types.NewValue(types.NormalizeValue(plain(v)))
}

func decodeProperty(path string, v any) (types.Expr, error) {
	s, ok := v.(string)
	if !ok {
		return nil, decodeErr(path+"."+keyProperty, "property path must be a string")
	}
	p, err := types.NewProperty(s)
	if err != nil {
		return nil, &types.DecodeError{Path: path + "." + keyProperty, Err: err}
	}
	return p, nil
}

// node is a tagged object being decoded.
type node struct {
	path string
	obj  map[string]any
}

func (n *node) at(key string) string { return n.path + "." + key }

func (n *node) text(key string, required bool) (string, error) {
	v, ok := n.obj[key]
	if !ok || v == nil {
		if required {
			return "", decodeErr(n.at(key), "missing")
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", decodeErr(n.at(key), "must be a string")
	}
	return s, nil
}

func (n *node) flag(key string) (bool, error) {
	v, ok := n.obj[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, decodeErr(n.at(key), "must be a boolean")
	}
	return b, nil
}

func (n *node) number(key string, def int64) (int64, error) {
	v, ok := n.obj[key]
	if !ok || v == nil {
		return def, nil
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, decodeErr(n.at(key), "must be a number")
	}
	i, err := num.Int64()
	if err != nil {
		return 0, decodeErr(n.at(key), "must be an integer")
	}
	return i, nil
}

func (n *node) expr(key string) (types.Expr, error) {
	v, ok := n.obj[key]
	if !ok {
		return nil, decodeErr(n.at(key), "missing")
	}
	return decode(n.at(key), v)
}

func (n *node) optionalExpr(key string) (types.Expr, error) {
	if v, ok := n.obj[key]; !ok || v == nil {
		return nil, nil
	}
	return n.expr(key)
}

func (n *node) logic(key string) (types.Logic, error) {
	e, err := n.expr(key)
	if err != nil {
		return nil, err
	}
	l, ok := e.(types.Logic)
	if !ok {
		return nil, decodeErr(n.at(key), "%s is not a predicate", e)
	}
	return l, nil
}

func (n *node) array(key string) ([]any, error) {
	v, ok := n.obj[key]
	if !ok || v == nil {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, decodeErr(n.at(key), "must be an array")
	}
	return arr, nil
}

func (n *node) exprs(key string) ([]types.Expr, error) {
	arr, err := n.array(key)
	if err != nil {
		return nil, err
	}
	out := make([]types.Expr, len(arr))
	for i, item := range arr {
		e, err := decode(index(n.at(key), i), item)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func index(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

func (n *node) constant() (types.Expr, error) {
	v, ok := n.obj["v"]
	if !ok || v == nil {
		return types.Null, nil
	}
	c, err := types.NewConst(types.NormalizeValue(plain(v)))
	if err != nil {
		return nil, &types.DecodeError{Path: n.at("v"), Err: err}
	}
	return c, nil
}

func (n *node) binary() (types.Expr, error) {
	op, err := n.text("op", true)
	if err != nil {
		return nil, err
	}
	left, err := n.expr("l")
	if err != nil {
		return nil, err
	}
	right, err := n.expr("r")
	if err != nil {
		return nil, err
	}
	if lop, ok := types.ParseLogicOperator(op); ok {
		return types.NewLogicBinary(left, lop, right), nil
	}
	if vop, ok := types.ParseValueOperator(op); ok {
		return types.NewValueBinary(left, vop, right), nil
	}
	return nil, decodeErr(n.at("op"), "unknown operator %q", op)
}

func (n *node) unary() (types.Expr, error) {
	name, err := n.text("op", true)
	if err != nil {
		return nil, err
	}
	op, ok := types.ParseUnaryOperator(name)
	if !ok {
		return nil, decodeErr(n.at("op"), "unknown operator %q", name)
	}
	operand, err := n.expr("x")
	if err != nil {
		return nil, err
	}
	return types.NewUnary(op, operand), nil
}

func (n *node) function() (types.Expr, error) {
	name, err := n.text("name", true)
	if err != nil {
		return nil, err
	}
	args, err := n.exprs("args")
	if err != nil {
		return nil, err
	}
	fn, err := types.NewFunction(name, args...)
	if err != nil {
		return nil, &types.DecodeError{Path: n.at("name"), Err: err}
	}
	return fn, nil
}

func (n *node) aggregate() (types.Expr, error) {
	name, err := n.text("name", true)
	if err != nil {
		return nil, err
	}
	arg, err := n.optionalExpr("arg")
	if err != nil {
		return nil, err
	}
	distinct, err := n.flag("distinct")
	if err != nil {
		return nil, err
	}
	agg, err := types.NewAggregate(name, arg, distinct)
	if err != nil {
		return nil, &types.DecodeError{Path: n.at("name"), Err: err}
	}
	return agg, nil
}

func (n *node) set() (types.Expr, error) {
	name, err := n.text("kind", true)
	if err != nil {
		return nil, err
	}
	kind, ok := types.ParseSetKind(name)
	if !ok {
		return nil, decodeErr(n.at("kind"), "unknown set kind %q", name)
	}
	items, err := n.exprs("items")
	if err != nil {
		return nil, err
	}
	if kind.IsLogical() {
		for i, item := range items {
			if _, ok := item.(types.Logic); !ok {
				return nil, decodeErr(index(n.at("items"), i), "%s is not a predicate", item)
			}
		}
	}
	return types.NewSet(kind, items...), nil
}

func (n *node) foreign() (types.Expr, error) {
	relation, err := n.text("relation", true)
	if err != nil {
		return nil, err
	}
	alias, err := n.text("alias", false)
	if err != nil {
		return nil, err
	}
	var inner types.Logic
	if v, ok := n.obj["inner"]; ok && v != nil {
		if inner, err = n.logic("inner"); err != nil {
			return nil, err
		}
	}
	raw, err := n.array("args")
	if err != nil {
		return nil, err
	}
	args := make([]string, len(raw))
	for i, a := range raw {
		s, ok := a.(string)
		if !ok {
			return nil, decodeErr(index(n.at("args"), i), "must be a string")
		}
		args[i] = s
	}
	f, err := types.NewForeign(relation, alias, inner, args...)
	if err != nil {
		return nil, &types.DecodeError{Path: n.path, Err: err}
	}
	return f, nil
}

func (n *node) dynamicSQL() (types.Expr, error) {
	key, err := n.text("key", true)
	if err != nil {
		return nil, err
	}
	var arg any
	if v, ok := n.obj["arg"]; ok {
		arg = types.NormalizeValue(plain(v))
	}
	d, err := types.NewDynamicSQL(key, arg)
	if err != nil {
		return nil, &types.DecodeError{Path: n.at("key"), Err: err}
	}
	return d, nil
}

func (n *node) stage(tag string) (types.Expr, error) {
	if tag == TagFrom {
		object, err := n.text("object", true)
		if err != nil {
			return nil, err
		}
		f, err := types.NewFrom(object)
		if err != nil {
			return nil, &types.DecodeError{Path: n.at("object"), Err: err}
		}
		return f, nil
	}

	src, err := n.expr("source")
	if err != nil {
		return nil, err
	}
	source, ok := src.(types.Query)
	if !ok {
		return nil, decodeErr(n.at("source"), "%s is not a query", src)
	}
	misplaced := func(stage string) error {
		return &types.DecodeError{
			Path: n.at("source"),
			Err:  &types.PipelineError{Stage: stage, After: source.Stage()},
		}
	}

	switch tag {
	case TagWhere:
		if _, ok := source.(types.Filterable); !ok {
			return nil, misplaced("Where")
		}
		p, err := n.logic("predicate")
		if err != nil {
			return nil, err
		}
		return &types.Where{Source: source, Predicate: p}, nil

	case TagGroupBy:
		if _, ok := source.(types.Groupable); !ok {
			return nil, misplaced("GroupBy")
		}
		keys, err := n.exprs("keys")
		if err != nil {
			return nil, err
		}
		return &types.GroupBy{Source: source, Keys: keys}, nil

	case TagHaving:
		g, ok := source.(*types.GroupBy)
		if !ok {
			return nil, misplaced("Having")
		}
		p, err := n.logic("predicate")
		if err != nil {
			return nil, err
		}
		return &types.Having{Source: g, Predicate: p}, nil

	case TagOrderBy:
		if _, ok := source.(types.Orderable); !ok {
			return nil, misplaced("OrderBy")
		}
		keys, err := n.orderKeys()
		if err != nil {
			return nil, err
		}
		return &types.OrderBy{Source: source, Keys: keys}, nil

	case TagSection:
		if _, ok := source.(types.Sectionable); !ok {
			return nil, misplaced("Section")
		}
		skip, err := n.number("skip", 0)
		if err != nil {
			return nil, err
		}
		take, err := n.number("take", types.NoLimit)
		if err != nil {
			return nil, err
		}
		if skip < 0 {
			return nil, decodeErr(n.at("skip"), "must not be negative")
		}
		if take < 0 {
			take = types.NoLimit
		}
		return &types.Section{Source: source, Offset: skip, Limit: take}, nil
	}

	if _, ok := source.(types.Projectable); !ok {
		return nil, misplaced("Select")
	}
	cols, err := n.projections()
	if err != nil {
		return nil, err
	}
	return &types.Select{Source: source, Projections: cols}, nil
}

func (n *node) orderKeys() ([]types.OrderKey, error) {
	arr, err := n.array("keys")
	if err != nil {
		return nil, err
	}
	keys := make([]types.OrderKey, len(arr))
	for i, item := range arr {
		obj, ok := item.(*jsonObject)
		if !ok {
			return nil, decodeErr(index(n.at("keys"), i), "order key must be an object")
		}
		k := &node{path: index(n.at("keys"), i), obj: obj.members}
		e, err := k.expr("x")
		if err != nil {
			return nil, err
		}
		asc, err := k.flag("asc")
		if err != nil {
			return nil, err
		}
		keys[i] = types.OrderKey{Expr: e, Ascending: asc}
	}
	return keys, nil
}

func (n *node) projections() ([]types.Projection, error) {
	arr, err := n.array("columns")
	if err != nil {
		return nil, err
	}
	cols := make([]types.Projection, len(arr))
	for i, item := range arr {
		obj, ok := item.(*jsonObject)
		if !ok {
			return nil, decodeErr(index(n.at("columns"), i), "column must be an object")
		}
		c := &node{path: index(n.at("columns"), i), obj: obj.members}
		e, err := c.expr("x")
		if err != nil {
			return nil, err
		}
		alias, err := c.text("as", false)
		if err != nil {
			return nil, err
		}
		if alias != "" {
			if err := types.CheckIdentifier("alias", alias); err != nil {
				return nil, &types.DecodeError{Path: c.at("as"), Err: err}
			}
		}
		cols[i] = types.Projection{Expr: e, Alias: alias}
	}
	return cols, nil
}
