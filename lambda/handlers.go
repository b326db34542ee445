package lambda

import (
	"database/sql"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/exprql/internal/types"
)

// MethodHandler converts a method call on a converted receiver.
type MethodHandler func(receiver types.Expr, args []types.Expr) (types.Expr, error)

// MemberHandler converts a member access on a leaf column, such as Valid on
// a sql.NullString.
type MemberHandler func(receiver types.Expr) (types.Expr, error)

type handlerKey struct {
	typ  reflect.Type
	name string
}

// Handlers maps methods and members to expressions. Registration is
// append-only: registering a key twice fails with ErrDuplicateRegistration.
type Handlers struct {
	mu          sync.RWMutex
	methods     map[handlerKey]MethodHandler
	methodNames map[string]MethodHandler
	members     map[handlerKey]MemberHandler
	memberNames map[string]MemberHandler
}

// NewHandlers returns an empty registry.
func NewHandlers() *Handlers {
	return &Handlers{
		methods:     make(map[handlerKey]MethodHandler),
		methodNames: make(map[string]MethodHandler),
		members:     make(map[handlerKey]MemberHandler),
		memberNames: make(map[string]MemberHandler),
	}
}

// DefaultHandlers is consulted by every converter after its own handlers.
var DefaultHandlers = defaultHandlers()

func duplicate(kind string, t reflect.Type, name string) error {
	if t == nil {
		return fmt.Errorf("%s %s: %w", kind, name, types.ErrDuplicateRegistration)
	}
	return fmt.Errorf("%s %s.%s: %w", kind, t, name, types.ErrDuplicateRegistration)
}

// RegisterMethod handles calls of method name on receivers of type t.
func (h *Handlers) RegisterMethod(t reflect.Type, name string, fn MethodHandler) error {
	if t == nil || fn == nil {
		return fmt.Errorf("register method %s: type and handler are required", name)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	key := handlerKey{t, name}
	if _, ok := h.methods[key]; ok {
		return duplicate("method", t, name)
	}
	h.methods[key] = fn
	return nil
}

// RegisterMethodName handles calls of method name on any receiver without a
// type-specific handler.
func (h *Handlers) RegisterMethodName(name string, fn MethodHandler) error {
	if fn == nil {
		return fmt.Errorf("register method %s: handler is required", name)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.methodNames[name]; ok {
		return duplicate("method", nil, name)
	}
	h.methodNames[name] = fn
	return nil
}

// RegisterMember handles member name on leaf columns of type t.
func (h *Handlers) RegisterMember(t reflect.Type, name string, fn MemberHandler) error {
	if t == nil || fn == nil {
		return fmt.Errorf("register member %s: type and handler are required", name)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	key := handlerKey{t, name}
	if _, ok := h.members[key]; ok {
		return duplicate("member", t, name)
	}
	h.members[key] = fn
	return nil
}

// RegisterMemberName handles member name on any leaf column without a
// type-specific handler.
func (h *Handlers) RegisterMemberName(name string, fn MemberHandler) error {
	if fn == nil {
		return fmt.Errorf("register member %s: handler is required", name)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.memberNames[name]; ok {
		return duplicate("member", nil, name)
	}
	h.memberNames[name] = fn
	return nil
}

func (h *Handlers) method(t reflect.Type, name string) (MethodHandler, bool) {
	if h == nil {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if t != nil {
		if fn, ok := h.methods[handlerKey{t, name}]; ok {
			return fn, true
		}
	}
	fn, ok := h.methodNames[name]
	return fn, ok
}

func (h *Handlers) member(t reflect.Type, name string) (MemberHandler, bool) {
	if h == nil {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if t != nil {
		if fn, ok := h.members[handlerKey{t, name}]; ok {
			return fn, true
		}
	}
	fn, ok := h.memberNames[name]
	return fn, ok
}

func comparison(op types.LogicOperator) MethodHandler {
	return func(recv types.Expr, args []types.Expr) (types.Expr, error) {
		if len(args) != 1 {
			return nil, &types.ExpressionError{Expr: recv.String(), Reason: fmt.Sprintf("%s takes one argument", op)}
		}
		return types.NewLogicBinary(recv, op, args[0]), nil
	}
}

func column(recv types.Expr) (types.Expr, error) { return recv, nil }

func notNull(recv types.Expr) (types.Expr, error) {
	return types.NewLogicBinary(recv, types.NotEqual, types.Null), nil
}

func defaultHandlers() *Handlers {
	h := NewHandlers()
	timeType := reflect.TypeFor[time.Time]()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	must(h.RegisterMethod(timeType, "Before", comparison(types.LessThan)))
	must(h.RegisterMethod(timeType, "After", comparison(types.GreaterThan)))
	must(h.RegisterMethod(timeType, "Equal", comparison(types.Equal)))
	must(h.RegisterMethod(reflect.TypeFor[uuid.UUID](), "String", func(recv types.Expr, _ []types.Expr) (types.Expr, error) {
		return recv, nil
	}))

	nullables := []struct {
		typ   reflect.Type
		value string
	}{
		{reflect.TypeFor[sql.NullString](), "String"},
		{reflect.TypeFor[sql.NullInt64](), "Int64"},
		{reflect.TypeFor[sql.NullInt32](), "Int32"},
		{reflect.TypeFor[sql.NullInt16](), "Int16"},
		{reflect.TypeFor[sql.NullByte](), "Byte"},
		{reflect.TypeFor[sql.NullFloat64](), "Float64"},
		{reflect.TypeFor[sql.NullBool](), "Bool"},
		{reflect.TypeFor[sql.NullTime](), "Time"},
	}
	for _, n := range nullables {
		must(h.RegisterMember(n.typ, "Valid", notNull))
		must(h.RegisterMember(n.typ, n.value, column))
	}

	// sql.Null[T] and other Valid/V wrappers.
	must(h.RegisterMemberName("Valid", notNull))
	must(h.RegisterMemberName("V", column))
	return h
}
