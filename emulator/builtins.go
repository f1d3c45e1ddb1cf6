package emulator

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	abi "github.com/wippyai/hostbridge"
	"go.uber.org/zap"
)

func (h *Host) defBuiltin(name string, minArity, maxArity int, fn func(h *Host, args []abi.Ref) abi.Ref) {
	sym := h.intern(name)
	h.symbolOf(sym).fn = h.alloc(object{kind: objFunc, fn: &function{
		minArity: minArity,
		maxArity: maxArity,
		builtin:  fn,
	}})
}

func (h *Host) installBuiltins() {
	h.defBuiltin("eq", 2, 2, func(h *Host, args []abi.Ref) abi.Ref {
		return h.boolRef(args[0] == args[1])
	})
	h.defBuiltin("equal", 2, 2, func(h *Host, args []abi.Ref) abi.Ref {
		return h.boolRef(h.equal(args[0], args[1]))
	})
	h.defBuiltin("type-of", 1, 1, func(h *Host, args []abi.Ref) abi.Ref {
		return h.intern(h.typeName(args[0]))
	})
	h.defBuiltin("list", 0, abi.Variadic, func(h *Host, args []abi.Ref) abi.Ref {
		return h.listOf(args)
	})
	h.defBuiltin("vector", 0, abi.Variadic, func(h *Host, args []abi.Ref) abi.Ref {
		return h.alloc(object{kind: objVector, vec: append([]abi.Ref(nil), args...)})
	})
	h.defBuiltin("cons", 2, 2, func(h *Host, args []abi.Ref) abi.Ref {
		return h.cons(args[0], args[1])
	})
	h.defBuiltin("car", 1, 1, func(h *Host, args []abi.Ref) abi.Ref {
		if args[0] == h.nilRef {
			return h.nilRef
		}
		if o := h.objectOf(args[0]); o != nil && o.kind == objCons {
			return o.car
		}
		h.signal("wrong-type-argument", h.intern("listp"), args[0])
		return 0
	})
	h.defBuiltin("cdr", 1, 1, func(h *Host, args []abi.Ref) abi.Ref {
		if args[0] == h.nilRef {
			return h.nilRef
		}
		if o := h.objectOf(args[0]); o != nil && o.kind == objCons {
			return o.cdr
		}
		h.signal("wrong-type-argument", h.intern("listp"), args[0])
		return 0
	})
	h.defBuiltin("length", 1, 1, builtinLength)
	h.defBuiltin("symbol-name", 1, 1, func(h *Host, args []abi.Ref) abi.Ref {
		s := h.symbolOf(args[0])
		if s == nil {
			h.signal("wrong-type-argument", h.intern("symbolp"), args[0])
			return 0
		}
		return h.makeString([]byte(s.name), true)
	})
	h.defBuiltin("symbol-value", 1, 1, func(h *Host, args []abi.Ref) abi.Ref {
		s := h.symbolOf(args[0])
		if s == nil {
			h.signal("wrong-type-argument", h.intern("symbolp"), args[0])
			return 0
		}
		if s.value == 0 {
			h.signal("void-variable", args[0])
			return 0
		}
		return s.value
	})
	h.defBuiltin("set", 2, 2, func(h *Host, args []abi.Ref) abi.Ref {
		s := h.symbolOf(args[0])
		if s == nil {
			h.signal("wrong-type-argument", h.intern("symbolp"), args[0])
			return 0
		}
		s.value = args[1]
		return args[1]
	})
	h.defBuiltin("defalias", 2, 2, func(h *Host, args []abi.Ref) abi.Ref {
		s := h.symbolOf(args[0])
		if s == nil {
			h.signal("wrong-type-argument", h.intern("symbolp"), args[0])
			return 0
		}
		s.fn = args[1]
		return args[0]
	})
	h.defBuiltin("provide", 1, 1, func(h *Host, args []abi.Ref) abi.Ref {
		s := h.symbolOf(args[0])
		if s == nil {
			h.signal("wrong-type-argument", h.intern("symbolp"), args[0])
			return 0
		}
		h.features[s.name] = true
		return args[0]
	})
	h.defBuiltin("featurep", 1, 1, func(h *Host, args []abi.Ref) abi.Ref {
		s := h.symbolOf(args[0])
		if s == nil {
			h.signal("wrong-type-argument", h.intern("symbolp"), args[0])
			return 0
		}
		return h.boolRef(h.features[s.name])
	})
	h.defBuiltin("message", 1, abi.Variadic, builtinMessage)
	h.defBuiltin("make-pipe-process", 1, abi.Variadic, builtinMakePipeProcess)
}

func (h *Host) boolRef(b bool) abi.Ref {
	if b {
		return h.tRef
	}
	return h.nilRef
}

func builtinLength(h *Host, args []abi.Ref) abi.Ref {
	v := args[0]
	if v == h.nilRef {
		return fixnum(0)
	}
	o := h.objectOf(v)
	if o == nil {
		h.signal("wrong-type-argument", h.intern("sequencep"), v)
		return 0
	}
	switch o.kind {
	case objString:
		if o.multibyte {
			return fixnum(int64(utf8.RuneCount(o.str)))
		}
		return fixnum(int64(len(o.str)))
	case objVector:
		return fixnum(int64(len(o.vec)))
	case objCons:
		n := int64(0)
		for v != h.nilRef {
			c := h.objectOf(v)
			if c == nil || c.kind != objCons {
				h.signal("wrong-type-argument", h.intern("listp"), args[0])
				return 0
			}
			n++
			v = c.cdr
		}
		return fixnum(n)
	}
	h.signal("wrong-type-argument", h.intern("sequencep"), v)
	return 0
}

func builtinMessage(h *Host, args []abi.Ref) abi.Ref {
	format := h.objectOf(args[0])
	if format == nil || format.kind != objString {
		h.signal("wrong-type-argument", h.intern("stringp"), args[0])
		return 0
	}
	var b strings.Builder
	rest := args[1:]
	text := string(format.str)
	for {
		i := strings.Index(text, "%s")
		if i < 0 || len(rest) == 0 {
			b.WriteString(text)
			break
		}
		b.WriteString(text[:i])
		b.WriteString(h.textOf(rest[0]))
		rest = rest[1:]
		text = text[i+2:]
	}
	h.lastMessage = b.String()
	Logger().Info("message", zap.String("text", h.lastMessage))
	return h.makeString([]byte(h.lastMessage), true)
}

func builtinMakePipeProcess(h *Host, args []abi.Ref) abi.Ref {
	// Accepts the name either positionally or after a :name marker; other
	// keyword pairs are ignored.
	name := "pipe"
	for i := 0; i < len(args); i++ {
		if s := h.symbolOf(args[i]); s != nil && s.name == ":name" && i+1 < len(args) {
			name = h.textOf(args[i+1])
			i++
			continue
		}
		if o := h.objectOf(args[i]); o != nil && o.kind == objString {
			name = string(o.str)
		}
	}
	r, w, err := os.Pipe()
	if err != nil {
		h.signal("file-error", h.makeString([]byte(err.Error()), true))
		return 0
	}
	return h.alloc(object{kind: objProcess, proc: &pipeProcess{name: name, r: r, w: w}})
}

// textOf renders a value roughly the way the host would print it.
func (h *Host) textOf(r abi.Ref) string {
	if isFixnum(r) {
		return strconv.FormatInt(fixnumValue(r), 10)
	}
	o := h.objectOf(r)
	if o == nil {
		return "#<garbage>"
	}
	switch o.kind {
	case objSymbol:
		return o.sym.name
	case objString:
		return string(o.str)
	case objFloat:
		return strconv.FormatFloat(o.f, 'g', -1, 64)
	case objCons:
		var b strings.Builder
		b.WriteByte('(')
		for v := r; ; {
			c := h.objectOf(v)
			b.WriteString(h.textOf(c.car))
			if c.cdr == h.nilRef {
				break
			}
			next := h.objectOf(c.cdr)
			if next == nil || next.kind != objCons {
				b.WriteString(" . ")
				b.WriteString(h.textOf(c.cdr))
				break
			}
			b.WriteByte(' ')
			v = c.cdr
		}
		b.WriteByte(')')
		return b.String()
	case objVector:
		var b strings.Builder
		b.WriteByte('[')
		for i, e := range o.vec {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(h.textOf(e))
		}
		b.WriteByte(']')
		return b.String()
	case objFunc:
		return "#<function>"
	case objProcess:
		return fmt.Sprintf("#<process %s>", o.proc.name)
	case objUserPtr:
		return "#<user-ptr>"
	}
	return "#<object>"
}

func (h *Host) typeName(r abi.Ref) string {
	if isFixnum(r) {
		return "integer"
	}
	o := h.objectOf(r)
	if o == nil {
		return "integer"
	}
	switch o.kind {
	case objSymbol:
		return "symbol"
	case objString:
		return "string"
	case objCons:
		return "cons"
	case objVector:
		return "vector"
	case objFloat:
		return "float"
	case objUserPtr:
		return "user-ptr"
	case objFunc:
		if o.fn.mod != nil {
			return "module-function"
		}
		return "subr"
	case objProcess:
		return "process"
	}
	return "t"
}

func (h *Host) equal(a, b abi.Ref) bool {
	if a == b {
		return true
	}
	oa, ob := h.objectOf(a), h.objectOf(b)
	if oa == nil || ob == nil || oa.kind != ob.kind {
		return false
	}
	switch oa.kind {
	case objFloat:
		return oa.f == ob.f
	case objString:
		return oa.multibyte == ob.multibyte && string(oa.str) == string(ob.str)
	case objCons:
		return h.equal(oa.car, ob.car) && h.equal(oa.cdr, ob.cdr)
	case objVector:
		if len(oa.vec) != len(ob.vec) {
			return false
		}
		for i := range oa.vec {
			if !h.equal(oa.vec[i], ob.vec[i]) {
				return false
			}
		}
		return true
	}
	return false
}
