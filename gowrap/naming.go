package gowrap

import (
	"fmt"
	"strings"
)

// MangleSymbol builds the exported C symbol for an operation.
// e.g., ("Widget", "value") → "Widget_value"
func MangleSymbol(owner, method string) string {
	return owner + "_" + method
}

// LifecycleSymbols returns the constructor and destructor symbols emitted for
// a record when lifecycle entry points are enabled.
// e.g., "Widget" → "Widget_new", "Widget_destroy"
func LifecycleSymbols(typeName string) (ctor, dtor string) {
	return MangleSymbol(typeName, "new"), MangleSymbol(typeName, "destroy")
}

// HandleTypedef renders the opaque-handle declaration of a type.
func HandleTypedef(typeName string) string {
	return fmt.Sprintf("typedef void* %s;", typeName)
}

// Prototype renders a C prototype from a return label, a symbol and the
// parameters in declaration order. An empty list renders as (void).
func Prototype(ret, symbol string, params []Param) string {
	if ret == "" {
		ret = "void"
	}
	args := make([]string, 0, len(params))
	for _, p := range params {
		args = append(args, p.Mapped.CLabel+" "+p.Name)
	}
	list := strings.Join(args, ", ")
	if list == "" {
		list = "void"
	}
	return fmt.Sprintf("%s %s(%s);", ret, symbol, list)
}

// cLabelForSelector converts a cgo type token to its C spelling.
// e.g., "int" → "int", "struct_foo" → "struct foo", "ulong" → "unsigned long"
func cLabelForSelector(name string) string {
	for _, prefix := range []string{"struct_", "union_", "enum_"} {
		if strings.HasPrefix(name, prefix) {
			return strings.TrimSuffix(prefix, "_") + " " + name[len(prefix):]
		}
	}
	if long, ok := cgoShortNames[name]; ok {
		return long
	}
	return name
}

// cgoShortNames are the abbreviations cgo uses for C numeric types.
var cgoShortNames = map[string]string{
	"schar":     "signed char",
	"uchar":     "unsigned char",
	"ushort":    "unsigned short",
	"uint":      "unsigned int",
	"ulong":     "unsigned long",
	"longlong":  "long long",
	"ulonglong": "unsigned long long",
}
