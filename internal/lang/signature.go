package lang

import "strings"

// The *Signature functions extract a stable identifier for a declaration
// node: roughly "name plus erased parameter list", used by the post-merge
// duplicate-signature check (spec §4.5 "Signature post-check"). They are
// deliberately permissive - a best-effort scan of immediate children rather
// than a full grammar-aware extractor, matching how kai-core's own symbol
// extraction (kai-core/parse/parse.go) walks immediate children by field
// name rather than building a dedicated AST per language.

func childByKind(n Node, kinds ...string) Node {
	set := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	for i := 0; i < n.ChildCount(); i++ {
		c := n.NthChild(i)
		if set[c.Kind()] {
			return c
		}
	}
	return nil
}

func eraseTypes(params string) string {
	// Keep only the parentheses and commas of the parameter list,
	// dropping identifiers and type names, so renames don't change the
	// signature. Lists of two or more parameters differ by their comma
	// count; an empty list and a one-parameter list both erase to "()".
	var b strings.Builder
	for _, r := range params {
		switch r {
		case '(', ')', ',':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func goSignature(n Node) string {
	name := childByKind(n, "identifier", "field_identifier")
	params := childByKind(n, "parameter_list")
	if name == nil {
		return ""
	}
	sig := string(name.Content())
	if params != nil {
		sig += eraseTypes(string(params.Content()))
	}
	return sig
}

func jsSignature(n Node) string {
	name := childByKind(n, "identifier", "property_identifier")
	params := childByKind(n, "formal_parameters")
	if name == nil {
		return ""
	}
	sig := string(name.Content())
	if params != nil {
		sig += eraseTypes(string(params.Content()))
	}
	return sig
}

func pySignature(n Node) string {
	name := childByKind(n, "identifier")
	params := childByKind(n, "parameters")
	if name == nil {
		return ""
	}
	sig := string(name.Content())
	if params != nil {
		sig += eraseTypes(string(params.Content()))
	}
	return sig
}

func rubySignature(n Node) string {
	name := childByKind(n, "identifier")
	params := childByKind(n, "method_parameters")
	if name == nil {
		return ""
	}
	sig := string(name.Content())
	if params != nil {
		sig += eraseTypes(string(params.Content()))
	}
	return sig
}

func javaSignature(n Node) string {
	name := childByKind(n, "identifier")
	params := childByKind(n, "formal_parameters")
	if name == nil {
		return ""
	}
	sig := string(name.Content())
	if params != nil {
		sig += eraseTypes(string(params.Content()))
	}
	return sig
}
