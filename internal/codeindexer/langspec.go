// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package codeindexer

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// langSpec bundles one language's grammar with the Tree-sitter queries used
// to pull declarations and call sites out of its AST. declQuery captures
// come in (node, name) pairs sharing a prefix — e.g. fnDecl/fnName — each
// pair tagged below with the entity type-tag it produces.
type langSpec struct {
	language  *sitter.Language
	declQuery string
	callQuery string
	// declKinds maps a decl-node capture name to the entity type tag.
	declKinds map[string]string
}

// goDeclQuery captures function, method, struct, and interface
// declarations in Go source.
const goDeclQuery = `
(function_declaration name: (identifier) @fnName) @fnDecl
(method_declaration name: (field_identifier) @methodName) @methodDecl
(type_spec name: (type_identifier) @structName type: (struct_type)) @structDecl
(type_spec name: (type_identifier) @interfaceName type: (interface_type)) @interfaceDecl
`

const goCallQuery = `
(call_expression function: (identifier) @callTarget)
(call_expression function: (selector_expression field: (field_identifier) @callTarget))
`

const pythonDeclQuery = `
(function_definition name: (identifier) @fnName) @fnDecl
(class_definition name: (identifier) @className) @classDecl
`

const pythonCallQuery = `
(call function: (identifier) @callTarget)
(call function: (attribute attribute: (identifier) @callTarget))
`

const ecmaDeclQuery = `
(function_declaration name: (identifier) @fnName) @fnDecl
(method_definition name: (property_identifier) @methodName) @methodDecl
(class_declaration name: (identifier) @className) @classDecl
`

const ecmaCallQuery = `
(call_expression function: (identifier) @callTarget)
(call_expression function: (member_expression property: (property_identifier) @callTarget))
`

func languageSpecs() map[string]langSpec {
	return map[string]langSpec{
		"go": {
			language:  golang.GetLanguage(),
			declQuery: goDeclQuery,
			callQuery: goCallQuery,
			declKinds: map[string]string{
				"fnDecl":        "fn",
				"methodDecl":    "method",
				"structDecl":    "struct",
				"interfaceDecl": "trait",
			},
		},
		"python": {
			language:  python.GetLanguage(),
			declQuery: pythonDeclQuery,
			callQuery: pythonCallQuery,
			declKinds: map[string]string{
				"fnDecl":    "fn",
				"classDecl": "struct",
			},
		},
		"javascript": {
			language:  javascript.GetLanguage(),
			declQuery: ecmaDeclQuery,
			callQuery: ecmaCallQuery,
			declKinds: map[string]string{
				"fnDecl":     "fn",
				"methodDecl": "method",
				"classDecl":  "struct",
			},
		},
		"typescript": {
			language:  typescript.GetLanguage(),
			declQuery: ecmaDeclQuery,
			callQuery: ecmaCallQuery,
			declKinds: map[string]string{
				"fnDecl":     "fn",
				"methodDecl": "method",
				"classDecl":  "struct",
			},
		},
	}
}

// languageForExt maps a lowercase file extension (without the leading dot)
// to the CIE/Parseltongue language tag used in entity keys.
func languageForExt(ext string) (string, bool) {
	switch ext {
	case "go":
		return "go", true
	case "py":
		return "python", true
	case "js", "jsx", "mjs", "cjs":
		return "javascript", true
	case "ts", "tsx", "mts", "cts":
		return "typescript", true
	default:
		return "", false
	}
}
