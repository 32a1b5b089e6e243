// Package dictionary embeds the default marker-phrase dictionary for
// compile-time inclusion. Each file lists phrases in declaration order with
// the operator applied to the running score when the phrase is found.
//
// Usage:
//
//	rigor.LoadDictionary(dictionary.FS, dictionary.DefaultPath)
package dictionary

import "embed"

//go:embed v1/*.yaml
var FS embed.FS

// DefaultPath is the dictionary used when no other is configured.
const DefaultPath = "v1/rigor.yaml"
