package resolver

import "strings"

// DeclarationsScope is the namespace of dedicated declarations packages.
const DeclarationsScope = "@types/"

// IsDeclarationsPackage reports whether name already denotes a
// declarations package.
func IsDeclarationsPackage(name string) bool {
	return strings.HasPrefix(name, DeclarationsScope)
}

// AliasName returns the declarations package that would carry types for
// name: "lodash" → "@types/lodash", "@babel/core" → "@types/babel__core".
// Declarations packages are returned unchanged.
func AliasName(name string) string {
	if IsDeclarationsPackage(name) {
		return name
	}
	bare := strings.TrimPrefix(name, "@")
	return DeclarationsScope + strings.Replace(bare, "/", "__", 1)
}
