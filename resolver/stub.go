package resolver

import (
	"fmt"
	"path"

	"github.com/pithecene-io/typings/types"
)

// StubFile is the relative path reported for a synthesized declaration.
const StubFile = "index.d.ts"

const stubTemplate = `
/**
 * Default type definition for %[1]s
 * This is an auto-generated fallback definition.
 */

declare module '%[1]s' {
    const content: any;
    export default content;
    export * from '%[1]s/*';
}

declare module '%[1]s/*' {
    const content: any;
    export default content;
    export * as namespace %[1]s;
}
`

// DefaultStub returns a declaration that types name and every subpath of
// it as any. The output depends only on name.
func DefaultStub(name string) string {
	return fmt.Sprintf(stubTemplate, name)
}

// StubArtifact returns the default declaration for name as an artifact
// whose file path carries pathPrefix.
func StubArtifact(pathPrefix, name string) types.Artifact {
	return types.Artifact{
		Content:  DefaultStub(name),
		FilePath: pathPrefix + path.Join(name, StubFile),
		Source:   types.ProvenanceDefault,
	}
}
