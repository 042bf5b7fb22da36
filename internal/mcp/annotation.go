package mcp

import "github.com/mark3labs/mcp-go/mcp"

// AnnotationHint is a set of tool behaviour hints combined with |.
type AnnotationHint uint8

const (
	// Readonly tools never change server state.
	Readonly AnnotationHint = 1 << iota
	// Destructive tools may irreversibly remove data.
	Destructive
	// Idempotent tools give the same result when repeated with the same arguments.
	Idempotent
	// OpenWorld tools reach outside the Redmine instance.
	OpenWorld
)

// toolAnnotations builds the annotation published with a tool definition.
func toolAnnotations(title string, hints AnnotationHint) mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		Title:           title,
		ReadOnlyHint:    mcp.ToBoolPtr(hints&Readonly != 0),
		DestructiveHint: mcp.ToBoolPtr(hints&Destructive != 0),
		IdempotentHint:  mcp.ToBoolPtr(hints&Idempotent != 0),
		OpenWorldHint:   mcp.ToBoolPtr(hints&OpenWorld != 0),
	}
}

// isReadOnly reports whether a tool definition is annotated read-only.
func isReadOnly(t mcp.Tool) bool {
	return t.Annotations.ReadOnlyHint != nil && *t.Annotations.ReadOnlyHint
}
