package rendergraph

import "fmt"

// SlotNotFoundError is returned when a pass execution context is asked for a
// slot name the pass never declared in its slot mapping.
type SlotNotFoundError struct {
	Pass string
	Slot string
}

func (e *SlotNotFoundError) Error() string {
	return fmt.Sprintf("rendergraph: slot %q not found in pass %q resource mappings", e.Slot, e.Pass)
}

// SlotNotMappedError is returned by PassBuilder.Build when a pass declares a read,
// write, or read-write slot name that has no corresponding entry in the
// slot mapping table supplied at registration time.
type SlotNotMappedError struct {
	Pass string
	Slot string
}

func (e *SlotNotMappedError) Error() string {
	return fmt.Sprintf("rendergraph: pass %q: slot %q not provided in mappings", e.Pass, e.Slot)
}

// ResourceNotBoundError is returned at execute time when a non-culled pass
// references an external resource that the caller never bound via
// SetExternalTexture/SetExternalBuffer.
type ResourceNotBoundError struct {
	Resource string
	ID       ResourceId
}

func (e *ResourceNotBoundError) Error() string {
	return fmt.Sprintf("rendergraph: resource %q (id: %d) not bound", e.Resource, e.ID)
}

// ResourceNotFoundError is returned when an operation references a
// ResourceId that was never registered on the graph.
type ResourceNotFoundError struct {
	Resource string
	ID       ResourceId
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("rendergraph: resource %q (id: %d) not found", e.Resource, e.ID)
}

// DescriptorNotFoundError is returned when a ResourceId has a handle but no
// registered descriptor, which should not happen for a well-formed graph.
type DescriptorNotFoundError struct {
	Resource string
	ID       ResourceId
}

func (e *DescriptorNotFoundError) Error() string {
	return fmt.Sprintf("rendergraph: resource %q descriptor not found (id: %d)", e.Resource, e.ID)
}

// TypeMismatchError is returned when an accessor is called against a
// resource of the wrong kind, e.g. GetColorAttachment on a depth texture.
type TypeMismatchError struct {
	Operation  string
	ActualType string
	Resource   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("rendergraph: type mismatch: %s called on %s resource %q", e.Operation, e.ActualType, e.Resource)
}

// CannotResizeExternalError is returned by UpdateTransientDescriptor when
// called against an external resource.
type CannotResizeExternalError struct {
	Resource string
}

func (e *CannotResizeExternalError) Error() string {
	return fmt.Sprintf("rendergraph: cannot resize external resource %q", e.Resource)
}

// CannotResizeBufferError is returned when UpdateTransientDescriptor is
// called against a buffer resource (buffers resize by size, not w/h).
type CannotResizeBufferError struct {
	Resource string
}

func (e *CannotResizeBufferError) Error() string {
	return fmt.Sprintf("rendergraph: cannot resize buffer %q with width/height", e.Resource)
}

// CannotResizeNonTransientError is returned for any resize operation
// against a resource kind that has no texture dimensions at all.
type CannotResizeNonTransientError struct {
	Resource string
}

func (e *CannotResizeNonTransientError) Error() string {
	return fmt.Sprintf("rendergraph: cannot resize non-transient resource %q", e.Resource)
}

// CyclicDependencyError is returned by Compile when the inferred producer
// to consumer edges contain a cycle.
type CyclicDependencyError struct{}

func (e *CyclicDependencyError) Error() string {
	return "rendergraph: graph contains cycles"
}

// SubGraphNotFoundError is returned when a pass requests a sub-graph run
// for a name that was never registered via AddSubGraph.
type SubGraphNotFoundError struct {
	SubGraph string
}

func (e *SubGraphNotFoundError) Error() string {
	return fmt.Sprintf("rendergraph: sub-graph %q not found", e.SubGraph)
}

// SubGraphInputTypeMismatchError is returned when a sub-graph-run command
// supplies a SlotValue of the wrong kind for the sub-graph's declared
// input slot.
type SubGraphInputTypeMismatchError struct {
	Input    string
	Expected string
	Received string
}

func (e *SubGraphInputTypeMismatchError) Error() string {
	return fmt.Sprintf("rendergraph: sub-graph input %q expects %s but received %s", e.Input, e.Expected, e.Received)
}
