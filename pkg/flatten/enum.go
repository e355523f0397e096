package flatten

// Enum is implemented by Go types that model a sum type (a value that
// is exactly one of several named variants) so the codec can flatten
// them: a unit variant contributes a Text(variant-name) at the current
// path; a variant carrying a payload contributes its payload flattened
// at path+variant-name.
type Enum interface {
	// EnumVariant returns the active variant's name and, for a
	// variant that carries data, the payload value to flatten. A
	// unit variant returns a nil payload.
	EnumVariant() (name string, payload any)
}

// EnumDecoder is implemented by the pointer type of an Enum so
// unflatten can reconstruct it. The flat map only ever tells the
// decoder which variant-name section is present under the current
// path; NewVariantPayload maps that name to a pointer the generic
// decoder can recurse into (or nil for a unit variant), and
// SetVariant commits the decoded result back onto the receiver.
type EnumDecoder interface {
	// NewVariantPayload returns an addressable pointer able to
	// receive the named variant's payload, or nil if name is a unit
	// variant. An unrecognized name is an error.
	NewVariantPayload(name string) (any, error)
	// SetVariant stores the decoded variant on the receiver. payload
	// is nil for a unit variant, otherwise the same pointer returned
	// by NewVariantPayload, now populated.
	SetVariant(name string, payload any) error
}
