package shield

import "github.com/veilproto/shield/types"

// Re-export common types for convenience so users don't have to import the types package.

// Value is re-exported from the types package.
type Value = types.Value

// Entity is re-exported from the types package.
type Entity = types.Entity

// Re-export Value constructors
var (
	NewValue   = types.NewValue
	ParseValue = types.ParseValue
	ZeroValue  = types.ZeroValue
	SumValues  = types.SumValues
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
