// Package core defines the shared language of leapframe.
//
// This package contains:
//   - Service interfaces (Adapter)
//   - Storage entities (Column, TableMetadata, Rows)
//   - Configuration types (AdapterConfig, TargetConfig)
//
// pkg/core imports only the standard library and the Arrow type system.
// All other packages depend on core, not the reverse.
package core
