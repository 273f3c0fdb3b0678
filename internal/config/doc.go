// Package config defines the format-agnostic configuration model for the
// application: where the engine lives, how the editor behaves, how long a run
// may wait, how logs are written and whether the inspection server runs.
//
// Loading from HCL lives in the hclconf package.
package config
