// Package scenario loads named parameter sets from files.
//
// A scenario has a name, an optional description and a raw parameter
// mapping that the engine validates like any other input. Supported formats:
//
//   - .yaml / .yml and .json documents with name, description, parameters
//   - .cue documents exporting the same fields
//   - .star Starlark scripts that set name/description/parameters, or a
//     scenarios list of such dicts to generate several scenarios at once
//
// Scripts see the predeclared dicts defaults and bounds describing the
// parameter schema, plus linspace(min, max, n). Every scenario is checked
// against the #Scenario CUE definition before it is returned.
//
// Loader caches parsed files by path and can watch files and directories
// with fsnotify, reloading after a debounce when a scenario file changes.
package scenario
