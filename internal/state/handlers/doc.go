// Package handlers provides the concrete state handlers for the home-village
// battle loop and the builder-base battle flow.
//
// Handlers come in two shapes. Monolithic handlers (home, searching, the
// battle handlers, error) implement Execute directly. The click-through
// screens (surrender, confirm, return and the builder-base menus) are
// state.TaskHandler values built from prioritised task lists.
//
// Register wires every handler into a state.Registry using the default
// priority table, overridable per state through configuration.
package handlers
