// Package strategies provides the concrete home-village and builder-base
// feature strategies and registers them with a feature.Registry.
//
// Every strategy clicks through an actuator.Actuator, so dry-run mode is a
// matter of handing in actuator.DryRun.
package strategies
