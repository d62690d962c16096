// Package feature implements the mode-scoped strategy layer.
//
// A Strategy is an independently enableable behaviour (collect resources,
// train troops, start an attack) with its own applicability test and
// cooldown. The Registry keeps, per mode, an explicit execution order and
// runs the eligible strategies in that order:
//
//   - disabled, cooling-down and inapplicable strategies are skipped
//   - a failing or panicking strategy is logged and still has its cooldown
//     stamped; siblings keep running
//   - the first strategy that requests a state transition ends the call,
//     so at most one transition is emitted per call
//
// Cooldown is purely last-execution based. Switching a feature off and on
// again does not clear it.
package feature
