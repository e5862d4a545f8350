// Package stock models inventory drift.
//
// An Oscillator perturbs catalog stock on a schedule and announces every
// committed change through a Broker. Changes are stamped with a monotonic
// sequence number from a logical Clock so consumers can order them without
// relying on wall time.
package stock
