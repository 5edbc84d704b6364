// Command cadence is the operator CLI: queue inspection, one-shot
// classification, corpus seeding, model training, and daemon control.
package main
