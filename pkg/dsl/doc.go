/*
Package dsl provides a fluent Go builder for task graphs.

It allows developers to define dialog flows in code instead of JSON or YAML
files, which suits dynamic graph generation and unit tests.

Example usage:

	b := dsl.New("restaurant")

	b.Start("0").Worker("MessageWorker").Say("Hello! How can I help you?").
		Global("make reservation", "1", "book a table").
		Global("opening hours", "2", "when are you open")

	b.Add("1").Worker("MessageWorker").Say("Which date would you like?").
		Go("3")

	b.Add("2").Worker("MessageWorker").Say("We are open from 9 to 5.")
	b.Add("3").Worker("MessageWorker").Say("Your reservation is confirmed.")

	loader, err := b.Build()
	if err != nil {
		return err
	}
	engine, err := wayfinder.New(ctx, loader)
*/
package dsl
