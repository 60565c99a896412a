/*
Package dsl provides Go helpers for writing flowmanager node lists without YAML.

Raw node shapes are easy to get subtly wrong by hand: a branch map needs an
ordered object, a loop needs its body wrapped twice, a parameterized call must
be a single-key object. The helpers build those shapes for you.

Example usage:

	package main

	import (
		"github.com/aretw0/flowmanager/pkg/dsl"
	)

	func main() {
		nodes := dsl.New().
			Then("loadUser").
			Then(dsl.Call("set", map[string]any{"path": "greeting", "value": "${user.name}"})).
			Then(dsl.Branch().
				When("admin", "grantAccess").
				When("guest", "askForLogin", "retry")).
			Then(dsl.Loop("whileLess", "increment")).
			Build()

		// pass nodes to flowmanager.New(nodes, ...)
	}
*/
package dsl
