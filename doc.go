/*
Package flowmanager is a workflow orchestration engine that executes lists of heterogeneous nodes against a versioned, undo-capable state store.

A flow is a plain list. Each element is classified once, when the engine is built: a Go function, a string naming an entry in a registry, a single-key object calling a registry entry with parameters, a branch map keyed by edge names, a nested list (subflow) or a doubly nested list (loop). Nodes run strictly in order; each one produces edges and results that drive the next.

# Key Features

  - Undoable state: every write is copied into a history that supports Undo, Redo and GoToState.
  - Placeholders: parameters written as "${path}" are replaced by the state value at that path.
  - Human input: any node can pause its run and wait until the pause is resumed through the hub.
  - Bounded loops: a loop controller runs at most 100 times before the loop is forced to exit.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/flowmanager"
		"github.com/aretw0/flowmanager/pkg/domain"
		"github.com/aretw0/flowmanager/pkg/registry"
	)

	func main() {
		scope := registry.New()
		scope.RegisterFunc("greet", func(ctx context.Context, fc domain.FlowContext, params map[string]any) (any, error) {
			return fmt.Sprintf("hello %v", params["who"]), nil
		})

		eng, err := flowmanager.New([]any{
			domain.NewObject("greet", map[string]any{"who": "${user}"}),
		},
			flowmanager.WithScope(scope),
			flowmanager.WithInitialState(map[string]any{"user": "ada"}),
		)
		if err != nil {
			log.Fatal(err)
		}

		steps, err := eng.Run(context.Background())
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(steps[0].Output.Edges)
	}

# Hub

Pauses and notifications go through a hub.Hub. Inject one with WithHub so that
a pause HTTP API, a recorder or metrics can observe the same runs; otherwise
hub.Default() is used.
*/
package flowmanager
