package flowmanager_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/flowmanager"
	"github.com/aretw0/flowmanager/pkg/domain"
	"github.com/aretw0/flowmanager/pkg/dsl"
	"github.com/aretw0/flowmanager/pkg/hub"
	"github.com/aretw0/flowmanager/pkg/registry"
)

// ExampleNew shows a branch chosen by the edges of the previous node.
func ExampleNew() {
	scope := registry.New()
	scope.RegisterFunc("classify", func(ctx context.Context, fc domain.FlowContext, params map[string]any) (any, error) {
		if fc.State().Get("age").(int) >= 18 {
			return []string{"adult"}, nil
		}
		return []string{"minor"}, nil
	})
	scope.RegisterFunc("welcome", func(ctx context.Context, fc domain.FlowContext, params map[string]any) (any, error) {
		return fmt.Sprintf("welcome %v", params["name"]), nil
	})

	nodes := dsl.New().
		Then("classify").
		Then(dsl.Branch().
			When("minor", "reject").
			When("adult", dsl.Call("welcome", map[string]any{"name": "${name}"}))).
		Build()

	eng, err := flowmanager.New(nodes,
		flowmanager.WithScope(scope),
		flowmanager.WithHub(hub.New()),
		flowmanager.WithInitialState(map[string]any{"name": "ada", "age": 36}),
	)
	if err != nil {
		log.Fatal(err)
	}

	steps, err := eng.Run(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	for _, s := range steps {
		fmt.Println(s.Node.Kind, s.Output.Edges)
	}
	// Output:
	// reference [adult]
	// branch [welcome ada]
}

// ExampleEngine_State shows that every write can be undone.
func ExampleEngine_State() {
	eng, err := flowmanager.New([]any{
		func(ctx context.Context, fc domain.FlowContext, _ map[string]any) (any, error) {
			if err := fc.State().Set("step", 1); err != nil {
				return nil, err
			}
			return nil, fc.State().Set("step", 2)
		},
	}, flowmanager.WithHub(hub.New()))
	if err != nil {
		log.Fatal(err)
	}

	if _, err := eng.Run(context.Background()); err != nil {
		log.Fatal(err)
	}

	st := eng.State()
	fmt.Println(st.Get("step"))
	st.Undo()
	fmt.Println(st.Get("step"))
	st.Undo()
	fmt.Println(st.Get("step"))
	// Output:
	// 2
	// 1
	// <nil>
}
