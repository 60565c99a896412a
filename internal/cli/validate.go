package cli

import (
	"fmt"
	"io"

	"github.com/aretw0/flowmanager/internal/compiler"
	"github.com/aretw0/flowmanager/internal/validator"
)

// Validate loads a flow file and reports every node the builtin scope cannot run.
func Validate(path string, out io.Writer) error {
	def, err := compiler.LoadFile(path)
	if err != nil {
		return err
	}

	issues := validator.Inspect(def.Nodes, Builtins(io.Discard))
	for _, issue := range issues {
		fmt.Fprintln(out, issue)
	}
	if len(issues) > 0 {
		return fmt.Errorf("%d invalid node(s) in %s", len(issues), path)
	}
	return nil
}
