// Command memgrid reads and adds memories from the terminal.
package main

import (
	"fmt"
	"os"

	appErrors "memorygrid-backend/pkg/errors"
)

func main() {
	cli := newCLI(initializeClient)
	err := cli.root().Execute()
	cli.close()
	if err != nil {
		if appErrors.IsUnauthenticated(err) {
			fmt.Fprintln(os.Stderr, "You are not signed in. Run `memgrid signin` first.")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
