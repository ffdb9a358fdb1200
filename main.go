// The main package for the nwsharvest executable.
package main

import (
	"github.com/msmolkin/nwsharvest/cmd"
)

func main() {
	cmd.Execute()
}
