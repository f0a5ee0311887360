// The main package for the rootscan executable.
package main

import (
	"github.com/JakeFAU/rootscan/cmd"
)

func main() {
	cmd.Execute()
}
