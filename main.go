// ./main.go
package main

import (
	"github.com/xkilldash9x/mockpage/cmd"
)

// main is the entry point for the mockpage CLI.
func main() {
	cmd.Execute()
}
