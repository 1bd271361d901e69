package main

import (
	"fmt"
	"os"
	"os/exec"
)

// main.go at root forwards to cmd/peerpods for local runs, e.g.
// `go run . migrate status`. deployments build cmd/peerpods directly.
func main() {
	args := append([]string{"run", "./cmd/peerpods"}, os.Args[1:]...)

	cmd := exec.Command("go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "peerpods: %v\n", err)
		os.Exit(1)
	}
}
