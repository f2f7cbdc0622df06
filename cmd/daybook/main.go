// Command daybook is the CLI for the daybook life-organization tracker.
package main

import "github.com/mesh-intelligence/daybook/internal/cli"

func main() {
	cli.Execute()
}
