// Command baseline-runner brings an iOS app under test back to its baseline screen.
package main

import "github.com/devicelab-dev/baseline-runner/pkg/cli"

func main() {
	cli.Execute()
}
