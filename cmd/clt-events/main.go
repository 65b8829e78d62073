// Command clt-events crawls Charlotte event sources and writes a ranked feed.
package main

import "github.com/pfrederiksen/clt-events/internal/cli"

func main() {
	cli.Execute()
}
