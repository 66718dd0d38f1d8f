package main

import "github.com/trawldev/trawl/cmd"

func main() {
	cmd.Execute()
}
