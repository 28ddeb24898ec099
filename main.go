package main

import "github.com/railwayapp/launchpad/cmd/launchpad"

func main() {
	launchpad.Execute()
}
