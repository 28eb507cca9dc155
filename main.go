package main

import "github.com/stormvale/regroup/cmd"

func main() {
	cmd.Execute()
}
