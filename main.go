package main

import "github.com/galaxyproject/activity-stats/cmd"

func main() {
	cmd.Execute()
}
