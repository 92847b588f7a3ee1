package main

import "github.com/akm/buildbot-lights/cmd"

func main() {
	cmd.Execute()
}
