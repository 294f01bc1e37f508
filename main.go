package main

import "github.com/nkarpov/roomcast/cmd"

func main() {
	cmd.Execute()
}
