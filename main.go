package main

import "face-scenes/cmd"

func main() {
	cmd.Execute()
}
