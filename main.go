package main

import "songbird/cmd"

func main() {
	cmd.Execute()
}
