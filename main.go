package main

import "github.com/devMonkRahul/w3send/cmd"

func main() {
	cmd.Execute()
}
