package main

import "github.com/bz888/leanne/cmd"

func main() {
	cmd.Execute()
}
