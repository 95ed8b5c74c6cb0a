package main

import "github.com/BuzzLyutic/taskview/cmd/taskview/commands"

func main() {
	commands.Execute()
}
