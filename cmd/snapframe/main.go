package main

import "github.com/bryanchriswhite/snapframe/cmd/snapframe/commands"

func main() {
	commands.Execute()
}
