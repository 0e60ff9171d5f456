package main

import (
	"github.com/chainchat/chainchat/cmd/chainchat/commands"
)

func main() {
	commands.Execute()
}
