package main

import (
	"context"

	"github.com/kapu/post-reactors/cmd/reactorctl/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
