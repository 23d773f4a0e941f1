package main

import (
	"braacket-bot/cmd/braacket-cli/cmd"
	"braacket-bot/pkg/serviceutil"
)

func main() {
	cmd.Execute(serviceutil.SignalContext())
}
