package main

import (
	"context"
	"log"

	"github.com/icoxfog417/agentcore-handshake/cmd/agentctl/cmd"
	"github.com/icoxfog417/agentcore-handshake/tracing"
)

func main() {
	tp, err := tracing.InitTracerProvider("agentcore-handshake-agentctl")
	if err != nil {
		log.Fatalf("Failed to initialize TracerProvider: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down TracerProvider: %v", err)
		}
	}()

	cmd.Execute()
}
