package main

import (
	"context"

	"github.com/shandysiswandi/gorelay/internal/app"
)

func main() {
	relay := app.New()
	<-relay.Start()

	ctx, cancel := context.WithTimeout(context.Background(), relay.ShutdownTimeout())
	defer cancel()

	relay.Stop(ctx)
}
