package main

import (
	// Respect the container CPU quota when the station runs in a container.
	_ "go.uber.org/automaxprocs"

	"cloupeer.io/nvsprov/cmd/cpeer-nvsprov/app"
)

func main() {
	app.NewApp().Run()
}
