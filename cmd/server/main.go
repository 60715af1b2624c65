package main

import "mediation/internal/app"

func main() {
	app.Run()
}
