package main

import (
	"audio-convert-service/app"
	"audio-convert-service/pkg/observability"
)

func main() {
	observability.StartProfiling("audio-convert-service")
	app.Run()
}
