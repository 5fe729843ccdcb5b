package main

import "visaradar/internal/app"

func main() {
	app.Run()
}
