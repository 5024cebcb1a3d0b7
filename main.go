package main

import (
	"github.com/joho/godotenv"

	"shortlink/cmd"
)

func main() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()
	cmd.Execute()
}
