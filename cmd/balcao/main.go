package main

import (
	"log"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (for development)
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	Execute()
}
