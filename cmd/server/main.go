package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/storyloom/atlas/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	// Port resolution (config file, PORT env override) happens inside
	// NewServer alongside the rest of the configuration.
	srv := server.NewServer()
	if err := srv.Run(); err != nil {
		log.Fatal(err)
	}
}
