package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"email-dispatcher/internal/config"
)

func main() {
	tracer.Start(
		tracer.WithService("email-dispatcher"),
		tracer.WithEnv(os.Getenv("DD_ENV")),
	)
	defer tracer.Stop()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Reading configuration from environment.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := newRootCommand(cfg, os.Stdout).Execute(); err != nil {
		tracer.Stop()
		os.Exit(1)
	}
}
