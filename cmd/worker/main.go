package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	internalaws "github.com/imrishuroy/go-order-edits/internal/aws"
)

func main() {
	clients, err := internalaws.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	processor := NewProcessor(clients, os.Getenv("OUTBOX_TABLE"), os.Getenv("EVENTS_QUEUE_URL"))

	// If RUN_LOCAL=true, poll the outbox table instead of consuming the
	// table's stream from Lambda.
	if os.Getenv("RUN_LOCAL") == "true" {
		log.Printf("running local outbox relay")
		for {
			n, err := processor.RelayPending(context.Background(), 25)
			if err != nil {
				log.Printf("relay error: %v", err)
			}
			if n == 0 {
				time.Sleep(2 * time.Second)
			}
		}
	}

	lambda.Start(processor.HandleStream)
}
