package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/planrag/backend/internal/queue"
	"github.com/planrag/backend/internal/server"
	"github.com/planrag/backend/internal/util"
	"github.com/planrag/backend/pkg/logger"
	"github.com/planrag/backend/pkg/logger/console"

	amqp "github.com/rabbitmq/amqp091-go"
)

const maxRetries = 10

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	gs, closeStore := server.NewGraphStore(ctx)
	defer closeStore()

	aiClient := server.NewAIClient()
	cache := server.NewEmbeddingCache(aiClient)
	pipeline := server.NewPipeline(aiClient, gs, cache)

	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	logger.Info("Listening for messages")

	// Single consumer channel with prefetch=1 so only one message is in
	// flight across all queues.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queue.Queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.IngestQueue:
					processingErr = queue.ProcessIngestMessage(ctx, pipeline, string(qm.msg.Body))
				}

				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					queue.HandleProcessingError(consumerCh, qm.msg, qm.queueName, maxRetries)
				} else {
					if err := qm.msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				processingDuration := time.Since(startTime)
				hours := int(processingDuration.Hours())
				minutes := int(processingDuration.Minutes()) % 60
				seconds := int(processingDuration.Seconds()) % 60
				logger.Info(
					"Processing time",
					"duration", fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
				)
				logger.Info("Waiting for next message")
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}
