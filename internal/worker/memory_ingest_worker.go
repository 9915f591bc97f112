package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"household-helper/internal/memory"
)

// MemoryIngestWorker consumes completed exchanges off the queue and writes
// them into the long-term memory store. Embedding happens here, off the
// request path, so a slow embedding model never delays a chat reply.
type MemoryIngestWorker struct {
	conn      *amqp.Connection
	store     *memory.LongTermStore
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMemoryIngestWorker(conn *amqp.Connection, store *memory.LongTermStore, queueName string) *MemoryIngestWorker {
	return &MemoryIngestWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
	}
}

func (w *MemoryIngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var job memory.IngestJob
				if err := json.Unmarshal(d.Body, &job); err != nil {
					log.Printf("worker decode ingest job failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.store.Record(workerCtx, job.UserID, job.MemoryText()); err != nil {
					log.Printf("worker record memory failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *MemoryIngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
