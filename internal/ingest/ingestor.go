package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"example.com/attribution/internal/attribution"
	"example.com/attribution/internal/domain"
	"example.com/attribution/internal/idempotency"
)

// BatchWriter persists classified transactions and reports rows inserted.
type BatchWriter interface {
	InsertBatch(ctx context.Context, items []domain.ClassifiedTransaction) (int64, error)
}

type Ingestor struct {
	queue        chan domain.ClassifiedTransaction
	writer       BatchWriter
	log          *zap.Logger
	batchMaxSize int
	batchMaxWait time.Duration
	done         chan struct{}
}

func NewIngestor(writer BatchWriter, log *zap.Logger, queueMaxSize, batchMaxSize int, batchMaxWait time.Duration) *Ingestor {
	if batchMaxSize < 1 {
		batchMaxSize = 1
	}
	return &Ingestor{
		queue:        make(chan domain.ClassifiedTransaction, queueMaxSize),
		writer:       writer,
		log:          log.Named("ingest"),
		batchMaxSize: batchMaxSize,
		batchMaxWait: batchMaxWait,
		done:         make(chan struct{}),
	}
}

// Prepare classifies tx with the organization's rules and derives its key.
func Prepare(tx domain.Transaction, rules *attribution.RuleSet) domain.ClassifiedTransaction {
	key, _ := idempotency.DeriveKey(&tx)
	return domain.ClassifiedTransaction{
		Transaction: tx,
		Key:         key,
		Attribution: rules.Classifier(tx.OrganizationID).Classify(tx.AttributionInput()),
	}
}

// Start runs the batching worker until ctx is cancelled. Whatever is queued
// at cancellation is flushed once more before the worker exits.
func (ig *Ingestor) Start(ctx context.Context) {
	go func() {
		defer close(ig.done)

		batch := make([]domain.ClassifiedTransaction, 0, ig.batchMaxSize)
		t := time.NewTimer(ig.batchMaxWait)
		defer t.Stop()

		resetTimer := func() {
			if !t.Stop() {
				select {
				case <-t.C:
				default:
				}
			}
			t.Reset(ig.batchMaxWait)
		}

		flush := func(wctx context.Context) {
			if len(batch) == 0 {
				resetTimer()
				return
			}
			affected, err := ig.writer.InsertBatch(wctx, batch)
			if err != nil {
				ig.log.Error("batch insert failed", zap.Error(err), zap.Int("dropped", len(batch)))
			} else {
				ig.log.Debug("batch insert ok", zap.Int64("inserted", affected), zap.Int("size", len(batch)))
			}
			batch = batch[:0]
			resetTimer()
		}

		for {
			select {
			case <-ctx.Done():
				ig.drain(&batch)
				drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				flush(drainCtx)
				cancel()
				return
			case tx := <-ig.queue:
				batch = append(batch, tx)
				if len(batch) >= ig.batchMaxSize {
					flush(ctx)
				}
			case <-t.C:
				flush(ctx)
			}
		}
	}()
}

func (ig *Ingestor) drain(batch *[]domain.ClassifiedTransaction) {
	for {
		select {
		case tx := <-ig.queue:
			*batch = append(*batch, tx)
		default:
			return
		}
	}
}

// Enqueue never blocks; false means the queue is full.
func (ig *Ingestor) Enqueue(tx domain.ClassifiedTransaction) bool {
	select {
	case ig.queue <- tx:
		return true
	default:
		return false
	}
}

// Wait blocks until the worker started by Start has exited.
func (ig *Ingestor) Wait() {
	<-ig.done
}
