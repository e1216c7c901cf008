package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mssola/useragent"
	"go.uber.org/zap"

	"github.com/akio-byte/navaltutka/internal/models"
)

// LogWriter persists request log batches.
type LogWriter interface {
	CreateBatch(ctx context.Context, logs []*models.RequestLog) error
}

type DropCounter interface {
	IncrementRequestLogDrops()
}

// RequestLogSink queues request logs on a bounded channel and batch-inserts
// them from a single worker. Entries are dropped when the queue is full.
type RequestLogSink struct {
	ch            chan models.RequestLog
	writer        LogWriter
	batchSize     int
	flushInterval time.Duration
	logger        *zap.Logger
	drops         DropCounter
}

func NewRequestLogSink(writer LogWriter, bufferSize, batchSize int, flushInterval time.Duration, logger *zap.Logger, drops DropCounter) *RequestLogSink {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &RequestLogSink{
		ch:            make(chan models.RequestLog, bufferSize),
		writer:        writer,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		drops:         drops,
	}
}

// Enqueue never blocks.
func (s *RequestLogSink) Enqueue(entry models.RequestLog) bool {
	select {
	case s.ch <- entry:
		return true
	default:
		if s.drops != nil {
			s.drops.IncrementRequestLogDrops()
		}
		return false
	}
}

// Run batches queued entries until ctx is cancelled, then flushes what is
// left.
func (s *RequestLogSink) Run(ctx context.Context) error {
	batch := make([]*models.RequestLog, 0, s.batchSize)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := s.writer.CreateBatch(ctx, batch); err != nil {
			s.logger.Error("failed to insert request logs", zap.Int("count", len(batch)), zap.Error(err))
		}
		batch = make([]*models.RequestLog, 0, s.batchSize)
	}

	for {
		select {
		case entry := <-s.ch:
			batch = append(batch, &entry)
			if len(batch) >= s.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			for {
				select {
				case entry := <-s.ch:
					batch = append(batch, &entry)
				default:
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					flush(shutdownCtx)
					cancel()
					return nil
				}
			}
		}
	}
}

// RequestLogger records the outcome of every request into sink.
func RequestLogger(sink *RequestLogSink) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		uaString := c.Request.UserAgent()
		ua := useragent.New(uaString)
		browser, _ := ua.Browser()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		sink.Enqueue(models.RequestLog{
			RequestID:  c.GetString(KeyRequestID),
			Timestamp:  start,
			ClientKey:  GetClientKey(c),
			Method:     c.Request.Method,
			Endpoint:   endpoint,
			StatusCode: c.Writer.Status(),
			Code:       c.GetString(KeyCode),
			Streamed:   c.GetBool(KeyStreamed),
			LatencyMs:  int(duration.Milliseconds()),
			UserAgent:  uaString,
			Browser:    browser,
			Bot:        ua.Bot(),
		})
	}
}
