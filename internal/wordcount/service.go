package wordcount

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/wordcount-api/internal/metrics"
	"github.com/JakeFAU/wordcount-api/internal/tally"
)

const publishTimeout = 5 * time.Second

// Config holds service-level knobs.
type Config struct {
	// Topic receives a Completion per stored record. Empty disables publishing.
	Topic string
}

// Service runs word counts and answers history queries.
type Service struct {
	whole     Acquirer
	streamed  Acquirer
	store     Store
	publisher Publisher
	clock     Clock
	idGen     IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// NewService wires a Service. publisher may be nil.
func NewService(
	whole Acquirer,
	streamed Acquirer,
	store Store,
	publisher Publisher,
	clock Clock,
	idGen IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		whole:     whole,
		streamed:  streamed,
		store:     store,
		publisher: publisher,
		clock:     clock,
		idGen:     idGen,
		cfg:       cfg,
		logger:    logger,
	}
}

// Process fetches req.URL, tallies its words, stores the unsorted tally, and
// returns the tally ordered as req.Options asks. Any failure aborts the whole
// operation and is returned as produced; nothing is stored unless the tally
// was fully computed.
func (s *Service) Process(ctx context.Context, req Request) (*tally.Tally, error) {
	start := time.Now()
	processingType := effectiveProcessingType(req.Options.ProcessingType)
	logger := s.logger.With(zap.String("url", req.URL), zap.String("processing_type", string(processingType)))

	counts, err := s.strategyFor(processingType).Acquire(ctx, req.URL, req.Options.Normalization())
	if err != nil {
		logger.Warn("word count acquisition failed", zap.Error(err))
		metrics.ObserveWordCount(string(processingType), outcome(err), time.Since(start))
		return nil, err
	}

	id, err := s.idGen.NewID()
	if err != nil {
		perr := &PersistenceError{Op: "generate record id", Err: err}
		metrics.ObserveWordCount(string(processingType), outcome(perr), time.Since(start))
		return nil, perr
	}
	rec := Record{
		ID:        id,
		URL:       req.URL,
		Options:   req.Options,
		Date:      s.clock.Now(),
		WordCount: counts,
	}
	if _, err := s.store.Insert(ctx, rec); err != nil {
		logger.Error("word count persistence failed", zap.String("record_id", id), zap.Error(err))
		metrics.ObserveWordCount(string(processingType), outcome(err), time.Since(start))
		return nil, err
	}
	logger.Info("word count stored",
		zap.String("record_id", id),
		zap.Int("distinct_words", counts.Len()),
		zap.Int("total_words", counts.Total()),
	)
	s.notify(ctx, rec, processingType)
	metrics.ObserveWordCount(string(processingType), "success", time.Since(start))

	return tally.Sort(counts, req.Options.Sort, req.Options.SortDirection), nil
}

// History lists stored records.
func (s *Service) History(ctx context.Context, q HistoryQuery) ([]Record, error) {
	records, err := s.store.Find(ctx, FindQuery{
		SortByDate:        q.Sort,
		Descending:        tally.Descending(q.SortDirection),
		IncludeWordCounts: q.IncludeWordCounts,
	})
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err))
		metrics.ObserveHistoryQuery("error")
		return nil, err
	}
	metrics.ObserveHistoryQuery("success")
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (s *Service) strategyFor(pt ProcessingType) Acquirer {
	if pt == ProcessingStream {
		return s.streamed
	}
	return s.whole
}

func (s *Service) notify(ctx context.Context, rec Record, pt ProcessingType) {
	if s.publisher == nil || s.cfg.Topic == "" {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	payload := Completion{
		ID:             rec.ID,
		URL:            rec.URL,
		Date:           rec.Date,
		ProcessingType: pt,
		DistinctWords:  rec.WordCount.Len(),
		TotalWords:     rec.WordCount.Total(),
	}
	if _, err := s.publisher.Publish(pubCtx, s.cfg.Topic, payload); err != nil {
		s.logger.Warn("completion publish failed", zap.String("record_id", rec.ID), zap.Error(err))
	}
}

func effectiveProcessingType(pt ProcessingType) ProcessingType {
	if pt == ProcessingStream {
		return ProcessingStream
	}
	return ProcessingWhole
}

func outcome(err error) string {
	var (
		fetchErr   *FetchError
		processErr *ProcessingError
		persistErr *PersistenceError
	)
	switch {
	case errors.As(err, &fetchErr):
		return "fetch_error"
	case errors.As(err, &processErr):
		return "processing_error"
	case errors.As(err, &persistErr):
		return "persistence_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
