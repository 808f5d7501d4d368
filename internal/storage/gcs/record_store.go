// Package gcs provides a word count record store backed by Google Cloud Storage.
//
// Each record is two objects under <prefix>/<id>/: record.json holds the
// record without its tally and word_count.json holds the tally. record.json is
// written last, so a listing only ever sees fully written records, and a
// history query that excludes word counts never downloads them.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	wcstorage "github.com/JakeFAU/wordcount-api/internal/storage"
	"github.com/JakeFAU/wordcount-api/internal/tally"
	"github.com/JakeFAU/wordcount-api/internal/wordcount"
)

const (
	recordObject    = "record.json"
	wordCountObject = "word_count.json"
	contentTypeJSON = "application/json"
)

// Config captures the bucket layout.
type Config struct {
	Bucket string
	Prefix string
}

// RecordStore reads and writes record objects in one bucket.
type RecordStore struct {
	client *storage.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// New creates a GCS-backed record store. The store owns client and closes it.
func New(client *storage.Client, cfg Config, logger *zap.Logger) (*RecordStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}, nil
}

// Close closes the storage client.
func (s *RecordStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}

// Insert writes the tally object, then the record object.
func (s *RecordStore) Insert(ctx context.Context, rec wordcount.Record) (wordcount.Record, error) {
	if strings.TrimSpace(rec.ID) == "" || strings.Contains(rec.ID, "/") {
		return wordcount.Record{}, wcstorage.Insert(fmt.Errorf("invalid record id %q", rec.ID))
	}
	wc := rec.WordCount
	if wc == nil {
		wc = tally.New()
	}
	wordCountJSON, err := wc.MarshalJSON()
	if err != nil {
		return wordcount.Record{}, wcstorage.Insert(fmt.Errorf("marshal word count: %w", err))
	}
	recordJSON, err := json.Marshal(wcstorage.Project(rec, false))
	if err != nil {
		return wordcount.Record{}, wcstorage.Insert(fmt.Errorf("marshal record: %w", err))
	}

	if err := s.put(ctx, s.objectName(rec.ID, wordCountObject), wordCountJSON); err != nil {
		return wordcount.Record{}, wcstorage.Insert(err)
	}
	if err := s.put(ctx, s.objectName(rec.ID, recordObject), recordJSON); err != nil {
		return wordcount.Record{}, wcstorage.Insert(err)
	}
	return rec, nil
}

// Find lists record objects in ID order, which is creation order for UUIDv7
// IDs, and applies q.
func (s *RecordStore) Find(ctx context.Context, q wordcount.FindQuery) ([]wordcount.Record, error) {
	listPrefix := ""
	if s.prefix != "" {
		listPrefix = s.prefix + "/"
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: listPrefix})

	records := []wordcount.Record{}
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, wcstorage.Find(fmt.Errorf("list objects: %w", err))
		}
		if path.Base(attrs.Name) != recordObject {
			continue
		}
		rec, err := s.readRecord(ctx, attrs.Name, q.IncludeWordCounts)
		if err != nil {
			return nil, wcstorage.Find(err)
		}
		records = append(records, rec)
	}
	wcstorage.SortByID(records)
	return wcstorage.ApplyQuery(records, q), nil
}

func (s *RecordStore) readRecord(ctx context.Context, name string, includeWordCounts bool) (wordcount.Record, error) {
	data, err := s.get(ctx, name)
	if err != nil {
		return wordcount.Record{}, err
	}
	var rec wordcount.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return wordcount.Record{}, fmt.Errorf("decode %s: %w", name, err)
	}
	rec.WordCount = nil
	if !includeWordCounts {
		return rec, nil
	}
	wcData, err := s.get(ctx, s.objectName(rec.ID, wordCountObject))
	if err != nil {
		return wordcount.Record{}, err
	}
	rec.WordCount = tally.New()
	if err := rec.WordCount.UnmarshalJSON(wcData); err != nil {
		return wordcount.Record{}, fmt.Errorf("decode word count for %s: %w", rec.ID, err)
	}
	return rec, nil
}

func (s *RecordStore) objectName(id, leaf string) string {
	if s.prefix == "" {
		return id + "/" + leaf
	}
	return s.prefix + "/" + id + "/" + leaf
}

func (s *RecordStore) put(ctx context.Context, name string, data []byte) error {
	writer := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	writer.ContentType = contentTypeJSON
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write %s: %w (close writer: %v)", name, err, closeErr)
		}
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", name, err)
	}
	s.logger.Debug("object written", zap.String("bucket", s.bucket), zap.String("object", name))
	return nil
}

func (s *RecordStore) get(ctx context.Context, name string) ([]byte, error) {
	reader, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			s.logger.Debug("close object reader", zap.String("object", name), zap.Error(cerr))
		}
	}()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
