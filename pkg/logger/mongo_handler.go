package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoQueueSize = 4096
	mongoBatchSize = 50
	mongoDrainTick = 2 * time.Second
)

// LogDocument is the shape written to MongoDB. Owner ids are lifted out of
// the attributes so an owner's activity can be queried directly.
type LogDocument struct {
	Time      time.Time `bson:"time"`
	Level     string    `bson:"level"`
	Msg       string    `bson:"msg"`
	RequestID string    `bson:"request_id,omitempty"`
	UserID    any       `bson:"user_id,omitempty"`
	Attrs     bson.M    `bson:"attrs,omitempty"`
}

// mongoSink owns the connection and the single writer goroutine. Every
// handler derived through WithAttrs or WithGroup shares it.
type mongoSink struct {
	col     *mongo.Collection
	client  *mongo.Client
	queue   chan LogDocument
	dropped atomic.Int64

	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newMongoSink(size int) *mongoSink {
	return &mongoSink{
		queue:   make(chan LogDocument, size),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// enqueue never blocks; a full queue drops the document.
func (s *mongoSink) enqueue(doc LogDocument) {
	select {
	case s.queue <- doc:
	default:
		s.dropped.Add(1)
	}
}

func (s *mongoSink) run() {
	defer close(s.stopped)

	tick := time.NewTicker(mongoDrainTick)
	defer tick.Stop()

	batch := make([]any, 0, mongoBatchSize)
	for {
		select {
		case doc := <-s.queue:
			if batch = append(batch, doc); len(batch) == mongoBatchSize {
				batch = s.insert(batch)
			}
		case <-tick.C:
			batch = s.insert(batch)
		case <-s.stop:
			for len(s.queue) > 0 {
				batch = append(batch, <-s.queue)
			}
			s.insert(batch)
			return
		}
	}
}

func (s *mongoSink) insert(batch []any) []any {
	if len(batch) == 0 {
		return batch
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.col.InsertMany(ctx, batch); err != nil {
		s.dropped.Add(int64(len(batch)))
	}
	return batch[:0]
}

// MongoHandler is an slog.Handler that mirrors Info and above to MongoDB.
type MongoHandler struct {
	sink   *mongoSink
	attrs  []slog.Attr // keys already qualified by their group
	groups []string
}

// NewMongoHandler connects to uri and starts the writer. The caller must
// eventually call Close.
func NewMongoHandler(uri, db, collection string) (*MongoHandler, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).
		SetConnectTimeout(5*time.Second).
		SetServerSelectionTimeout(5*time.Second).
		SetMaxPoolSize(10))
	if err != nil {
		return nil, fmt.Errorf("logger: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("logger: mongo ping: %w", err)
	}

	col := client.Database(db).Collection(collection)
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "time", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "time", Value: -1}}},
	})

	sink := newMongoSink(mongoQueueSize)
	sink.col, sink.client = col, client
	go sink.run()
	return &MongoHandler{sink: sink}, nil
}

func (h *MongoHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= slog.LevelInfo }

func (h *MongoHandler) Handle(_ context.Context, r slog.Record) error {
	doc := LogDocument{Time: r.Time, Level: r.Level.String(), Msg: r.Message, Attrs: bson.M{}}
	for _, a := range h.attrs {
		doc.put(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		doc.put(h.qualify(a))
		return true
	})
	h.sink.enqueue(doc)
	return nil
}

func (d *LogDocument) put(a slog.Attr) {
	switch a.Key {
	case "request_id":
		d.RequestID = a.Value.String()
	case "user_id":
		d.UserID = a.Value.Any()
	default:
		d.Attrs[a.Key] = a.Value.Resolve().Any()
	}
}

func (h *MongoHandler) qualify(a slog.Attr) slog.Attr {
	if len(h.groups) > 0 {
		a.Key = strings.Join(h.groups, ".") + "." + a.Key
	}
	return a
}

func (h *MongoHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := slices.Clip(h.attrs)
	for _, a := range attrs {
		bound = append(bound, h.qualify(a))
	}
	return &MongoHandler{sink: h.sink, attrs: bound, groups: h.groups}
}

func (h *MongoHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &MongoHandler{sink: h.sink, attrs: h.attrs, groups: append(slices.Clip(h.groups), name)}
}

// Dropped counts documents lost to a full queue or a failed insert.
func (h *MongoHandler) Dropped() int64 { return h.sink.dropped.Load() }

// Close flushes queued documents and disconnects. It is safe to call more
// than once.
func (h *MongoHandler) Close() {
	h.sink.once.Do(func() {
		close(h.sink.stop)
		<-h.sink.stopped

		if n := h.sink.dropped.Load(); n > 0 {
			slog.New(consoleHandler(os.Stderr)).Warn("mongo log sink dropped documents", "count", n)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.sink.client.Disconnect(ctx)
	})
}

// MultiHandler fans each record out to several handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

func NewMultiHandler(hs ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: hs}
}

func (m *MultiHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return slices.ContainsFunc(m.handlers, func(h slog.Handler) bool { return h.Enabled(ctx, l) })
}

func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *MultiHandler) each(derive func(slog.Handler) slog.Handler) *MultiHandler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = derive(h)
	}
	return &MultiHandler{handlers: hs}
}
