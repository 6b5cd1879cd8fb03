// Package mongo is a [store.Store] on MongoDB.
//
// Tasks live in the "tasks" collection keyed by id, outbox operations in
// "outbox" keyed by a sequence drawn from "counters". Without a replica
// set MongoDB has no multi-document transactions, so a task write and its
// outbox entry are two writes; the task is written first.
package mongo

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/fractal/pkg/store"
	"github.com/matzehuels/fractal/pkg/task"
)

const (
	tasksCollection    = "tasks"
	outboxCollection   = "outbox"
	countersCollection = "counters"
	outboxCounter      = "outbox"
)

// Store persists tasks in one MongoDB database.
type Store struct {
	client     *mongo.Client
	ownsClient bool
	tasks      *mongo.Collection
	outbox     *mongo.Collection
	counters   *mongo.Collection
	clock      store.Clock
}

type opDoc struct {
	ID        int64     `bson:"_id"`
	Kind      string    `bson:"kind"`
	TaskID    string    `bson:"task_id"`
	Task      task.Task `bson:"task"`
	Tries     int       `bson:"tries"`
	LastError string    `bson:"last_error"`
	CreatedAt time.Time `bson:"created_at"`
}

// Open connects to uri and uses database. Close disconnects the client.
func Open(ctx context.Context, uri, database string, clock store.Clock) (*Store, error) {
	if uri == "" || database == "" {
		return nil, fmt.Errorf("mongo uri and database are required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s, err := New(ctx, client.Database(database), clock)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	s.ownsClient = true
	return s, nil
}

// New uses an existing database handle. Close leaves the client open.
func New(ctx context.Context, db *mongo.Database, clock store.Clock) (*Store, error) {
	s := &Store{
		client:   db.Client(),
		tasks:    db.Collection(tasksCollection),
		outbox:   db.Collection(outboxCollection),
		counters: db.Collection(countersCollection),
		clock:    clock,
	}
	_, err := s.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "cycle", Value: 1}, {Key: "level", Value: 1}, {Key: "sector_index", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create sector index: %w", err)
	}
	return s, nil
}

// Close disconnects the client if Open created it.
func (s *Store) Close() error {
	if s == nil || !s.ownsClient {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

func (s *Store) nextOpID(ctx context.Context) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": outboxCounter},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next outbox id: %w", err)
	}
	return doc.Seq, nil
}

func (s *Store) enqueue(ctx context.Context, kind store.OpKind, t task.Task, now time.Time) error {
	id, err := s.nextOpID(ctx)
	if err != nil {
		return err
	}
	_, err = s.outbox.InsertOne(ctx, opDoc{ID: id, Kind: string(kind), TaskID: t.ID, Task: t, CreatedAt: now})
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return nil
}

func (s *Store) findLive(ctx context.Context, id string) (task.Task, error) {
	var t task.Task
	err := s.tasks.FindOne(ctx, bson.M{"_id": id, "archived": false}).Decode(&t)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return task.Task{}, store.ErrNotFound
	}
	return t, err
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]task.Task, error) {
	cur, err := s.tasks.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var out []task.Task
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	slices.SortFunc(out, task.Less)
	return out, nil
}

func sectorFilter(k task.SectorKey) bson.M {
	return bson.M{"cycle": k.Cycle, "level": k.Level, "sector_index": k.SectorIndex, "archived": false}
}

func (s *Store) Create(ctx context.Context, t task.Task) (task.Task, error) {
	if err := ctx.Err(); err != nil {
		return task.Task{}, err
	}
	if err := t.Validate(); err != nil {
		return task.Task{}, err
	}
	if _, err := s.tasks.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return task.Task{}, fmt.Errorf("create %s: %w", t.ID, store.ErrConflict)
		}
		return task.Task{}, fmt.Errorf("create %s: %w", t.ID, err)
	}
	if err := s.enqueue(ctx, store.OpCreate, t, s.clock.Now()); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (s *Store) Get(ctx context.Context, id string) (task.Task, error) {
	if err := ctx.Err(); err != nil {
		return task.Task{}, err
	}
	var t task.Task
	err := s.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return task.Task{}, fmt.Errorf("get %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("get %s: %w", id, err)
	}
	return t, nil
}

func (s *Store) Update(ctx context.Context, id string, p task.Patch) (task.Task, error) {
	if err := ctx.Err(); err != nil {
		return task.Task{}, err
	}
	t, err := s.findLive(ctx, id)
	if err != nil {
		return task.Task{}, fmt.Errorf("update %s: %w", id, err)
	}
	now := s.clock.Now()
	updated, err := t.Apply(p, now)
	if err != nil {
		return task.Task{}, err
	}
	if _, err := s.tasks.ReplaceOne(ctx, bson.M{"_id": id}, updated); err != nil {
		return task.Task{}, fmt.Errorf("update %s: %w", id, err)
	}
	if err := s.enqueue(ctx, store.OpUpdate, updated, now); err != nil {
		return task.Task{}, err
	}
	return updated, nil
}

func (s *Store) archive(ctx context.Context, t task.Task, now time.Time) error {
	t = store.Archive(t, now)
	if _, err := s.tasks.UpdateOne(ctx, bson.M{"_id": t.ID},
		bson.M{"$set": bson.M{"archived": true, "updated_at": t.UpdatedAt}}); err != nil {
		return err
	}
	return s.enqueue(ctx, store.OpDelete, t, now)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := s.findLive(ctx, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if err := s.archive(ctx, t, s.clock.Now()); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, f store.Filter) ([]task.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter := bson.M{}
	if !f.IncludeArchived {
		filter["archived"] = false
	}
	if f.Cycle != "" {
		filter["cycle"] = f.Cycle
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	tasks, err := s.find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) ListBySector(ctx context.Context, k task.SectorKey) ([]task.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tasks, err := s.find(ctx, sectorFilter(k))
	if err != nil {
		return nil, fmt.Errorf("list sector %s: %w", k, err)
	}
	return tasks, nil
}

func (s *Store) DeleteBySector(ctx context.Context, k task.SectorKey) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	victims, err := s.find(ctx, sectorFilter(k))
	if err != nil {
		return 0, fmt.Errorf("clear sector %s: %w", k, err)
	}
	now := s.clock.Now()
	for i, t := range victims {
		if err := s.archive(ctx, t, now); err != nil {
			return i, fmt.Errorf("clear sector %s: %w", k, err)
		}
	}
	return len(victims), nil
}

func (s *Store) Put(ctx context.Context, t task.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	_, err := s.tasks.ReplaceOne(ctx, bson.M{"_id": t.ID}, t, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) PendingOps(ctx context.Context, limit int) ([]store.Op, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := store.CheckLimit(limit); err != nil {
		return nil, err
	}
	cur, err := s.outbox.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	var docs []opDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode outbox: %w", err)
	}
	ops := make([]store.Op, len(docs))
	for i, d := range docs {
		ops[i] = store.Op{
			ID:        d.ID,
			Kind:      store.OpKind(d.Kind),
			TaskID:    d.TaskID,
			Task:      d.Task,
			Tries:     d.Tries,
			LastError: d.LastError,
			CreatedAt: d.CreatedAt.UTC(),
		}
	}
	return ops, nil
}

func (s *Store) AckOp(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.outbox.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("ack op %d: %w", id, err)
	}
	return nil
}

func (s *Store) FailOp(ctx context.Context, id int64, cause error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	var doc opDoc
	err := s.outbox.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"tries": 1}, "$set": bson.M{"last_error": msg}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return false, fmt.Errorf("fail op %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("fail op %d: %w", id, err)
	}
	if doc.Tries < store.MaxTries {
		return false, nil
	}
	if _, err := s.outbox.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return false, fmt.Errorf("drop op %d: %w", id, err)
	}
	return true, nil
}

func (s *Store) MarkSynced(ctx context.Context, taskID, eventID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := s.tasks.UpdateOne(ctx, bson.M{"_id": taskID},
		bson.M{"$set": bson.M{"calendar_event_id": eventID, "last_synced_at": at}})
	if err != nil {
		return fmt.Errorf("mark synced %s: %w", taskID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("mark synced %s: %w", taskID, store.ErrNotFound)
	}
	return nil
}

var _ store.Store = (*Store)(nil)
