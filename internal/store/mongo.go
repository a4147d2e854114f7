package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sellerops/internal/database"
	"sellerops/internal/ids"
	"sellerops/internal/models"
	"sellerops/internal/session"
)

// Mongo is the production Store backed by MongoDB
type Mongo struct {
	tasks      *mongo.Collection
	configs    *mongo.Collection
	executions *mongo.Collection
	gen        ids.Generator
}

// NewMongo creates a store over the sellerops collections
func NewMongo(mongodb *database.MongoDB, gen ids.Generator) *Mongo {
	return &Mongo{
		tasks:      mongodb.Collection(database.CollectionTasks),
		configs:    mongodb.Collection(database.CollectionBlockConfigurations),
		executions: mongodb.Collection(database.CollectionBlockExecutions),
		gen:        gen,
	}
}

// ListTasks returns the user's tasks ordered by executionOrder then createdAt
func (s *Mongo) ListTasks(ctx context.Context, sess session.Context, filter TaskFilter) ([]models.Task, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	query := taskQuery(sess.UserID, filter)
	opts := options.Find().
		SetSort(bson.D{{Key: "executionOrder", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(listLimit(filter.Limit)))

	cursor, err := s.tasks.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := make([]models.Task, 0)
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

// CountTasks counts the user's tasks matching filter; Limit is ignored
func (s *Mongo) CountTasks(ctx context.Context, sess session.Context, filter TaskFilter) (int, error) {
	if err := sess.Validate(); err != nil {
		return 0, err
	}

	n, err := s.tasks.CountDocuments(ctx, taskQuery(sess.UserID, filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return int(n), nil
}

func taskQuery(userID string, filter TaskFilter) bson.M {
	query := bson.M{"userId": userID}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.TaskType != "" {
		query["taskType"] = filter.TaskType
	}
	if filter.ParentID != nil {
		if *filter.ParentID == "" {
			query["parentId"] = bson.M{"$exists": false}
		} else {
			query["parentId"] = *filter.ParentID
		}
	}
	return query
}

// GetTask returns one task
func (s *Mongo) GetTask(ctx context.Context, sess session.Context, id string) (*models.Task, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	var task models.Task
	err := s.tasks.FindOne(ctx, bson.M{"_id": id, "userId": sess.UserID}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// InsertTask stores a new task, assigning an id and timestamps when missing
func (s *Mongo) InsertTask(ctx context.Context, sess session.Context, task models.Task) (*models.Task, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	t := task.Clone()
	if t.ID == "" {
		t.ID = s.gen.Next()
	}
	t.UserID = sess.UserID
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.StepsCompleted == nil {
		t.StepsCompleted = []int{}
	}
	if t.StepExecutionLog == nil {
		t.StepExecutionLog = []models.StepLogEntry{}
	}

	if _, err := s.tasks.InsertOne(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &t, nil
}

// UpdateTask applies patch to a task and returns the updated document
func (s *Mongo) UpdateTask(ctx context.Context, sess session.Context, id string, patch TaskPatch) (*models.Task, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": time.Now()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.Priority != nil {
		set["priority"] = *patch.Priority
	}
	if patch.ExecutionOrder != nil {
		set["executionOrder"] = *patch.ExecutionOrder
	}
	if patch.StepsCompleted != nil {
		set["stepsCompleted"] = patch.StepsCompleted
	}
	if patch.StepExecutionLog != nil {
		set["stepExecutionLog"] = patch.StepExecutionLog
	}
	if patch.Data != nil {
		set["data"] = patch.Data
	}

	var task models.Task
	err := s.tasks.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "userId": sess.UserID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return &task, nil
}

// DeleteTask removes a task and all of its descendants
func (s *Mongo) DeleteTask(ctx context.Context, sess session.Context, id string) error {
	if err := sess.Validate(); err != nil {
		return err
	}

	if _, err := s.GetTask(ctx, sess, id); err != nil {
		return err
	}

	doomed := []string{id}
	seen := map[string]bool{id: true}
	frontier := []string{id}
	for len(frontier) > 0 {
		cursor, err := s.tasks.Find(ctx,
			bson.M{"userId": sess.UserID, "parentId": bson.M{"$in": frontier}},
			options.Find().SetProjection(bson.M{"_id": 1}),
		)
		if err != nil {
			return fmt.Errorf("failed to find subtasks: %w", err)
		}
		var children []struct {
			ID string `bson:"_id"`
		}
		if err := cursor.All(ctx, &children); err != nil {
			return fmt.Errorf("failed to decode subtasks: %w", err)
		}

		frontier = frontier[:0]
		for _, c := range children {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			doomed = append(doomed, c.ID)
			frontier = append(frontier, c.ID)
		}
	}

	if _, err := s.tasks.DeleteMany(ctx, bson.M{"userId": sess.UserID, "_id": bson.M{"$in": doomed}}); err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}
	return nil
}

// ListBlockConfigurations returns the user's configurations, optionally for one category
func (s *Mongo) ListBlockConfigurations(ctx context.Context, sess session.Context, category models.Category) ([]models.BlockConfiguration, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	query := bson.M{"userId": sess.UserID}
	if category != "" {
		query["category"] = category
	}

	cursor, err := s.configs.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list block configurations: %w", err)
	}
	defer cursor.Close(ctx)

	configs := make([]models.BlockConfiguration, 0)
	if err := cursor.All(ctx, &configs); err != nil {
		return nil, fmt.Errorf("failed to decode block configurations: %w", err)
	}
	return configs, nil
}

// UpsertBlockConfiguration inserts or replaces the configuration with the
// same (category, name, blockId)
func (s *Mongo) UpsertBlockConfiguration(ctx context.Context, sess session.Context, cfg models.BlockConfiguration) error {
	if err := sess.Validate(); err != nil {
		return err
	}

	id := cfg.ID
	if id == "" {
		id = s.gen.Next()
	}
	filter := bson.M{
		"userId":   sess.UserID,
		"category": cfg.Category,
		"name":     cfg.Name,
		"blockId":  cfg.BlockID,
	}
	update := bson.M{
		"$set": bson.M{
			"isFunctional": cfg.IsFunctional,
			"configData":   cfg.ConfigData,
			"credentials":  cfg.Credentials,
			"updatedAt":    time.Now(),
		},
		"$setOnInsert": bson.M{"_id": id},
	}

	if _, err := s.configs.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to upsert block configuration: %w", err)
	}
	return nil
}

// InsertExecutionRecord appends an execution record
func (s *Mongo) InsertExecutionRecord(ctx context.Context, sess session.Context, rec models.ExecutionRecord) (*models.ExecutionRecord, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	r := rec
	if r.ID == "" {
		r.ID = s.gen.Next()
	}
	r.UserID = sess.UserID
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}

	if _, err := s.executions.InsertOne(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create execution record: %w", err)
	}
	return &r, nil
}

// UpdateExecutionRecord moves a record to a new status
func (s *Mongo) UpdateExecutionRecord(ctx context.Context, sess session.Context, id string, patch ExecutionPatch) error {
	if err := sess.Validate(); err != nil {
		return err
	}

	set := bson.M{
		"status": patch.Status,
		"error":  patch.Error,
	}
	if patch.OutputData != nil {
		set["outputData"] = patch.OutputData
	}
	if !patch.CompletedAt.IsZero() {
		set["completedAt"] = patch.CompletedAt
	}

	result, err := s.executions.UpdateOne(ctx, bson.M{"_id": id, "userId": sess.UserID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update execution record: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExecutionRecords returns the newest records first, optionally for one block
func (s *Mongo) ListExecutionRecords(ctx context.Context, sess session.Context, blockID string, limit int) ([]models.ExecutionRecord, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	query := bson.M{"userId": sess.UserID}
	if blockID != "" {
		query["blockId"] = blockID
	}

	cursor, err := s.executions.Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}}).SetLimit(int64(listLimit(limit))))
	if err != nil {
		return nil, fmt.Errorf("failed to list execution records: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]models.ExecutionRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode execution records: %w", err)
	}
	return records, nil
}
