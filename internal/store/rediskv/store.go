package rediskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/surendar1863/student-edge-program/internal/models"
	"github.com/surendar1863/student-edge-program/internal/store"
)

const (
	submissionKeyTpl = "student_responses:%s" // student_responses:${roll}_${section}
	markKeyTpl       = "faculty_marks:%s"     // faculty_marks:${roll}_${question}
	shortMarkKeyTpl  = "short_marks:%s"       // short_marks:${roll}_${section}_${question}
	markIndexTpl     = "idx:faculty_marks:%s" // zset of mark keys by write sequence
	shortIndexTpl    = "idx:short_marks:%s"
	markSeqKey       = "seq:faculty_marks"
	shortSeqKey      = "seq:short_marks"
	submissionScan   = "student_responses:*"
)

// RedisStore keeps every record as a JSON document under its natural key.
// Per-subject sorted sets scored by a write counter keep mark write order.
type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{redis: client}, nil
}

func NewWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{redis: client}
}

func (s *RedisStore) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

func (s *RedisStore) PutSubmission(ctx context.Context, sub *models.Submission) error {
	doc, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}
	key := fmt.Sprintf(submissionKeyTpl, sub.Key())
	if err := s.redis.Set(ctx, key, doc, 0).Err(); err != nil {
		return store.Unavailable("save submission "+sub.Key(), err)
	}
	return nil
}

func (s *RedisStore) GetSubmission(ctx context.Context, roll, section string) (*models.Submission, error) {
	key := fmt.Sprintf(submissionKeyTpl, models.SubmissionKey(roll, section))
	doc, err := s.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Unavailable("get submission", err)
	}

	var sub models.Submission
	if err := json.Unmarshal(doc, &sub); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return &sub, nil
}

func (s *RedisStore) ListSubmissions(ctx context.Context) ([]models.Submission, error) {
	// FIXME: scans are expensive, keep an index set once cohorts grow
	var keys []string
	iter := s.redis.Scan(ctx, 0, submissionScan, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, store.Unavailable("scan submissions", err)
	}
	sort.Strings(keys)

	docs, err := s.fetch(ctx, keys)
	if err != nil {
		return nil, store.Unavailable("list submissions", err)
	}

	subs := make([]models.Submission, 0, len(docs))
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		var sub models.Submission
		if err := json.Unmarshal(doc, &sub); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", keys[i], err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (s *RedisStore) PutMark(ctx context.Context, mark *models.MarkRecord) error {
	doc, err := json.Marshal(mark)
	if err != nil {
		return fmt.Errorf("failed to encode mark: %w", err)
	}
	if err := s.putIndexed(ctx, markSeqKey,
		fmt.Sprintf(markKeyTpl, mark.Key()),
		fmt.Sprintf(markIndexTpl, mark.Roll),
		doc,
	); err != nil {
		return store.Unavailable("save mark "+mark.Key(), err)
	}
	return nil
}

func (s *RedisStore) ListMarks(ctx context.Context, roll string) ([]models.MarkRecord, error) {
	docs, err := s.listIndexed(ctx, fmt.Sprintf(markIndexTpl, roll))
	if err != nil {
		return nil, store.Unavailable("list marks", err)
	}

	marks := make([]models.MarkRecord, 0, len(docs))
	for _, doc := range docs {
		var m models.MarkRecord
		if err := json.Unmarshal(doc, &m); err != nil {
			return nil, fmt.Errorf("failed to decode mark of %s: %w", roll, err)
		}
		marks = append(marks, m)
	}
	return marks, nil
}

func (s *RedisStore) PutShortMark(ctx context.Context, mark *models.ShortMark) error {
	doc, err := json.Marshal(mark)
	if err != nil {
		return fmt.Errorf("failed to encode short mark: %w", err)
	}
	if err := s.putIndexed(ctx, shortSeqKey,
		fmt.Sprintf(shortMarkKeyTpl, mark.Key()),
		fmt.Sprintf(shortIndexTpl, mark.Roll),
		doc,
	); err != nil {
		return store.Unavailable("save short mark "+mark.Key(), err)
	}
	return nil
}

func (s *RedisStore) ListShortMarks(ctx context.Context, roll, section string) ([]models.ShortMark, error) {
	docs, err := s.listIndexed(ctx, fmt.Sprintf(shortIndexTpl, roll))
	if err != nil {
		return nil, store.Unavailable("list short marks", err)
	}

	marks := make([]models.ShortMark, 0, len(docs))
	for _, doc := range docs {
		var m models.ShortMark
		if err := json.Unmarshal(doc, &m); err != nil {
			return nil, fmt.Errorf("failed to decode short mark of %s: %w", roll, err)
		}
		if m.Section == section {
			marks = append(marks, m)
		}
	}
	return marks, nil
}

// putIndexed replaces the document and moves its key to the end of the index.
func (s *RedisStore) putIndexed(ctx context.Context, seqKey, docKey, indexKey string, doc []byte) error {
	seq, err := s.redis.Incr(ctx, seqKey).Result()
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, docKey, doc, 0)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(seq), Member: docKey})
		return nil
	})
	return err
}

func (s *RedisStore) listIndexed(ctx context.Context, indexKey string) ([][]byte, error) {
	keys, err := s.redis.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	docs, err := s.fetch(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := docs[:0]
	for _, doc := range docs {
		if doc != nil {
			out = append(out, doc)
		}
	}
	return out, nil
}

// fetch returns the documents at keys, nil where a key holds nothing.
func (s *RedisStore) fetch(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	docs := make([][]byte, len(values))
	for i, v := range values {
		if str, ok := v.(string); ok {
			docs[i] = []byte(str)
		}
	}
	return docs, nil
}
