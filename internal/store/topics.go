package store

import (
	"context"
	"fmt"

	"examprep/internal/model"
)

const topicColumns = `id, subject_id, name, created_at, updated_at`

func (s *Store) CreateTopic(ctx context.Context, subjectID int64, name string) (*model.Topic, error) {
	ts := now()
	id, err := s.insert(ctx, `INSERT INTO topics (subject_id, name, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING id`,
		subjectID, name, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("insert topic: %w", err)
	}
	return s.FindTopic(ctx, id)
}

func (s *Store) FindTopic(ctx context.Context, id int64) (*model.Topic, error) {
	var out model.Topic
	if err := s.get(ctx, &out, `SELECT `+topicColumns+` FROM topics WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindTopicInSubject only matches a topic that belongs to subjectID.
func (s *Store) FindTopicInSubject(ctx context.Context, topicID, subjectID int64) (*model.Topic, error) {
	var out model.Topic
	if err := s.get(ctx, &out, `SELECT `+topicColumns+` FROM topics WHERE id = ? AND subject_id = ?`, topicID, subjectID); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListTopics(ctx context.Context, f model.TopicFilter) ([]model.Topic, error) {
	var w where
	if f.SubjectID != nil {
		w.add("subject_id = ?", *f.SubjectID)
	}
	items := []model.Topic{}
	if err := s.selectAll(ctx, &items, `SELECT `+topicColumns+` FROM topics`+w.sql()+` ORDER BY subject_id, name, id`, w.args...); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return items, nil
}

func (s *Store) UpdateTopic(ctx context.Context, t model.Topic) (*model.Topic, error) {
	if err := s.execOne(ctx, `UPDATE topics SET subject_id = ?, name = ?, updated_at = ? WHERE id = ?`,
		t.SubjectID, t.Name, now(), t.ID); err != nil {
		return nil, err
	}
	return s.FindTopic(ctx, t.ID)
}

func (s *Store) DeleteTopic(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM topics WHERE id = ?`, id)
}

func (s *Store) CountTopicDependents(ctx context.Context, id int64) (int, error) {
	var n int
	err := s.get(ctx, &n, `
		SELECT
			(SELECT COUNT(*) FROM questions WHERE topic_id = ?) +
			(SELECT COUNT(*) FROM tests WHERE topic_id = ?)`,
		id, id,
	)
	if err != nil {
		return 0, fmt.Errorf("count topic dependents: %w", err)
	}
	return n, nil
}
