package question

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"examprep/internal/model"
	"examprep/internal/store"
)

// fakeStore keeps every entity in maps and mimics the unique constraints and
// cascades of the relational schema.
type fakeStore struct {
	nextID       int64
	subjects     map[int64]model.Subject
	topics       map[int64]model.Topic
	exams        map[int64]model.Exam
	questions    map[int64]model.Question
	translations map[int64]model.QuestionTranslation
	pool         map[int64]model.QuestionPoolEntry

	failTranslationInsert error
	failQuestionDelete    error
	deletedQuestions      []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		subjects:     map[int64]model.Subject{},
		topics:       map[int64]model.Topic{},
		exams:        map[int64]model.Exam{},
		questions:    map[int64]model.Question{},
		translations: map[int64]model.QuestionTranslation{},
		pool:         map[int64]model.QuestionPoolEntry{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addSubject(name string) int64 {
	id := f.id()
	f.subjects[id] = model.Subject{ID: id, Name: name}
	return id
}

func (f *fakeStore) addTopic(subjectID int64, name string) int64 {
	id := f.id()
	f.topics[id] = model.Topic{ID: id, SubjectID: subjectID, Name: name}
	return id
}

func (f *fakeStore) addExam(name string) int64 {
	id := f.id()
	f.exams[id] = model.Exam{ID: id, Name: name, IsActive: true}
	return id
}

func (f *fakeStore) FindSubject(_ context.Context, id int64) (*model.Subject, error) {
	s, ok := f.subjects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (f *fakeStore) FindTopic(_ context.Context, id int64) (*model.Topic, error) {
	t, ok := f.topics[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (f *fakeStore) FindTopicInSubject(_ context.Context, topicID, subjectID int64) (*model.Topic, error) {
	t, ok := f.topics[topicID]
	if !ok || t.SubjectID != subjectID {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (f *fakeStore) FindExam(_ context.Context, id int64) (*model.Exam, error) {
	e, ok := f.exams[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (f *fakeStore) CreateQuestion(_ context.Context, q model.Question) (*model.Question, error) {
	q.ID = f.id()
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	f.questions[q.ID] = q
	return &q, nil
}

func (f *fakeStore) FindQuestion(_ context.Context, id int64) (*model.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &q, nil
}

func (f *fakeStore) ListQuestions(_ context.Context, flt model.QuestionFilter) ([]model.Question, error) {
	out := []model.Question{}
	for _, q := range f.questions {
		if flt.SubjectID != nil && q.SubjectID != *flt.SubjectID {
			continue
		}
		if flt.TopicID != nil && q.TopicID != *flt.TopicID {
			continue
		}
		if flt.Difficulty != nil && q.Difficulty != *flt.Difficulty {
			continue
		}
		if flt.ExamID != nil && (q.ExamID == nil || *q.ExamID != *flt.ExamID) {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateQuestion(_ context.Context, q model.Question) (*model.Question, error) {
	if _, ok := f.questions[q.ID]; !ok {
		return nil, store.ErrNotFound
	}
	f.questions[q.ID] = q
	return &q, nil
}

func (f *fakeStore) DeleteQuestion(_ context.Context, id int64) error {
	if f.failQuestionDelete != nil {
		return f.failQuestionDelete
	}
	if _, ok := f.questions[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.questions, id)
	for tid, t := range f.translations {
		if t.QuestionID == id {
			delete(f.translations, tid)
		}
	}
	f.deletedQuestions = append(f.deletedQuestions, id)
	return nil
}

func (f *fakeStore) CreateTranslation(_ context.Context, t model.QuestionTranslation) (*model.QuestionTranslation, error) {
	if f.failTranslationInsert != nil {
		return nil, f.failTranslationInsert
	}
	if _, ok := f.questions[t.QuestionID]; !ok {
		return nil, store.ErrInvalidReference
	}
	for _, existing := range f.translations {
		if existing.QuestionID == t.QuestionID && existing.Language == t.Language {
			return nil, fmt.Errorf("%w: duplicate", store.ErrConflict)
		}
	}
	t.ID = f.id()
	f.translations[t.ID] = t
	return &t, nil
}

func (f *fakeStore) FindTranslation(_ context.Context, id int64) (*model.QuestionTranslation, error) {
	t, ok := f.translations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (f *fakeStore) FindTranslationByLanguage(_ context.Context, questionID int64, language string) (*model.QuestionTranslation, error) {
	for _, t := range f.translations {
		if t.QuestionID == questionID && t.Language == language {
			return &t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListTranslations(_ context.Context, flt model.TranslationFilter) ([]model.QuestionTranslation, error) {
	out := []model.QuestionTranslation{}
	for _, t := range f.translations {
		if flt.QuestionID != nil && t.QuestionID != *flt.QuestionID {
			continue
		}
		if flt.Language != nil && t.Language != *flt.Language {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListTranslationsByQuestions(ctx context.Context, ids []int64, language string) ([]model.QuestionTranslation, error) {
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	all, _ := f.ListTranslations(ctx, model.TranslationFilter{})
	out := []model.QuestionTranslation{}
	for _, t := range all {
		if want[t.QuestionID] && (language == "" || t.Language == language) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateTranslation(_ context.Context, t model.QuestionTranslation) (*model.QuestionTranslation, error) {
	if _, ok := f.translations[t.ID]; !ok {
		return nil, store.ErrNotFound
	}
	f.translations[t.ID] = t
	return &t, nil
}

func (f *fakeStore) DeleteTranslation(_ context.Context, id int64) error {
	if _, ok := f.translations[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.translations, id)
	return nil
}

func (f *fakeStore) CreatePoolEntry(_ context.Context, p model.QuestionPoolEntry) (*model.QuestionPoolEntry, error) {
	p.ID = f.id()
	f.pool[p.ID] = p
	return &p, nil
}

func (f *fakeStore) FindPoolEntry(_ context.Context, id int64) (*model.QuestionPoolEntry, error) {
	p, ok := f.pool[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (f *fakeStore) ListPoolEntries(_ context.Context, flt model.QuestionPoolFilter) ([]model.QuestionPoolEntry, error) {
	out := []model.QuestionPoolEntry{}
	for _, p := range f.pool {
		if flt.QuestionID != nil && p.QuestionID != *flt.QuestionID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) DeletePoolEntry(_ context.Context, id int64) error {
	if _, ok := f.pool[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.pool, id)
	return nil
}

var errBoom = errors.New("boom")
