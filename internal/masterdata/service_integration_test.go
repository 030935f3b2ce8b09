package masterdata

import (
	"context"
	"testing"

	internaldb "examprep/internal/db"
	"examprep/internal/model"
	"examprep/internal/question"
	"examprep/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	dbConn, err := internaldb.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbConn.Close() })
	st := store.New(dbConn)
	return NewService(st), st
}

func TestSubjectLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	math, err := svc.CreateSubject(ctx, model.SubjectInput{Name: "  Math "})
	require.NoError(t, err)
	assert.Equal(t, "Math", math.Name)

	_, err = svc.CreateSubject(ctx, model.SubjectInput{Name: "math"})
	assert.ErrorIs(t, err, ErrDuplicateName)

	physics, err := svc.CreateSubject(ctx, model.SubjectInput{Name: "Physics"})
	require.NoError(t, err)

	_, err = svc.UpdateSubject(ctx, physics.ID, model.SubjectInput{Name: "Math"})
	assert.ErrorIs(t, err, ErrDuplicateName)

	renamed, err := svc.UpdateSubject(ctx, physics.ID, model.SubjectInput{Name: "Applied Physics"})
	require.NoError(t, err)
	assert.Equal(t, "Applied Physics", renamed.Name)

	items, err := svc.ListSubjects(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.NoError(t, svc.DeleteSubject(ctx, physics.ID))
	_, err = svc.GetSubject(ctx, physics.ID)
	assert.ErrorIs(t, err, ErrSubjectNotFound)
}

func TestDeleteSubjectWithDependents(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	math, err := svc.CreateSubject(ctx, model.SubjectInput{Name: "Math"})
	require.NoError(t, err)
	algebra, err := svc.CreateTopic(ctx, model.TopicInput{SubjectID: math.ID, Name: "Algebra"})
	require.NoError(t, err)

	err = svc.DeleteSubject(ctx, math.ID)
	var dependents *DependentsError
	require.ErrorAs(t, err, &dependents)
	assert.Equal(t, "Cannot delete subject with associated topics, questions, tests, or exams", dependents.Message)

	require.NoError(t, svc.DeleteTopic(ctx, algebra.ID))
	require.NoError(t, svc.DeleteSubject(ctx, math.ID))
}

func TestTopicRequiresSubject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTopic(ctx, model.TopicInput{SubjectID: 42, Name: "Orphan"})
	var refErr *question.RefError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "Subject not found", refErr.Message)

	math, err := svc.CreateSubject(ctx, model.SubjectInput{Name: "Math"})
	require.NoError(t, err)
	topic, err := svc.CreateTopic(ctx, model.TopicInput{SubjectID: math.ID, Name: "Algebra"})
	require.NoError(t, err)

	updated, err := svc.UpdateTopic(ctx, topic.ID, model.TopicInput{Name: "Linear Algebra"})
	require.NoError(t, err)
	assert.Equal(t, math.ID, updated.SubjectID)
	assert.Equal(t, "Linear Algebra", updated.Name)

	listed, err := svc.ListTopics(ctx, model.TopicFilter{SubjectID: &math.ID})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestTopicDeleteBlockedByQuestion(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	math, err := svc.CreateSubject(ctx, model.SubjectInput{Name: "Math"})
	require.NoError(t, err)
	algebra, err := svc.CreateTopic(ctx, model.TopicInput{SubjectID: math.ID, Name: "Algebra"})
	require.NoError(t, err)
	_, err = st.CreateQuestion(ctx, model.Question{SubjectID: math.ID, TopicID: algebra.ID, Difficulty: model.DifficultyEasy})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteTopic(ctx, algebra.ID), ErrHasDependents)
}

func TestExamAndLinks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	board := "CBSE"
	exam, err := svc.CreateExam(ctx, model.ExamInput{Name: "Boards", Board: &board})
	require.NoError(t, err)
	assert.True(t, exam.IsActive)

	inactive := false
	exam, err = svc.UpdateExam(ctx, exam.ID, model.ExamInput{Name: "Boards 2025", Board: &board, IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, exam.IsActive)

	active := true
	listed, err := svc.ListExams(ctx, model.ExamFilter{IsActive: &active})
	require.NoError(t, err)
	assert.Empty(t, listed)

	math, err := svc.CreateSubject(ctx, model.SubjectInput{Name: "Math"})
	require.NoError(t, err)

	_, err = svc.CreateExamSubject(ctx, model.ExamSubjectInput{ExamID: exam.ID, SubjectID: 999})
	var refErr *question.RefError
	require.ErrorAs(t, err, &refErr)

	link, err := svc.CreateExamSubject(ctx, model.ExamSubjectInput{ExamID: exam.ID, SubjectID: math.ID})
	require.NoError(t, err)
	_, err = svc.CreateExamSubject(ctx, model.ExamSubjectInput{ExamID: exam.ID, SubjectID: math.ID})
	assert.ErrorIs(t, err, ErrDuplicateLink)

	assert.ErrorIs(t, svc.DeleteExam(ctx, exam.ID), ErrHasDependents)

	require.NoError(t, svc.DeleteExamSubject(ctx, link.ID))
	assert.ErrorIs(t, svc.DeleteExamSubject(ctx, link.ID), ErrExamSubjectNotFound)
	require.NoError(t, svc.DeleteExam(ctx, exam.ID))
}
