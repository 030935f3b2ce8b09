package model

// List filters. Every field is optional; set fields are combined with AND.

type UserFilter struct {
	UserType *string
	Username *string
}

type TopicFilter struct {
	SubjectID *int64
}

type ExamFilter struct {
	IsActive *bool
	Board    *string
	Level    *string
}

type ExamSubjectFilter struct {
	ExamID    *int64
	SubjectID *int64
}

type QuestionFilter struct {
	ExamID     *int64
	SubjectID  *int64
	TopicID    *int64
	Difficulty *string
}

type TranslationFilter struct {
	QuestionID *int64
	Language   *string
}

type QuestionPoolFilter struct {
	QuestionID *int64
	ExamID     *int64
	SubjectID  *int64
	TopicID    *int64
	Difficulty *string
}

type TestFilter struct {
	TestID    *int64
	ExamID    *int64
	SubjectID *int64
	TopicID   *int64
	IsLive    *bool
}

type TestQuestionFilter struct {
	TestID     *int64
	QuestionID *int64
}

type TestAttemptFilter struct {
	TestID *int64
	UserID *int64
}

type AttemptAnswerFilter struct {
	AttemptID  *int64
	QuestionID *int64
}

type UserQuestionLogFilter struct {
	UserID     *int64
	QuestionID *int64
}
