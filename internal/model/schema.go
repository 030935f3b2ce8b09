package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Input schemas. Each one is checked by validation.Struct, which calls
// Normalize first so defaults and trimming are applied before the rules run.

type UserInput struct {
	Username          string  `json:"username" validate:"required,min=3,max=100"`
	Password          string  `json:"password" validate:"required,min=6,max=100"`
	Email             string  `json:"email" validate:"required,email"`
	Phone             *string `json:"phone"`
	PreferredLanguage *string `json:"preferredLanguage"`
	Board             *string `json:"board"`
	UserType          string  `json:"userType" validate:"oneof=STUDENT TEACHER ADMIN"`
	IsActive          *bool   `json:"isActive"`
}

func (in *UserInput) Normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = trimOptional(in.Phone)
	in.PreferredLanguage = trimOptional(in.PreferredLanguage)
	in.Board = trimOptional(in.Board)
	in.UserType = strings.ToUpper(strings.TrimSpace(in.UserType))
	if in.UserType == "" {
		in.UserType = UserTypeStudent
	}
	if in.IsActive == nil {
		in.IsActive = boolPtr(true)
	}
}

type UpdateUserInput struct {
	Username          *string `json:"username" validate:"omitempty,min=3,max=100"`
	Password          *string `json:"password" validate:"omitempty,min=6,max=100"`
	Email             *string `json:"email" validate:"omitempty,email"`
	Phone             *string `json:"phone"`
	PreferredLanguage *string `json:"preferredLanguage"`
	Board             *string `json:"board"`
}

func (in *UpdateUserInput) Normalize() {
	if in.Username != nil {
		v := strings.TrimSpace(*in.Username)
		in.Username = &v
	}
	if in.Email != nil {
		v := strings.TrimSpace(*in.Email)
		in.Email = &v
	}
	in.Phone = trimOptional(in.Phone)
	in.PreferredLanguage = trimOptional(in.PreferredLanguage)
	in.Board = trimOptional(in.Board)
}

type UserRoleInput struct {
	UserType string `json:"userType" validate:"required,oneof=STUDENT TEACHER ADMIN"`
}

func (in *UserRoleInput) Normalize() {
	in.UserType = strings.ToUpper(strings.TrimSpace(in.UserType))
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (in *LoginInput) Normalize() {
	in.Username = strings.TrimSpace(in.Username)
}

type SubjectInput struct {
	Name string `json:"name" validate:"required,max=200"`
}

func (in *SubjectInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
}

type TopicInput struct {
	SubjectID int64  `json:"subjectId" validate:"required,gt=0"`
	Name      string `json:"name" validate:"required,max=200"`
}

func (in *TopicInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
}

type ExamInput struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Board    *string `json:"board"`
	Level    *string `json:"level"`
	IsActive *bool   `json:"isActive"`
}

func (in *ExamInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Board = trimOptional(in.Board)
	in.Level = trimOptional(in.Level)
	if in.IsActive == nil {
		in.IsActive = boolPtr(true)
	}
}

type ExamSubjectInput struct {
	ExamID    int64 `json:"examId" validate:"required,gt=0"`
	SubjectID int64 `json:"subjectId" validate:"required,gt=0"`
}

type TestInput struct {
	Name            string `json:"name" validate:"required,max=200"`
	ExamID          *int64 `json:"examId" validate:"omitempty,gt=0"`
	SubjectID       *int64 `json:"subjectId" validate:"omitempty,gt=0"`
	TopicID         *int64 `json:"topicId" validate:"omitempty,gt=0"`
	DurationMinutes int    `json:"durationMinutes" validate:"required,gt=0"`
	IsLive          *bool  `json:"isLive"`
}

func (in *TestInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	if in.IsLive == nil {
		in.IsLive = boolPtr(false)
	}
}

// QuestionInput is the question half of the aggregate payload and the whole
// body of a question update.
type QuestionInput struct {
	ExamID     *int64 `json:"examId" validate:"omitempty,gt=0"`
	SubjectID  int64  `json:"subjectId" validate:"required,gt=0"`
	TopicID    int64  `json:"topicId" validate:"required,gt=0"`
	Difficulty string `json:"difficulty" validate:"required,oneof=EASY MEDIUM HARD"`
}

func (in *QuestionInput) Normalize() {
	in.Difficulty = strings.ToUpper(strings.TrimSpace(in.Difficulty))
}

// CreateQuestionInput carries the translations undecoded so that each one can
// be validated, persisted and echoed back on its own.
type CreateQuestionInput struct {
	QuestionInput
	Translations []json.RawMessage `json:"translations" validate:"required"`
}

type TranslationInput struct {
	QuestionID    int64   `json:"questionId" validate:"required,gt=0"`
	Language      string  `json:"language" validate:"required,max=20"`
	QuestionText  string  `json:"questionText" validate:"required"`
	OptionA       string  `json:"optionA" validate:"required"`
	OptionB       string  `json:"optionB" validate:"required"`
	OptionC       string  `json:"optionC" validate:"required"`
	OptionD       string  `json:"optionD" validate:"required"`
	CorrectOption string  `json:"correctOption" validate:"required,oneof=A B C D"`
	Explanation   *string `json:"explanation"`
}

func (in *TranslationInput) Normalize() {
	in.Language = strings.TrimSpace(in.Language)
	in.QuestionText = strings.TrimSpace(in.QuestionText)
	in.OptionA = strings.TrimSpace(in.OptionA)
	in.OptionB = strings.TrimSpace(in.OptionB)
	in.OptionC = strings.TrimSpace(in.OptionC)
	in.OptionD = strings.TrimSpace(in.OptionD)
	in.CorrectOption = strings.ToUpper(strings.TrimSpace(in.CorrectOption))
	in.Explanation = trimOptional(in.Explanation)
}

type TestQuestionInput struct {
	TestID     int64 `json:"testId" validate:"required,gt=0"`
	QuestionID int64 `json:"questionId" validate:"required,gt=0"`
	Position   int   `json:"position" validate:"required,gt=0"`
}

type TestAttemptInput struct {
	TestID      int64      `json:"testId" validate:"required,gt=0"`
	UserID      int64      `json:"userId" validate:"required,gt=0"`
	StartedAt   *time.Time `json:"startedAt"`
	SubmittedAt *time.Time `json:"submittedAt"`
	Score       *float64   `json:"score" validate:"omitempty,gte=0"`
}

func (in *TestAttemptInput) Normalize() {
	if in.StartedAt == nil {
		now := time.Now().UTC()
		in.StartedAt = &now
	}
}

type UpdateTestAttemptInput struct {
	SubmittedAt *time.Time `json:"submittedAt"`
	Score       *float64   `json:"score" validate:"omitempty,gte=0"`
}

func (in *UpdateTestAttemptInput) Normalize() {
	if in.SubmittedAt == nil {
		now := time.Now().UTC()
		in.SubmittedAt = &now
	}
}

type AttemptAnswerInput struct {
	AttemptID      int64   `json:"attemptId" validate:"required,gt=0"`
	QuestionID     int64   `json:"questionId" validate:"required,gt=0"`
	SelectedOption *string `json:"selectedOption" validate:"omitempty,oneof=A B C D"`
	IsCorrect      *bool   `json:"isCorrect"`
}

func (in *AttemptAnswerInput) Normalize() {
	in.SelectedOption = upperOptional(in.SelectedOption)
}

type UpdateAttemptAnswerInput struct {
	SelectedOption *string `json:"selectedOption" validate:"omitempty,oneof=A B C D"`
	IsCorrect      *bool   `json:"isCorrect"`
}

func (in *UpdateAttemptAnswerInput) Normalize() {
	in.SelectedOption = upperOptional(in.SelectedOption)
}

type UserQuestionLogInput struct {
	UserID     int64      `json:"userId" validate:"required,gt=0"`
	QuestionID int64      `json:"questionId" validate:"required,gt=0"`
	SeenAt     *time.Time `json:"seenAt"`
}

func (in *UserQuestionLogInput) Normalize() {
	if in.SeenAt == nil {
		now := time.Now().UTC()
		in.SeenAt = &now
	}
}

type QuestionPoolInput struct {
	QuestionID int64   `json:"questionId" validate:"required,gt=0"`
	ExamID     *int64  `json:"examId" validate:"omitempty,gt=0"`
	SubjectID  *int64  `json:"subjectId" validate:"omitempty,gt=0"`
	TopicID    *int64  `json:"topicId" validate:"omitempty,gt=0"`
	Difficulty *string `json:"difficulty" validate:"omitempty,oneof=EASY MEDIUM HARD"`
}

func (in *QuestionPoolInput) Normalize() {
	in.Difficulty = upperOptional(in.Difficulty)
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func upperOptional(v *string) *string {
	v = trimOptional(v)
	if v == nil {
		return nil
	}
	s := strings.ToUpper(*v)
	return &s
}

func boolPtr(v bool) *bool {
	return &v
}
