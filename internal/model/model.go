// Package model holds the persisted entities, their input schemas and the
// typed list filters shared by the store and the services.
package model

import "time"

const (
	DifficultyEasy   = "EASY"
	DifficultyMedium = "MEDIUM"
	DifficultyHard   = "HARD"
)

const (
	UserTypeStudent = "STUDENT"
	UserTypeTeacher = "TEACHER"
	UserTypeAdmin   = "ADMIN"
)

// DefaultLanguage is the translation embedded when a test is listed with its questions.
const DefaultLanguage = "en"

type User struct {
	ID                int64     `db:"id" json:"id"`
	Username          string    `db:"username" json:"username"`
	PasswordHash      string    `db:"password_hash" json:"-"`
	Email             string    `db:"email" json:"email"`
	Phone             *string   `db:"phone" json:"phone"`
	PreferredLanguage *string   `db:"preferred_language" json:"preferredLanguage"`
	Board             *string   `db:"board" json:"board"`
	UserType          string    `db:"user_type" json:"userType"`
	IsActive          bool      `db:"is_active" json:"isActive"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

type Subject struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type Topic struct {
	ID        int64     `db:"id" json:"id"`
	SubjectID int64     `db:"subject_id" json:"subjectId"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type Exam struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Board     *string   `db:"board" json:"board"`
	Level     *string   `db:"level" json:"level"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type ExamSubject struct {
	ID        int64     `db:"id" json:"id"`
	ExamID    int64     `db:"exam_id" json:"examId"`
	SubjectID int64     `db:"subject_id" json:"subjectId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type Test struct {
	ID              int64     `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	ExamID          *int64    `db:"exam_id" json:"examId"`
	SubjectID       *int64    `db:"subject_id" json:"subjectId"`
	TopicID         *int64    `db:"topic_id" json:"topicId"`
	DurationMinutes int       `db:"duration_minutes" json:"durationMinutes"`
	IsLive          bool      `db:"is_live" json:"isLive"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

type Question struct {
	ID         int64     `db:"id" json:"id"`
	ExamID     *int64    `db:"exam_id" json:"examId"`
	SubjectID  int64     `db:"subject_id" json:"subjectId"`
	TopicID    int64     `db:"topic_id" json:"topicId"`
	Difficulty string    `db:"difficulty" json:"difficulty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

type QuestionTranslation struct {
	ID            int64     `db:"id" json:"id"`
	QuestionID    int64     `db:"question_id" json:"questionId"`
	Language      string    `db:"language" json:"language"`
	QuestionText  string    `db:"question_text" json:"questionText"`
	OptionA       string    `db:"option_a" json:"optionA"`
	OptionB       string    `db:"option_b" json:"optionB"`
	OptionC       string    `db:"option_c" json:"optionC"`
	OptionD       string    `db:"option_d" json:"optionD"`
	CorrectOption string    `db:"correct_option" json:"correctOption"`
	Explanation   *string   `db:"explanation" json:"explanation"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// QuestionDetail is a question with its translations, as returned by reads.
type QuestionDetail struct {
	Question
	Translations []QuestionTranslation `json:"translations"`
}

type TestQuestion struct {
	ID         int64     `db:"id" json:"id"`
	TestID     int64     `db:"test_id" json:"testId"`
	QuestionID int64     `db:"question_id" json:"questionId"`
	Position   int       `db:"position" json:"position"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

type TestAttempt struct {
	ID          int64      `db:"id" json:"id"`
	TestID      int64      `db:"test_id" json:"testId"`
	UserID      int64      `db:"user_id" json:"userId"`
	StartedAt   time.Time  `db:"started_at" json:"startedAt"`
	SubmittedAt *time.Time `db:"submitted_at" json:"submittedAt"`
	Score       *float64   `db:"score" json:"score"`
}

type AttemptAnswer struct {
	ID             int64     `db:"id" json:"id"`
	AttemptID      int64     `db:"attempt_id" json:"attemptId"`
	QuestionID     int64     `db:"question_id" json:"questionId"`
	SelectedOption *string   `db:"selected_option" json:"selectedOption"`
	IsCorrect      *bool     `db:"is_correct" json:"isCorrect"`
	AnsweredAt     time.Time `db:"answered_at" json:"answeredAt"`
}

type UserQuestionLog struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"userId"`
	QuestionID int64     `db:"question_id" json:"questionId"`
	SeenAt     time.Time `db:"seen_at" json:"seenAt"`
}

type QuestionPoolEntry struct {
	ID         int64     `db:"id" json:"id"`
	QuestionID int64     `db:"question_id" json:"questionId"`
	ExamID     *int64    `db:"exam_id" json:"examId"`
	SubjectID  *int64    `db:"subject_id" json:"subjectId"`
	TopicID    *int64    `db:"topic_id" json:"topicId"`
	Difficulty *string   `db:"difficulty" json:"difficulty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// TestSummary aggregates the attempts recorded against one test.
type TestSummary struct {
	TestID       int64    `db:"test_id" json:"testId"`
	Participants int      `db:"participants" json:"participants"`
	Attempts     int      `db:"attempts" json:"attempts"`
	Submitted    int      `db:"submitted" json:"submitted"`
	AverageScore *float64 `db:"average_score" json:"averageScore"`
	HighestScore *float64 `db:"highest_score" json:"highestScore"`
	LowestScore  *float64 `db:"lowest_score" json:"lowestScore"`
}
