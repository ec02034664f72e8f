package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestNewContentDefaults(t *testing.T) {
	quiz, ok := NewContent(TypeQuiz).(*QuizContent)
	require.True(t, ok)
	assert.Equal(t, 70, quiz.PassingScore)
	assert.Equal(t, -1, quiz.AttemptsAllowed)
	assert.NotNil(t, quiz.Questions)
	assert.Empty(t, quiz.Questions)

	reading, ok := NewContent(TypeReading).(*ReadingContent)
	require.True(t, ok)
	assert.Empty(t, reading.Text)
}

func TestNewContentCoversEveryKind(t *testing.T) {
	kinds := []ComponentType{TypeBanner, TypeVideo, TypeImage, TypeReading, TypeDocument, TypeAudio, TypeQuiz}
	for _, kind := range kinds {
		content := NewContent(kind)
		assert.Equal(t, kind, content.Type())
	}
}

func TestNewContentPanicsOnUnknownKind(t *testing.T) {
	assert.Panics(t, func() { NewContent(ComponentType("poll")) })
}

func TestValidComponentType(t *testing.T) {
	assert.True(t, ValidComponentType(TypeBanner))
	assert.True(t, ValidComponentType(TypeQuiz))
	assert.False(t, ValidComponentType(ComponentType("poll")))
	assert.False(t, ValidComponentType(ComponentType("")))
}

func TestDecodeContentJSONRejectsForeignFields(t *testing.T) {
	// A video payload cannot smuggle reading fields.
	_, err := DecodeContentJSON(TypeVideo, []byte(`{"src":"v.mp4","text":"<p>x</p>"}`))
	assert.ErrorIs(t, err, ErrInvalidContentShape)

	_, err = DecodeContentJSON(TypeReading, []byte(`{"text":"<p>x</p>","src":"v.mp4"}`))
	assert.ErrorIs(t, err, ErrInvalidContentShape)
}

func TestDecodeContentJSONUnknownType(t *testing.T) {
	_, err := DecodeContentJSON(ComponentType("poll"), []byte(`{}`))
	assert.ErrorIs(t, err, ErrInvalidContentShape)
}

func TestDecodeContentJSONBanner(t *testing.T) {
	content, err := DecodeContentJSON(TypeBanner, []byte(`{"title":"Welcome","img":"hero.png","subtitle":"s","description":"d"}`))
	require.NoError(t, err)

	banner, ok := content.(*BannerContent)
	require.True(t, ok)
	assert.Equal(t, "Welcome", banner.Title)
	assert.Equal(t, "hero.png", banner.Img)
}

func TestContentBSONRoundTrip(t *testing.T) {
	original := &QuizContent{
		PassingScore:    80,
		TimeLimit:       30,
		AttemptsAllowed: 2,
		Questions: []QuizQuestion{
			{ID: "q1", Type: QuestionTrueFalse, Question: "Go is compiled", CorrectAnswer: "true", Points: 1},
		},
	}

	raw, err := bson.Marshal(original)
	require.NoError(t, err)

	decoded, err := DecodeContentBSON(TypeQuiz, raw)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestApplyContentPatchShallowMerge(t *testing.T) {
	banner := &BannerContent{Title: "Old", Img: "old.png", Subtitle: "keep"}

	err := ApplyContentPatch(banner, []byte(`{"title":"New"}`))
	require.NoError(t, err)

	assert.Equal(t, "New", banner.Title)
	assert.Equal(t, "old.png", banner.Img)
	assert.Equal(t, "keep", banner.Subtitle)
}

func TestApplyContentPatchRejectsForeignFields(t *testing.T) {
	reading := &ReadingContent{Text: "<p>keep</p>"}

	err := ApplyContentPatch(reading, []byte(`{"questions":[]}`))
	assert.ErrorIs(t, err, ErrInvalidContentShape)
	assert.Equal(t, "<p>keep</p>", reading.Text)
}

func TestApplyContentPatchQuiz(t *testing.T) {
	quiz := NewContent(TypeQuiz).(*QuizContent)

	err := ApplyContentPatch(quiz, []byte(`{
		"passing_score": 90,
		"questions": [
			{"id":"q1","type":"multiple_choice","question":"Pick","options":["a","b"],"correct_answer":1}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, 90, quiz.PassingScore)
	assert.Equal(t, -1, quiz.AttemptsAllowed) // untouched default
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, "1", quiz.Questions[0].CorrectAnswer)
	assert.Equal(t, 1, quiz.Questions[0].Points)
}

func TestQuizQuestionUnmarshalCoercesNumberAnswer(t *testing.T) {
	var q QuizQuestion
	err := json.Unmarshal([]byte(`{"id":"q","type":"multiple_choice","question":"?","options":["a","b"],"correct_answer":0}`), &q)
	require.NoError(t, err)
	assert.Equal(t, "0", q.CorrectAnswer)
	assert.Equal(t, 1, q.Points)
}

func TestQuizQuestionUnmarshalRejectsNonScalarAnswer(t *testing.T) {
	var q QuizQuestion
	err := json.Unmarshal([]byte(`{"id":"q","type":"short_answer","question":"?","correct_answer":["x"]}`), &q)
	assert.Error(t, err)
}

func TestQuizQuestionValidate(t *testing.T) {
	valid := QuizQuestion{ID: "q", Type: QuestionMultipleChoice, Question: "?", Options: []string{"a", "b"}, CorrectAnswer: "1", Points: 1}
	assert.NoError(t, valid.Validate())

	outOfRange := valid
	outOfRange.CorrectAnswer = "5"
	assert.Error(t, outOfRange.Validate())

	badBool := QuizQuestion{ID: "q", Type: QuestionTrueFalse, Question: "?", CorrectAnswer: "yes", Points: 1}
	assert.Error(t, badBool.Validate())

	emptyShort := QuizQuestion{ID: "q", Type: QuestionShortAnswer, Question: "?", CorrectAnswer: "  ", Points: 1}
	assert.Error(t, emptyShort.Validate())
}

func TestQuizContentComplete(t *testing.T) {
	quiz := NewContent(TypeQuiz).(*QuizContent)
	complete, reasons := quiz.Complete()
	assert.False(t, complete)
	assert.NotEmpty(t, reasons)

	quiz.Questions = []QuizQuestion{
		{ID: "q1", Type: QuestionShortAnswer, Question: "?", CorrectAnswer: "x", Points: 1},
	}
	complete, reasons = quiz.Complete()
	assert.True(t, complete)
	assert.Empty(t, reasons)
}

func TestSetFileReference(t *testing.T) {
	video := &VideoContent{}
	assert.True(t, SetFileReference(video, "videos/v.mp4"))
	assert.Equal(t, "videos/v.mp4", video.Src)

	banner := &BannerContent{}
	assert.True(t, SetFileReference(banner, "img/hero.png"))
	assert.Equal(t, "img/hero.png", banner.Img)

	reading := &ReadingContent{}
	assert.False(t, SetFileReference(reading, "x"))

	quiz := &QuizContent{}
	assert.False(t, SetFileReference(quiz, "x"))
}

func TestBannerComplete(t *testing.T) {
	banner := &BannerContent{}
	complete, reasons := banner.Complete()
	assert.False(t, complete)
	assert.Len(t, reasons, 2)

	banner.Title = "t"
	banner.Img = "i.png"
	complete, reasons = banner.Complete()
	assert.True(t, complete)
	assert.Empty(t, reasons)
}
