package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// ComponentType enumerates the authorable content kinds.
type ComponentType string

const (
	TypeBanner   ComponentType = "banner"
	TypeVideo    ComponentType = "video"
	TypeImage    ComponentType = "image"
	TypeReading  ComponentType = "reading"
	TypeDocument ComponentType = "document"
	TypeAudio    ComponentType = "audio"
	TypeQuiz     ComponentType = "quiz"
)

// ErrInvalidContentShape is returned when a content payload does not match
// the shape dictated by its component type.
var ErrInvalidContentShape = errors.New("content does not match the component type")

// Content is the closed union of per-kind content shapes. Each component
// type owns exactly one variant struct; a component can never carry another
// kind's fields.
type Content interface {
	Type() ComponentType
	// Complete reports whether the content is ready to publish, with
	// human-readable reasons when it is not. It never fails.
	Complete() (bool, []string)
	sealedContent()
}

// ValidComponentType reports whether t names one of the seven kinds.
func ValidComponentType(t ComponentType) bool {
	switch t {
	case TypeBanner, TypeVideo, TypeImage, TypeReading, TypeDocument, TypeAudio, TypeQuiz:
		return true
	}
	return false
}

// --- Variant structs ---

// BannerContent is the hero block at the top of a module page.
type BannerContent struct {
	Title       string `bson:"title" json:"title"`
	Img         string `bson:"img" json:"img"`
	Subtitle    string `bson:"subtitle" json:"subtitle"`
	Description string `bson:"description" json:"description"`
}

type VideoContent struct {
	Src         string `bson:"src" json:"src"`
	Caption     string `bson:"caption" json:"caption"`
	Description string `bson:"description" json:"description"`
}

type ImageContent struct {
	Src     string `bson:"src" json:"src"`
	Alt     string `bson:"alt" json:"alt"`
	Caption string `bson:"caption" json:"caption"`
}

// ReadingContent holds author-supplied rich text. Text is always stored
// pre-sanitized; renderers may inject it verbatim.
type ReadingContent struct {
	Text      string `bson:"text" json:"text"`
	WordCount int    `bson:"wordCount" json:"word_count"`
}

type DocumentContent struct {
	FileURL     string `bson:"fileUrl" json:"file_url"`
	FileName    string `bson:"fileName" json:"file_name"`
	Description string `bson:"description" json:"description"`
}

type AudioContent struct {
	Src         string `bson:"src" json:"src"`
	Caption     string `bson:"caption" json:"caption"`
	Description string `bson:"description" json:"description"`
}

// QuizContent embeds the quiz definition scored by the quiz engine.
type QuizContent struct {
	Questions       []QuizQuestion `bson:"questions" json:"questions"`
	PassingScore    int            `bson:"passingScore" json:"passing_score"`       // percentage 0-100
	TimeLimit       int            `bson:"timeLimit" json:"time_limit"`             // minutes, 0 = none
	AttemptsAllowed int            `bson:"attemptsAllowed" json:"attempts_allowed"` // -1 = unlimited
}

func (BannerContent) Type() ComponentType   { return TypeBanner }
func (VideoContent) Type() ComponentType    { return TypeVideo }
func (ImageContent) Type() ComponentType    { return TypeImage }
func (ReadingContent) Type() ComponentType  { return TypeReading }
func (DocumentContent) Type() ComponentType { return TypeDocument }
func (AudioContent) Type() ComponentType    { return TypeAudio }
func (QuizContent) Type() ComponentType     { return TypeQuiz }

func (*BannerContent) sealedContent()   {}
func (*VideoContent) sealedContent()    {}
func (*ImageContent) sealedContent()    {}
func (*ReadingContent) sealedContent()  {}
func (*DocumentContent) sealedContent() {}
func (*AudioContent) sealedContent()    {}
func (*QuizContent) sealedContent()     {}

func (c *BannerContent) Complete() (bool, []string) {
	var reasons []string
	if c.Img == "" {
		reasons = append(reasons, "banner image is missing")
	}
	if c.Title == "" {
		reasons = append(reasons, "banner title is empty")
	}
	return len(reasons) == 0, reasons
}

func (c *VideoContent) Complete() (bool, []string) {
	if c.Src == "" {
		return false, []string{"video file is missing"}
	}
	return true, nil
}

func (c *ImageContent) Complete() (bool, []string) {
	if c.Src == "" {
		return false, []string{"image file is missing"}
	}
	return true, nil
}

func (c *ReadingContent) Complete() (bool, []string) {
	if c.Text == "" {
		return false, []string{"reading text is empty"}
	}
	return true, nil
}

func (c *DocumentContent) Complete() (bool, []string) {
	if c.FileURL == "" {
		return false, []string{"document file is missing"}
	}
	return true, nil
}

func (c *AudioContent) Complete() (bool, []string) {
	if c.Src == "" {
		return false, []string{"audio file is missing"}
	}
	return true, nil
}

func (c *QuizContent) Complete() (bool, []string) {
	var reasons []string
	if len(c.Questions) == 0 {
		reasons = append(reasons, "quiz has no questions")
	}
	for i := range c.Questions {
		if err := c.Questions[i].Validate(); err != nil {
			reasons = append(reasons, fmt.Sprintf("question %d: %v", i+1, err))
		}
	}
	if c.PassingScore < 0 || c.PassingScore > 100 {
		reasons = append(reasons, "passing score must be between 0 and 100")
	}
	return len(reasons) == 0, reasons
}

// NewContent returns the minimal valid content for a kind, as created when
// an author first picks a component type. An unknown kind is a programming
// error; callers validate with ValidComponentType at the boundary.
func NewContent(t ComponentType) Content {
	switch t {
	case TypeBanner:
		return &BannerContent{}
	case TypeVideo:
		return &VideoContent{}
	case TypeImage:
		return &ImageContent{}
	case TypeReading:
		return &ReadingContent{}
	case TypeDocument:
		return &DocumentContent{}
	case TypeAudio:
		return &AudioContent{}
	case TypeQuiz:
		return &QuizContent{
			Questions:       []QuizQuestion{},
			PassingScore:    70,
			AttemptsAllowed: -1,
		}
	default:
		panic(fmt.Sprintf("domain: unknown component type %q", t))
	}
}

// DecodeContentJSON parses a JSON content payload into the variant for t.
// Unknown fields are rejected so one kind's payload cannot smuggle another
// kind's fields through the API.
func DecodeContentJSON(t ComponentType, data []byte) (Content, error) {
	if !ValidComponentType(t) {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidContentShape, t)
	}
	content := NewContent(t)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContentShape, err)
	}
	return content, nil
}

// DecodeContentBSON parses a stored content document into the variant for t.
// Used by the Mongo repository when loading components.
func DecodeContentBSON(t ComponentType, raw bson.Raw) (Content, error) {
	if !ValidComponentType(t) {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidContentShape, t)
	}
	content := NewContent(t)
	if err := bson.Unmarshal(raw, content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContentShape, err)
	}
	return content, nil
}

// SetFileReference points a file-bearing variant at a newly uploaded file.
// Returns false for kinds that do not carry a file reference; callers must
// run the upload through the file policy validator first.
func SetFileReference(c Content, url string) bool {
	switch v := c.(type) {
	case *BannerContent:
		v.Img = url
	case *VideoContent:
		v.Src = url
	case *ImageContent:
		v.Src = url
	case *DocumentContent:
		v.FileURL = url
	case *AudioContent:
		v.Src = url
	default:
		return false
	}
	return true
}
