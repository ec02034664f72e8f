package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Per-kind patch types. Fields are pointers so a patch only touches what it
// names; a shallow merge over the matching variant. Because each kind has
// its own closed patch struct, a caller cannot inject another kind's fields.

type BannerPatch struct {
	Title       *string `json:"title"`
	Img         *string `json:"img"`
	Subtitle    *string `json:"subtitle"`
	Description *string `json:"description"`
}

type VideoPatch struct {
	Src         *string `json:"src"`
	Caption     *string `json:"caption"`
	Description *string `json:"description"`
}

type ImagePatch struct {
	Src     *string `json:"src"`
	Alt     *string `json:"alt"`
	Caption *string `json:"caption"`
}

type ReadingPatch struct {
	Text *string `json:"text"`
}

type DocumentPatch struct {
	FileURL     *string `json:"file_url"`
	FileName    *string `json:"file_name"`
	Description *string `json:"description"`
}

type AudioPatch struct {
	Src         *string `json:"src"`
	Caption     *string `json:"caption"`
	Description *string `json:"description"`
}

type QuizPatch struct {
	Questions       *[]QuizQuestion `json:"questions"`
	PassingScore    *int            `json:"passing_score"`
	TimeLimit       *int            `json:"time_limit"`
	AttemptsAllowed *int            `json:"attempts_allowed"`
}

func (c *BannerContent) Apply(p BannerPatch) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Img != nil {
		c.Img = *p.Img
	}
	if p.Subtitle != nil {
		c.Subtitle = *p.Subtitle
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
}

func (c *VideoContent) Apply(p VideoPatch) {
	if p.Src != nil {
		c.Src = *p.Src
	}
	if p.Caption != nil {
		c.Caption = *p.Caption
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
}

func (c *ImageContent) Apply(p ImagePatch) {
	if p.Src != nil {
		c.Src = *p.Src
	}
	if p.Alt != nil {
		c.Alt = *p.Alt
	}
	if p.Caption != nil {
		c.Caption = *p.Caption
	}
}

// Apply sets the reading text. The text must already have been through the
// sanitization pipeline; the component service is the only production
// caller and enforces that.
func (c *ReadingContent) Apply(p ReadingPatch) {
	if p.Text != nil {
		c.Text = *p.Text
	}
}

func (c *DocumentContent) Apply(p DocumentPatch) {
	if p.FileURL != nil {
		c.FileURL = *p.FileURL
	}
	if p.FileName != nil {
		c.FileName = *p.FileName
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
}

func (c *AudioContent) Apply(p AudioPatch) {
	if p.Src != nil {
		c.Src = *p.Src
	}
	if p.Caption != nil {
		c.Caption = *p.Caption
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
}

func (c *QuizContent) Apply(p QuizPatch) {
	if p.Questions != nil {
		c.Questions = *p.Questions
	}
	if p.PassingScore != nil {
		c.PassingScore = *p.PassingScore
	}
	if p.TimeLimit != nil {
		c.TimeLimit = *p.TimeLimit
	}
	if p.AttemptsAllowed != nil {
		c.AttemptsAllowed = *p.AttemptsAllowed
	}
}

// ApplyContentPatch decodes raw as the patch type matching c's kind and
// merges it in place. Unknown patch fields are rejected. A Content value
// outside the closed union is a programming error and panics.
func ApplyContentPatch(c Content, raw []byte) error {
	switch v := c.(type) {
	case *BannerContent:
		var p BannerPatch
		if err := strictUnmarshal(raw, &p); err != nil {
			return err
		}
		v.Apply(p)
	case *VideoContent:
		var p VideoPatch
		if err := strictUnmarshal(raw, &p); err != nil {
			return err
		}
		v.Apply(p)
	case *ImageContent:
		var p ImagePatch
		if err := strictUnmarshal(raw, &p); err != nil {
			return err
		}
		v.Apply(p)
	case *ReadingContent:
		var p ReadingPatch
		if err := strictUnmarshal(raw, &p); err != nil {
			return err
		}
		v.Apply(p)
	case *DocumentContent:
		var p DocumentPatch
		if err := strictUnmarshal(raw, &p); err != nil {
			return err
		}
		v.Apply(p)
	case *AudioContent:
		var p AudioPatch
		if err := strictUnmarshal(raw, &p); err != nil {
			return err
		}
		v.Apply(p)
	case *QuizContent:
		var p QuizPatch
		if err := strictUnmarshal(raw, &p); err != nil {
			return err
		}
		v.Apply(p)
	default:
		panic(fmt.Sprintf("domain: content value %T outside the closed union", c))
	}
	return nil
}

func strictUnmarshal(raw []byte, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContentShape, err)
	}
	return nil
}
