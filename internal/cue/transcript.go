package cue

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
)

// MediaType classifies what a transcript describes.
type MediaType string

const (
	MusicVideo        MediaType = "music video"
	TelevisionEpisode MediaType = "television episode"
	Movie             MediaType = "movie"
	Other             MediaType = "other"
)

// Valid reports whether t is a known media type.
func (t MediaType) Valid() bool {
	switch t {
	case MusicVideo, TelevisionEpisode, Movie, Other:
		return true
	}
	return false
}

// Source locates the video a transcript belongs to.
type Source struct {
	URL    string `json:"url" yaml:"url" validate:"omitempty,url"`
	Domain string `json:"domain" yaml:"domain" validate:"required,excludesall=-"`
	ID     string `json:"id" yaml:"id" validate:"required"`
}

// Metadata describes the video for listings and export file names.
type Metadata struct {
	Type        MediaType `json:"type" yaml:"type" validate:"mediatype"`
	Title       string    `json:"title" yaml:"title" validate:"required"`
	Creator     string    `json:"creator,omitempty" yaml:"creator,omitempty"`
	SeriesTitle string    `json:"seriesTitle,omitempty" yaml:"seriesTitle,omitempty"`
	Season      *int      `json:"season,omitempty" yaml:"season,omitempty" validate:"omitempty,gte=0"`
	Episode     *int      `json:"episode,omitempty" yaml:"episode,omitempty" validate:"omitempty,gte=0"`
}

// Script is one author's cue list in one language.
type Script struct {
	Language string `json:"language" yaml:"language" validate:"required,langtag"`
	Author   string `json:"author" yaml:"author"`
	Tracks   []Cue  `json:"tracks" yaml:"tracks" validate:"dive"`
}

// Transcript is the document stored under TranscriptKey and exchanged as
// JSON or YAML files.
type Transcript struct {
	Source   Source   `json:"source" yaml:"source"`
	Metadata Metadata `json:"metadata" yaml:"metadata"`
	Scripts  []Script `json:"scripts" yaml:"scripts" validate:"required,min=1,dive"`
}

// ErrInvalidTranscript marks documents that fail validation.
var ErrInvalidTranscript = errors.New("invalid transcript")

// Key returns the storage key for the transcript.
func (t Transcript) Key() string {
	return TranscriptKey(t.Source.Domain, t.Source.ID)
}

// Tracks returns the first script's cues, or nil when there are no scripts.
func (t Transcript) Tracks() []Cue {
	if len(t.Scripts) == 0 {
		return nil
	}
	return t.Scripts[0].Tracks
}

// LastTimestamp returns the timestamp of the first script's final cue.
func (t Transcript) LastTimestamp() float64 {
	tracks := t.Tracks()
	if len(tracks) == 0 {
		return 0
	}
	return tracks[len(tracks)-1].Timestamp
}

// Normalize trims text fields, canonicalizes language tags, and sorts every
// script's cues. It does not validate.
func (t *Transcript) Normalize() {
	t.Source.URL = strings.TrimSpace(t.Source.URL)
	t.Source.Domain = strings.ToLower(strings.TrimSpace(t.Source.Domain))
	t.Source.ID = strings.TrimSpace(t.Source.ID)
	t.Metadata.Title = strings.TrimSpace(t.Metadata.Title)
	t.Metadata.Creator = strings.TrimSpace(t.Metadata.Creator)
	t.Metadata.SeriesTitle = strings.TrimSpace(t.Metadata.SeriesTitle)
	for i := range t.Scripts {
		s := &t.Scripts[i]
		s.Author = strings.TrimSpace(s.Author)
		if tag, err := language.Parse(strings.TrimSpace(s.Language)); err == nil {
			s.Language = tag.String()
		}
		Sort(s.Tracks)
	}
}

// Validate checks the document shape. Failures wrap ErrInvalidTranscript and
// list every offending field.
func (t Transcript) Validate() error {
	err := validate().Struct(t)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidTranscript, err)
	}
	return fmt.Errorf("%w: %s", ErrInvalidTranscript, strings.Join(FormatValidationErrors(fieldErrs), "; "))
}

// FormatValidationErrors renders validator failures as short sentences.
func FormatValidationErrors(errs validator.ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, fe := range errs {
		msg := fmt.Sprintf("field %s failed on %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		out = append(out, msg)
	}
	return out
}

var (
	validateOnce sync.Once
	validateInst *validator.Validate
)

func validate() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("mediatype", func(fl validator.FieldLevel) bool {
			return MediaType(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("langtag", func(fl validator.FieldLevel) bool {
			_, err := language.Parse(fl.Field().String())
			return err == nil
		})
		validateInst = v
	})
	return validateInst
}
