// Package validate holds the structural predicates applied to raw videos and
// sound candidates before they enter the pipeline.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/okian/trendetl/internal/domain/etlerr"
	"github.com/okian/trendetl/internal/domain/model"
)

// Bounds for sound candidates.
const (
	MinTitleLen   = 2
	MaxTitleLen   = 200
	MaxDurationS  = 600
	MaxUsageCount = 1_000_000_000
)

// corruptionMarkers appear in titles produced by a broken scrape.
var corruptionMarkers = []string{"[object ", "undefined"}

// SoundCandidate is the validated view of a sound before it is stored.
// Pointer fields distinguish "absent" from zero.
type SoundCandidate struct {
	ID         string   `json:"id" validate:"required"`
	Title      string   `json:"title" validate:"required,min=2,max=200,notcorrupt"`
	Duration   *float64 `json:"duration" validate:"omitempty,gt=0,lte=600"`
	UsageCount *float64 `json:"usageCount" validate:"omitempty,gte=0,lte=1000000000"`
	PlayURL    string   `json:"playUrl" validate:"required_without=CoverURL"`
	CoverURL   string   `json:"coverUrl"`
}

// videoView flattens the fields of a raw video that must be present.
type videoView struct {
	ID             string   `json:"id" validate:"required"`
	AuthorID       string   `json:"authorMeta.id" validate:"required"`
	AuthorNickname string   `json:"authorMeta.nickname" validate:"required"`
	Duration       *float64 `json:"videoMeta.duration" validate:"required"`
	PlayCount      *float64 `json:"stats.playCount" validate:"required,gte=0"`
}

// Validator wraps go-playground/validator with reason-string conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the engine's custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("notcorrupt", func(fl validator.FieldLevel) bool {
		return !IsCorruptTitle(fl.Field().String())
	})

	return &Validator{v: v}
}

// Video rejects a raw video that lacks an id, author identity, a numeric
// duration or a non-negative play count. Zero plays is valid; missing is not.
func (v *Validator) Video(raw *model.RawVideo) error {
	const op = "validate.video"
	if raw == nil {
		return etlerr.Validation(op, "video is nil")
	}
	view := videoView{
		ID:             raw.ID,
		AuthorID:       raw.AuthorMeta.ID,
		AuthorNickname: raw.AuthorMeta.Nickname,
		Duration:       raw.VideoMeta.Duration,
		PlayCount:      raw.Stats.PlayCount,
	}
	return v.check(op, view)
}

// Sound rejects a sound candidate that breaks the title, duration, usage or
// media URL rules.
func (v *Validator) Sound(c SoundCandidate) error {
	return v.check("validate.sound", c)
}

func (v *Validator) check(op string, s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return etlerr.Validation(op, err.Error())
	}
	reasons := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		reasons = append(reasons, fe.Field()+" "+friendlyMessage(fe))
	}
	return etlerr.Validation(op, strings.Join(reasons, "; "))
}

// IsCorruptTitle reports whether title carries a scrape-corruption marker.
func IsCorruptTitle(title string) bool {
	t := strings.TrimSpace(title)
	if t == "null" || t == "NaN" {
		return true
	}
	for _, m := range corruptionMarkers {
		if strings.Contains(t, m) {
			return true
		}
	}
	return false
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required when " + e.Param() + " is empty"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "notcorrupt":
		return "contains a corrupt scrape marker"
	default:
		return "is invalid"
	}
}
