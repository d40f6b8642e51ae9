package validator

import (
	"fmt"
	"sort"
	"strings"

	"orari/pkg/logger"
	"orari/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type WindowValidator struct {
	validate *validator.Validate
	log      *logger.Logger
}

func NewWindowValidator(log *logger.Logger) *WindowValidator {
	v := validator.New()

	if err := v.RegisterValidation("wall_clock", validateWallClock); err != nil {
		log.Fatal("Failed to register 'wall_clock' validator", "error", err)
	}

	return &WindowValidator{
		validate: v,
		log:      log,
	}
}

func validateWallClock(fl validator.FieldLevel) bool {
	_, _, err := model.ParseWallClock(fl.Field().String())
	return err == nil
}

// ValidateSet checks every row structurally and the set as a whole:
// end after start per row, no overlapping rows on the same weekday.
func (v *WindowValidator) ValidateSet(windows []model.WeeklyWindow) error {
	var out ValidationErrors
	for i, w := range windows {
		if err := v.validate.Struct(w); err != nil {
			if fieldErrors, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range fieldErrors {
					out = append(out, ValidationError{
						Field:   fmt.Sprintf("windows[%d].%s", i, fe.Field()),
						Message: fmt.Sprintf("failed on '%s'", fe.Tag()),
					})
				}
				continue
			}
			return err
		}

		startMin, okStart := wallMinutes(w.Start)
		endMin, okEnd := wallMinutes(w.End)
		if okStart && okEnd && endMin <= startMin {
			out = append(out, ValidationError{
				Field:   fmt.Sprintf("windows[%d]", i),
				Message: fmt.Sprintf("end %s must be after start %s", w.End, w.Start),
			})
		}
	}
	if len(out) > 0 {
		return out
	}

	if err := checkSetOverlaps(windows); err != nil {
		return err
	}
	return nil
}

func checkSetOverlaps(windows []model.WeeklyWindow) error {
	byDay := make(map[model.Weekday][]model.WeeklyWindow)
	for _, w := range windows {
		byDay[w.Weekday] = append(byDay[w.Weekday], w)
	}

	var out ValidationErrors
	for day, rows := range byDay {
		sort.Slice(rows, func(i, j int) bool { return rows[i].Start < rows[j].Start })
		for i := 1; i < len(rows); i++ {
			prevEnd, _ := wallMinutes(rows[i-1].End)
			curStart, _ := wallMinutes(rows[i].Start)
			if curStart < prevEnd {
				out = append(out, ValidationError{
					Field:   "windows",
					Message: fmt.Sprintf("windows %s-%s and %s-%s overlap on weekday %d", rows[i-1].Start, rows[i-1].End, rows[i].Start, rows[i].End, day),
				})
			}
		}
	}
	if len(out) > 0 {
		return out
	}
	return nil
}

func wallMinutes(s string) (int, bool) {
	hour, minute, err := model.ParseWallClock(s)
	if err != nil {
		return 0, false
	}
	return hour*60 + minute, true
}
