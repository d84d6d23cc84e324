package qa

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/poiesic/docqa/core"
)

// MaxTopK is the largest accepted TopK.
const MaxTopK = 50

var validate = validator.New()

// Request is a single question.
type Request struct {
	Question  string            `json:"question" validate:"required"`
	Profile   *core.UserProfile `json:"user_profile,omitempty"`
	SessionID string            `json:"session_id,omitempty" validate:"omitempty,max=128"`
	// TopK of zero means retrieval.DefaultTopK.
	TopK int `json:"top_k,omitempty" validate:"omitempty,min=1,max=50"`
}

// Validate returns field errors keyed by field name, or nil.
func (r *Request) Validate() map[string]string {
	errs := make(map[string]string)
	if err := validate.Struct(r); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, e := range verrs {
				errs[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
			}
		} else {
			errs["request"] = err.Error()
		}
	}
	if _, ok := errs["Question"]; !ok && strings.TrimSpace(r.Question) == "" {
		errs["Question"] = "failed on 'required' tag"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidationError reports rejected request fields.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// Source is a retrieved chunk as reported to callers.
type Source struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// Result is the outcome of a query. Failures never surface as Go errors;
// they are reported with Success false and an apology in Answer.
type Result struct {
	Success        bool                   `json:"success"`
	Answer         string                 `json:"answer"`
	Structured     *core.StructuredAnswer `json:"structured_response,omitempty"`
	Sources        []Source               `json:"sources,omitempty"`
	SessionID      string                 `json:"session_id,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Timestamp      time.Time              `json:"timestamp"`
	Error          string                 `json:"error,omitempty"`
}
