// File: internal/services/chat/submission.go
package chat

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iyunix/go-voicechat/internal/domain"
)

// SubmitMessageInput is an inbound user message.
type SubmitMessageInput struct {
	Content   string `json:"content" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=text audio"`
	AudioPath string `json:"audio_path" validate:"required_if=Type audio,omitempty,max=512,excludes=..,excludes=\\"`
	Stream    bool   `json:"stream"`
}

// fieldOrder fixes which field's message leads a validation error.
var fieldOrder = []string{"content", "type", "audio_path"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims surrounding whitespace from the text fields.
func (in *SubmitMessageInput) Normalize() {
	in.Content = strings.TrimSpace(in.Content)
	in.Type = strings.TrimSpace(in.Type)
	in.AudioPath = strings.TrimSpace(in.AudioPath)
}

// ValidateSubmission checks an inbound message before anything is stored.
// It does not check ownership; callers do that first.
func ValidateSubmission(in *SubmitMessageInput) error {
	in.Normalize()

	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewValidationError("submit_message", err.Error())
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
	}
	return NewFieldValidationError("submit_message", fields, fieldOrder)
}

// ToMessage builds the user message the input describes.
func (in *SubmitMessageInput) ToMessage(chatID, userID uint) *domain.Message {
	uid := userID
	msg := &domain.Message{
		ChatID:  chatID,
		UserID:  &uid,
		Type:    domain.MessageType(in.Type),
		Content: in.Content,
	}
	if in.AudioPath != "" {
		path := in.AudioPath
		msg.AudioPath = &path
	}
	return msg
}

func fieldMessage(fe validator.FieldError) string {
	label := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return "The " + label + " field is required."
	case "required_if":
		return "The " + label + " field is required when type is audio."
	case "oneof":
		return "The selected " + label + " is invalid."
	case "max":
		return "The " + label + " field must not be greater than " + fe.Param() + " characters."
	default:
		return "The " + label + " field format is invalid."
	}
}
