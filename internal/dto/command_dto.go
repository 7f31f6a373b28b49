package dto

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// StartCommand is the payload of a "start" frame: one report request.
type StartCommand struct {
	Task         string            `json:"task" validate:"required"`
	ReportType   string            `json:"report_type" validate:"required,oneof=basic detailed multi_agent"`
	SourceURLs   []string          `json:"source_urls"`
	Tone         string            `json:"tone"`
	Headers      map[string]string `json:"headers"`
	ReportSource string            `json:"report_source"`
}

func (c *StartCommand) Validate() error {
	return validate.Struct(c)
}

// ChatCommand is the payload of a "chat" frame.
type ChatCommand struct {
	Message string `json:"message" validate:"required"`
}

func (c *ChatCommand) Validate() error {
	return validate.Struct(c)
}
