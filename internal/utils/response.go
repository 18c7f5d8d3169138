package utils

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// APIResponse is the JSON envelope returned by every grading endpoint.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Details interface{} `json:"details,omitempty"`
	Message string      `json:"message"`
}

// SendSuccess sends a 200 envelope.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus sends a success envelope with status, e.g. 202 for a
// queued submission or 201 for a generated artifact.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	return send(c, status, APIResponse{Success: true, Data: data, Message: message})
}

// OK sends a 200 envelope with list metadata such as totals.
func OK(c *fiber.Ctx, data interface{}, message string, meta interface{}) error {
	return send(c, fiber.StatusOK, APIResponse{Success: true, Data: data, Meta: meta, Message: message})
}

// SendError sends a failure envelope without details.
func SendError(c *fiber.Ctx, status int, message string) error {
	return Fail(c, status, message, nil)
}

// Fail sends a failure envelope with optional structured details.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	return send(c, status, APIResponse{Success: false, Details: details, Message: message})
}

// SendDocument writes a raw artifact such as a markdown report or a CSV
// export. A non-empty filename marks it as a download.
func SendDocument(c *fiber.Ctx, contentType, filename string, body []byte) error {
	c.Set(fiber.HeaderContentType, contentType)
	if filename != "" {
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	}
	return c.Status(fiber.StatusOK).Send(body)
}

func send(c *fiber.Ctx, status int, payload APIResponse) error {
	if payload.Message == "" {
		if payload.Success {
			payload.Message = "success"
		} else {
			payload.Message = "error"
		}
	}
	return c.Status(status).JSON(payload)
}
