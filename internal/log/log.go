// Package log writes one JSON object per line. Request lines carry the
// request id and the logged-in user; background lines carry a component name.
package log

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

type entry struct {
	TS        string         `json:"ts"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	ReqID     string         `json:"req_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Method    string         `json:"method,omitempty"`
	Path      string         `json:"path,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Action    string         `json:"action,omitempty"`
	Status    int            `json:"status,omitempty"`
	Err       string         `json:"err,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// userIDer is satisfied by *domain.User; log stays a leaf package.
type userIDer interface{ GetID() string }

// Tee copies log output to the file at path as well as stdout.
// The returned func closes the file.
func Tee(path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	return f.Close, nil
}

func write(level, component string, c *fiber.Ctx, action string, err error, fields map[string]any) {
	e := entry{TS: time.Now().UTC().Format(time.RFC3339), Level: level, Component: component, Action: action, Fields: fields}
	if c != nil {
		e.IP = c.IP()
		e.Method = c.Method()
		e.Path = c.Path()
		e.Status = c.Response().StatusCode()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			e.ReqID = rid
		}
		if u, ok := c.Locals("user").(userIDer); ok {
			e.UserID = u.GetID()
		}
	}
	if err != nil {
		e.Err = err.Error()
	}
	b, _ := json.Marshal(e)
	log.Println(string(b))
}

// c may be nil for lines written outside a request.
func Info(c *fiber.Ctx, action string, fields map[string]any) {
	write("info", "", c, action, nil, fields)
}
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write("audit", "", c, action, nil, fields)
}

// Security records denied or suspicious requests.
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write("warn", "", c, action, nil, fields)
}
func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write("error", "", c, action, err, fields)
}

// Component logs for code that runs outside a request: startup, event
// publishers, the notifier.
type Component string

func (n Component) Info(action string, fields map[string]any) {
	write("info", string(n), nil, action, nil, fields)
}
func (n Component) Warn(action string, err error, fields map[string]any) {
	write("warn", string(n), nil, action, err, fields)
}
func (n Component) Audit(action string, fields map[string]any) {
	write("audit", string(n), nil, action, nil, fields)
}
func (n Component) Error(action string, err error, fields map[string]any) {
	write("error", string(n), nil, action, err, fields)
}
