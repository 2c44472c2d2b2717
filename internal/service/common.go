package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"garmentflow/internal/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventPublisher pushes committed changes to live dashboards
type EventPublisher interface {
	Publish(event string, data map[string]interface{})
}

// Dashboard event names
const (
	EventSubBatchStarted = "ledger.started"
	EventTrancheSplit    = "ledger.split"
	EventTrancheAdvanced = "ledger.advanced"
	EventWorkerAssigned  = "ledger.assigned"
	EventWorkLogCreated  = "worklog.created"
	EventWorkLogUpdated  = "worklog.updated"
	EventWorkLogDeleted  = "worklog.deleted"
)

const dateLayout = "2006-01-02"

// requestValidator shares the `binding` tags Gin already uses, so DTOs carry
// a single set of rules whether they arrive over HTTP or in-process.
var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateRequest(req interface{}) error {
	err := requestValidator.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Validation("invalid request: %v", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describeFieldError(fe)
	}
	return apperror.ValidationFields(fields)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required when " + fe.Param() + " is empty"
	case "uuid":
		return "must be a UUID"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "datetime":
		return "must be a date formatted as YYYY-MM-DD"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "failed " + fe.Tag() + " check"
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.ValidationFields(map[string]string{field: "must be a UUID"})
	}
	return id, nil
}

func parseOptionalID(field, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// lookupErr turns a missing row into NotFound and wraps anything else
func lookupErr(err error, what string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("%s %s not found", what, id)
	}
	return fmt.Errorf("failed to load %s %s: %w", what, id, err)
}

func marshalDetails(v interface{}) string {
	details, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(details)
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, apperror.ValidationFields(map[string]string{field: "must be a date formatted as YYYY-MM-DD"})
	}
	return t, nil
}

func strPtr(s string) *string {
	return &s
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
