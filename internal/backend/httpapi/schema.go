package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// taskListSchema describes the {tasks: [...]} payload returned by the
// view and delete endpoints. Only the shape is checked; time and date
// values are taken as sent and rendered as "?" when malformed.
const taskListSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["tasks"],
  "properties": {
    "tasks": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["id", "status"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "title": {"type": "string"},
          "date": {"type": "string"},
          "startTime": {"type": "string"},
          "endTime": {"type": "string"},
          "status": {"enum": ["pending", "completed"]}
        }
      }
    }
  }
}`

var taskListValidator = jsonschema.MustCompileString("task-list.json", taskListSchema)

// ResponseError is a 2xx response whose body is not a valid task list.
type ResponseError struct {
	Path    string
	Message string
}

func (e *ResponseError) Error() string {
	if e.Path == "" {
		return "invalid response: " + e.Message
	}
	return fmt.Sprintf("invalid response at %s: %s", e.Path, e.Message)
}

func validateTaskList(body []byte) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return &ResponseError{Message: err.Error()}
	}
	if err := taskListValidator.Validate(doc); err != nil {
		return schemaError(err)
	}
	return nil
}

// schemaError reports the first leaf cause of a validation failure.
func schemaError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &ResponseError{Message: err.Error()}
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &ResponseError{
		Path:    strings.TrimPrefix(ve.InstanceLocation, "/"),
		Message: ve.Message,
	}
}
