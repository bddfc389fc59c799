package runware

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TaskType identifies the kind of task carried by a frame element.
type TaskType string

const (
	TaskAuthentication         TaskType = "authentication"
	TaskPing                   TaskType = "ping"
	TaskImageInference         TaskType = "imageInference"
	TaskImageUpscale           TaskType = "imageUpscale"
	TaskImageBackgroundRemoval TaskType = "imageBackgroundRemoval"
	TaskImageCaption           TaskType = "imageCaption"
	TaskPromptEnhance          TaskType = "promptEnhance"
)

// --- Outbound (Client -> Server) ---

// Task is one element of an outbound frame. Every outbound frame is a JSON
// array of tasks.
type Task interface {
	Header() TaskHeader
}

// TaskHeader carries the fields shared by every outbound task. Wire types
// embed it so its fields are flattened into the task object.
type TaskHeader struct {
	TaskType TaskType `json:"taskType"`
	TaskUUID string   `json:"taskUUID,omitempty"`
}

// Header implements Task.
func (h TaskHeader) Header() TaskHeader {
	return h
}

// AuthenticationTask is sent once right after the connection opens.
type AuthenticationTask struct {
	TaskHeader
	APIKey string `json:"apiKey"`
}

// PingTask keeps the connection alive.
type PingTask struct {
	TaskHeader
	Ping bool `json:"ping"`
}

// NewAuthenticationTask creates the authentication task for apiKey.
func NewAuthenticationTask(apiKey string) *AuthenticationTask {
	return &AuthenticationTask{
		TaskHeader: TaskHeader{TaskType: TaskAuthentication},
		APIKey:     apiKey,
	}
}

// NewPingTask creates a heartbeat task.
func NewPingTask() *PingTask {
	return &PingTask{
		TaskHeader: TaskHeader{TaskType: TaskPing},
		Ping:       true,
	}
}

// Wire wrappers pairing a header with a request body.
type imageInferenceTask struct {
	TaskHeader
	ImageInferenceRequest
}

type upscaleTask struct {
	TaskHeader
	UpscaleRequest
}

type removeBackgroundTask struct {
	TaskHeader
	RemoveBackgroundRequest
}

type imageToTextTask struct {
	TaskHeader
	ImageToTextRequest
}

type promptEnhanceTask struct {
	TaskHeader
	PromptEnhanceRequest
}

// --- Inbound (Server -> Client) ---

// Frame is one decoded inbound message.
type Frame struct {
	Errors []ErrorDescriptor `json:"errors,omitempty"`
	Data   []Result          `json:"data,omitempty"`

	// Dropped holds one *FrameError per entry that could not be decoded.
	// The remaining entries are still delivered.
	Dropped []error `json:"-"`
}

// UnmarshalJSON decodes each errors and data entry on its own so that one
// malformed entry does not take the rest of the frame with it.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var raw struct {
		Errors []json.RawMessage `json:"errors"`
		Data   []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*f = Frame{}
	for i, entry := range raw.Errors {
		desc, err := decodeErrorEntry(entry)
		if err != nil {
			f.Dropped = append(f.Dropped, &FrameError{Err: fmt.Errorf("errors[%d]: %w", i, err)})
			continue
		}
		f.Errors = append(f.Errors, desc)
	}
	for i, entry := range raw.Data {
		var r Result
		if err := json.Unmarshal(entry, &r); err != nil {
			f.Dropped = append(f.Dropped, &FrameError{Err: fmt.Errorf("data[%d]: %w", i, err)})
			continue
		}
		f.Data = append(f.Data, r)
	}
	return nil
}

// decodeErrorEntry decodes one errors entry. An entry with a mistyped field
// is kept as long as its taskUUID decoded, so the task can still be failed.
func decodeErrorEntry(entry json.RawMessage) (ErrorDescriptor, error) {
	var desc ErrorDescriptor
	err := json.Unmarshal(entry, &desc)
	if err == nil {
		return desc, nil
	}

	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) || desc.TaskUUID == "" {
		return ErrorDescriptor{}, err
	}
	if desc.Message == "" {
		desc.Message = err.Error()
	}
	return desc, nil
}

// ErrorDescriptor is one entry of an inbound errors list.
type ErrorDescriptor struct {
	Code          string `json:"code,omitempty"`
	Message       string `json:"message,omitempty"`
	Parameter     string `json:"parameter,omitempty"`
	Type          string `json:"type,omitempty"`
	Documentation string `json:"documentation,omitempty"`
	TaskUUID      string `json:"taskUUID,omitempty"`
	TaskType      string `json:"taskType,omitempty"`
}

// RemoteError converts the descriptor into an error value.
func (d ErrorDescriptor) RemoteError() *RemoteError {
	return &RemoteError{
		Code:      d.Code,
		Message:   d.Message,
		Parameter: d.Parameter,
		Type:      d.Type,
		TaskUUID:  d.TaskUUID,
		TaskType:  d.TaskType,
	}
}

// Result is one entry of an inbound data list. Raw keeps the complete object
// so it can later be decoded into a typed response.
type Result struct {
	TaskType string
	TaskUUID string
	Raw      json.RawMessage
}

type resultHeader struct {
	TaskType string `json:"taskType,omitempty"`
	TaskUUID string `json:"taskUUID,omitempty"`
}

// UnmarshalJSON captures the correlation fields and the raw object.
func (r *Result) UnmarshalJSON(data []byte) error {
	var h resultHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	r.TaskType = h.TaskType
	r.TaskUUID = h.TaskUUID
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the raw object back out unchanged.
func (r Result) MarshalJSON() ([]byte, error) {
	if len(r.Raw) == 0 {
		return json.Marshal(resultHeader{TaskType: r.TaskType, TaskUUID: r.TaskUUID})
	}
	return r.Raw, nil
}
