package runware

import (
	"encoding/json"
	"errors"
)

// ImageResult is returned by image inference, upscaling and background removal.
type ImageResult struct {
	TaskType        string   `json:"taskType,omitempty"`
	TaskUUID        string   `json:"taskUUID"`
	ImageUUID       string   `json:"imageUUID,omitempty"`
	ImageURL        string   `json:"imageURL,omitempty"`
	ImageBase64Data string   `json:"imageBase64Data,omitempty"`
	ImageDataURI    string   `json:"imageDataURI,omitempty"`
	Seed            *int64   `json:"seed,omitempty"`
	NSFWContent     *bool    `json:"NSFWContent,omitempty"`
	Cost            *float64 `json:"cost,omitempty"`
}

func (r *ImageResult) validate() error {
	if r.TaskUUID == "" {
		return errors.New("missing taskUUID")
	}
	return nil
}

// TextResult is returned by image captioning and prompt enhancement.
type TextResult struct {
	TaskType string   `json:"taskType,omitempty"`
	TaskUUID string   `json:"taskUUID"`
	Text     string   `json:"text"`
	Cost     *float64 `json:"cost,omitempty"`
}

func (r *TextResult) validate() error {
	if r.TaskUUID == "" {
		return errors.New("missing taskUUID")
	}
	return nil
}

// resultModel is satisfied by pointers to the response types.
type resultModel[T any] interface {
	*T
	validate() error
}

// decodeResults turns raw results into typed responses, preserving order.
func decodeResults[T any, PT resultModel[T]](taskType TaskType, results []Result) ([]T, error) {
	out := make([]T, 0, len(results))
	for _, r := range results {
		var v T
		if err := json.Unmarshal(r.Raw, &v); err != nil {
			return nil, &DecodeError{TaskType: string(taskType), Err: err}
		}
		if err := PT(&v).validate(); err != nil {
			return nil, &DecodeError{TaskType: string(taskType), Err: err}
		}
		out = append(out, v)
	}
	return out, nil
}
