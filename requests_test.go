package runware

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestImageInferenceRequest_Defaults(t *testing.T) {
	req := ImageInferenceRequest{
		PositivePrompt: "cat",
		Model:          "runware:100@1",
		LoRA:           []LoRA{{Model: "civitai:1@1"}, {Model: "civitai:2@1", Weight: 0.5}},
	}

	task := req.Task("u").(*imageInferenceTask)
	got := task.ImageInferenceRequest

	want := ImageInferenceRequest{
		PositivePrompt: "cat",
		Model:          "runware:100@1",
		NumberResults:  1,
		Steps:          DefaultSteps,
		Height:         DefaultHeight,
		Width:          DefaultWidth,
		Strength:       DefaultStrength,
		CFGScale:       DefaultCFGScale,
		OutputType:     OutputURL,
		OutputFormat:   FormatJPG,
		LoRA:           []LoRA{{Model: "civitai:1@1", Weight: 1}, {Model: "civitai:2@1", Weight: 0.5}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}

	// The caller's slice is not modified.
	if req.LoRA[0].Weight != 0 {
		t.Error("withDefaults mutated the caller's LoRA slice")
	}
}

func TestRequest_Expected(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		mode     ReplyMode
		expected int
	}{
		{"ImageInferenceDefault", ImageInferenceRequest{}, BatchReply, 1},
		{"ImageInferenceFour", ImageInferenceRequest{NumberResults: 4}, BatchReply, 4},
		{"Upscale", UpscaleRequest{}, SingleReply, 1},
		{"RemoveBackground", RemoveBackgroundRequest{}, SingleReply, 1},
		{"ImageToText", ImageToTextRequest{}, SingleReply, 1},
		{"PromptEnhanceDefault", PromptEnhanceRequest{}, BatchReply, 1},
		{"PromptEnhanceFive", PromptEnhanceRequest{PromptVersions: 5}, BatchReply, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, n := tt.req.Expected()
			if mode != tt.mode || n != tt.expected {
				t.Errorf("Expected() = %s, %d; want %s, %d", mode, n, tt.mode, tt.expected)
			}
		})
	}
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"InferenceOK", ImageInferenceRequest{PositivePrompt: "p", Model: "m"}, ""},
		{"InferenceNoPrompt", ImageInferenceRequest{Model: "m"}, "positivePrompt"},
		{"InferenceNoModel", ImageInferenceRequest{PositivePrompt: "p"}, "model"},
		{"InferenceNegativeCount", ImageInferenceRequest{PositivePrompt: "p", Model: "m", NumberResults: -1}, "numberResults"},
		{"InferenceStrength", ImageInferenceRequest{PositivePrompt: "p", Model: "m", Strength: 1.5}, "strength"},
		{"InferenceOutputType", ImageInferenceRequest{PositivePrompt: "p", Model: "m", OutputType: "gif"}, "outputType"},
		{"InferenceOutputFormat", ImageInferenceRequest{PositivePrompt: "p", Model: "m", OutputFormat: "BMP"}, "outputFormat"},
		{"InferenceControlNet", ImageInferenceRequest{PositivePrompt: "p", Model: "m", ControlNet: []ControlNet{{Model: "cn"}}}, "controlNet[0]"},
		{"InferenceLoRA", ImageInferenceRequest{PositivePrompt: "p", Model: "m", LoRA: []LoRA{{}}}, "lora[0].model"},
		{"UpscaleOK", UpscaleRequest{InputImage: "i", UpscaleFactor: 4}, ""},
		{"UpscaleFactor", UpscaleRequest{InputImage: "i", UpscaleFactor: 8}, "upscaleFactor"},
		{"UpscaleNoImage", UpscaleRequest{}, "inputImage"},
		{"RemoveBackgroundOK", RemoveBackgroundRequest{InputImage: "i", RGBA: []float64{255, 255, 255, 1}}, ""},
		{"RemoveBackgroundRGBA", RemoveBackgroundRequest{InputImage: "i", RGBA: []float64{1, 2}}, "rgba"},
		{"CaptionNoImage", ImageToTextRequest{InputImage: "  "}, "inputImage"},
		{"EnhanceOK", PromptEnhanceRequest{Prompt: "p"}, ""},
		{"EnhanceNoPrompt", PromptEnhanceRequest{}, "prompt"},
		{"EnhanceVersions", PromptEnhanceRequest{Prompt: "p", PromptVersions: -2}, "promptVersions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate error: %v", err)
				}
				return
			}
			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if valErr.Field != tt.field {
				t.Errorf("Field = %s, want %s", valErr.Field, tt.field)
			}
		})
	}
}

func TestReplyMode_String(t *testing.T) {
	if SingleReply.String() != "single" || BatchReply.String() != "batch" {
		t.Errorf("String() = %s/%s", SingleReply, BatchReply)
	}
	if ReplyMode(9).String() != "ReplyMode(9)" {
		t.Errorf("String() = %s", ReplyMode(9))
	}
}
