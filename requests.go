package runware

import (
	"fmt"
	"strings"
)

// OutputType selects how generated images are returned.
type OutputType string

const (
	OutputBase64Data OutputType = "base64Data"
	OutputDataURI    OutputType = "dataURI"
	OutputURL        OutputType = "URL"
)

// OutputFormat selects the encoding of generated images.
type OutputFormat string

const (
	FormatJPG  OutputFormat = "JPG"
	FormatPNG  OutputFormat = "PNG"
	FormatWEBP OutputFormat = "WEBP"
)

// ReplyMode describes how many results a task resolves with.
type ReplyMode int

const (
	// SingleReply resolves on the first matching result.
	SingleReply ReplyMode = iota
	// BatchReply accumulates a known number of results before resolving.
	BatchReply
)

func (m ReplyMode) String() string {
	switch m {
	case SingleReply:
		return "single"
	case BatchReply:
		return "batch"
	default:
		return fmt.Sprintf("ReplyMode(%d)", int(m))
	}
}

// Request is implemented by every request kind the client can submit.
type Request interface {
	// Type returns the wire task type.
	Type() TaskType
	// Expected reports the reply mode and how many results to wait for.
	Expected() (ReplyMode, int)
	// Validate checks the request after defaults are applied.
	Validate() error
	// Task builds the wire task for the given identifier.
	Task(taskUUID string) Task
}

// Defaults applied to zero-valued request fields.
const (
	DefaultSteps           = 20
	DefaultHeight          = 512
	DefaultWidth           = 512
	DefaultStrength        = 0.8
	DefaultCFGScale        = 7.0
	DefaultUpscaleFactor   = 2
	DefaultPromptMaxLength = 64
	DefaultLoRAWeight      = 1.0

	DefaultAlphaMattingForegroundThreshold = 240
	DefaultAlphaMattingBackgroundThreshold = 10
	DefaultAlphaMattingErodeSize           = 10
)

// LoRA adds a LoRA model to an image inference request.
type LoRA struct {
	Model  string  `json:"model"`
	Weight float64 `json:"weight"`
}

// ControlNet guides image inference with a control image.
type ControlNet struct {
	Model               string   `json:"model"`
	GuideImage          string   `json:"guideImage"`
	Weight              *float64 `json:"weight,omitempty"`
	StartStep           *int     `json:"startStep,omitempty"`
	StartStepPercentage *float64 `json:"startStepPercentage,omitempty"`
	EndStep             *int     `json:"endStep,omitempty"`
	EndStepPercentage   *float64 `json:"endStepPercentage,omitempty"`
	ControlMode         string   `json:"controlMode,omitempty"`
}

// --- Image inference ---

// ImageInferenceRequest generates one or more images from a prompt.
// Zero-valued numeric fields take the package defaults.
type ImageInferenceRequest struct {
	PositivePrompt     string       `json:"positivePrompt"`
	NegativePrompt     string       `json:"negativePrompt,omitempty"`
	Model              string       `json:"model"`
	NumberResults      int          `json:"numberResults"`
	Steps              int          `json:"steps"`
	Height             int          `json:"height"`
	Width              int          `json:"width"`
	SeedImage          string       `json:"seedImage,omitempty"`
	MaskImage          string       `json:"maskImage,omitempty"`
	Strength           float64      `json:"strength"`
	CFGScale           float64      `json:"CFGScale"`
	ClipSkip           int          `json:"clipSkip"`
	OutputType         OutputType   `json:"outputType"`
	OutputFormat       OutputFormat `json:"outputFormat"`
	UsePromptWeighting bool         `json:"usePromptWeighting"`
	CheckNSFW          bool         `json:"checkNSFW"`
	IncludeCost        bool         `json:"includeCost"`
	Seed               *int64       `json:"seed,omitempty"`
	ControlNet         []ControlNet `json:"controlNet,omitempty"`
	LoRA               []LoRA       `json:"lora,omitempty"`
}

func (r ImageInferenceRequest) withDefaults() ImageInferenceRequest {
	if r.NumberResults == 0 {
		r.NumberResults = 1
	}
	if r.Steps == 0 {
		r.Steps = DefaultSteps
	}
	if r.Height == 0 {
		r.Height = DefaultHeight
	}
	if r.Width == 0 {
		r.Width = DefaultWidth
	}
	if r.Strength == 0 {
		r.Strength = DefaultStrength
	}
	if r.CFGScale == 0 {
		r.CFGScale = DefaultCFGScale
	}
	if r.OutputType == "" {
		r.OutputType = OutputURL
	}
	if r.OutputFormat == "" {
		r.OutputFormat = FormatJPG
	}
	if len(r.LoRA) > 0 {
		loras := make([]LoRA, len(r.LoRA))
		for i, l := range r.LoRA {
			if l.Weight == 0 {
				l.Weight = DefaultLoRAWeight
			}
			loras[i] = l
		}
		r.LoRA = loras
	}
	return r
}

// Type implements Request.
func (r ImageInferenceRequest) Type() TaskType {
	return TaskImageInference
}

// Expected implements Request. The server returns one result per image.
func (r ImageInferenceRequest) Expected() (ReplyMode, int) {
	return BatchReply, r.withDefaults().NumberResults
}

// Validate implements Request.
func (r ImageInferenceRequest) Validate() error {
	r = r.withDefaults()
	if strings.TrimSpace(r.PositivePrompt) == "" {
		return &ValidationError{Field: "positivePrompt", Message: "must not be empty"}
	}
	if strings.TrimSpace(r.Model) == "" {
		return &ValidationError{Field: "model", Message: "must not be empty"}
	}
	if r.NumberResults < 1 {
		return &ValidationError{Field: "numberResults", Message: "must be at least 1"}
	}
	if r.Steps < 1 {
		return &ValidationError{Field: "steps", Message: "must be at least 1"}
	}
	if r.Height < 1 || r.Width < 1 {
		return &ValidationError{Field: "dimensions", Message: "height and width must be positive"}
	}
	if r.Strength < 0 || r.Strength > 1 {
		return &ValidationError{Field: "strength", Message: "must be between 0 and 1"}
	}
	if r.ClipSkip < 0 {
		return &ValidationError{Field: "clipSkip", Message: "must not be negative"}
	}
	for i, cn := range r.ControlNet {
		if cn.Model == "" || cn.GuideImage == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("controlNet[%d]", i),
				Message: "model and guideImage are required",
			}
		}
	}
	for i, l := range r.LoRA {
		if l.Model == "" {
			return &ValidationError{Field: fmt.Sprintf("lora[%d].model", i), Message: "must not be empty"}
		}
	}
	return validateOutput(r.OutputType, r.OutputFormat)
}

// Task implements Request.
func (r ImageInferenceRequest) Task(taskUUID string) Task {
	return &imageInferenceTask{
		TaskHeader:            TaskHeader{TaskType: TaskImageInference, TaskUUID: taskUUID},
		ImageInferenceRequest: r.withDefaults(),
	}
}

// --- Upscale ---

// UpscaleRequest enlarges an image.
type UpscaleRequest struct {
	InputImage    string       `json:"inputImage"`
	UpscaleFactor int          `json:"upscaleFactor"`
	OutputType    OutputType   `json:"outputType"`
	OutputFormat  OutputFormat `json:"outputFormat"`
	IncludeCost   bool         `json:"includeCost"`
}

func (r UpscaleRequest) withDefaults() UpscaleRequest {
	if r.UpscaleFactor == 0 {
		r.UpscaleFactor = DefaultUpscaleFactor
	}
	if r.OutputType == "" {
		r.OutputType = OutputURL
	}
	if r.OutputFormat == "" {
		r.OutputFormat = FormatJPG
	}
	return r
}

// Type implements Request.
func (r UpscaleRequest) Type() TaskType {
	return TaskImageUpscale
}

// Expected implements Request.
func (r UpscaleRequest) Expected() (ReplyMode, int) {
	return SingleReply, 1
}

// Validate implements Request.
func (r UpscaleRequest) Validate() error {
	r = r.withDefaults()
	if strings.TrimSpace(r.InputImage) == "" {
		return &ValidationError{Field: "inputImage", Message: "must not be empty"}
	}
	if r.UpscaleFactor < 2 || r.UpscaleFactor > 4 {
		return &ValidationError{Field: "upscaleFactor", Message: "must be between 2 and 4"}
	}
	return validateOutput(r.OutputType, r.OutputFormat)
}

// Task implements Request.
func (r UpscaleRequest) Task(taskUUID string) Task {
	return &upscaleTask{
		TaskHeader:     TaskHeader{TaskType: TaskImageUpscale, TaskUUID: taskUUID},
		UpscaleRequest: r.withDefaults(),
	}
}

// --- Background removal ---

// RemoveBackgroundRequest removes the background of an image.
type RemoveBackgroundRequest struct {
	InputImage   string       `json:"inputImage"`
	OutputType   OutputType   `json:"outputType"`
	OutputFormat OutputFormat `json:"outputFormat"`
	IncludeCost  bool         `json:"includeCost"`
	// RGBA is the background colour as [r, g, b, alpha]; nil keeps transparency.
	RGBA            []float64 `json:"rgba,omitempty"`
	PostProcessMask bool      `json:"postProcessMask"`
	ReturnOnlyMask  bool      `json:"returnOnlyMask"`
	AlphaMatting    bool      `json:"alphaMatting"`

	AlphaMattingForegroundThreshold int `json:"alphaMattingForegroundThreshold"`
	AlphaMattingBackgroundThreshold int `json:"alphaMattingBackgroundThreshold"`
	AlphaMattingErodeSize           int `json:"alphaMattingErodeSize"`
}

func (r RemoveBackgroundRequest) withDefaults() RemoveBackgroundRequest {
	if r.OutputType == "" {
		r.OutputType = OutputURL
	}
	if r.OutputFormat == "" {
		r.OutputFormat = FormatJPG
	}
	if r.AlphaMattingForegroundThreshold == 0 {
		r.AlphaMattingForegroundThreshold = DefaultAlphaMattingForegroundThreshold
	}
	if r.AlphaMattingBackgroundThreshold == 0 {
		r.AlphaMattingBackgroundThreshold = DefaultAlphaMattingBackgroundThreshold
	}
	if r.AlphaMattingErodeSize == 0 {
		r.AlphaMattingErodeSize = DefaultAlphaMattingErodeSize
	}
	return r
}

// Type implements Request.
func (r RemoveBackgroundRequest) Type() TaskType {
	return TaskImageBackgroundRemoval
}

// Expected implements Request.
func (r RemoveBackgroundRequest) Expected() (ReplyMode, int) {
	return SingleReply, 1
}

// Validate implements Request.
func (r RemoveBackgroundRequest) Validate() error {
	r = r.withDefaults()
	if strings.TrimSpace(r.InputImage) == "" {
		return &ValidationError{Field: "inputImage", Message: "must not be empty"}
	}
	if r.RGBA != nil && len(r.RGBA) != 4 {
		return &ValidationError{Field: "rgba", Message: "must have exactly 4 components"}
	}
	return validateOutput(r.OutputType, r.OutputFormat)
}

// Task implements Request.
func (r RemoveBackgroundRequest) Task(taskUUID string) Task {
	return &removeBackgroundTask{
		TaskHeader:              TaskHeader{TaskType: TaskImageBackgroundRemoval, TaskUUID: taskUUID},
		RemoveBackgroundRequest: r.withDefaults(),
	}
}

// --- Image to text ---

// ImageToTextRequest asks for a caption describing an image.
type ImageToTextRequest struct {
	InputImage  string `json:"inputImage"`
	IncludeCost bool   `json:"includeCost"`
}

// Type implements Request.
func (r ImageToTextRequest) Type() TaskType {
	return TaskImageCaption
}

// Expected implements Request.
func (r ImageToTextRequest) Expected() (ReplyMode, int) {
	return SingleReply, 1
}

// Validate implements Request.
func (r ImageToTextRequest) Validate() error {
	if strings.TrimSpace(r.InputImage) == "" {
		return &ValidationError{Field: "inputImage", Message: "must not be empty"}
	}
	return nil
}

// Task implements Request.
func (r ImageToTextRequest) Task(taskUUID string) Task {
	return &imageToTextTask{
		TaskHeader:         TaskHeader{TaskType: TaskImageCaption, TaskUUID: taskUUID},
		ImageToTextRequest: r,
	}
}

// --- Prompt enhancement ---

// PromptEnhanceRequest asks for enriched variants of a prompt.
type PromptEnhanceRequest struct {
	Prompt          string `json:"prompt"`
	PromptMaxLength int    `json:"promptMaxLength"`
	// PromptVersions is the number of variants returned, one result each.
	PromptVersions int  `json:"promptVersions"`
	IncludeCost    bool `json:"includeCost"`
}

func (r PromptEnhanceRequest) withDefaults() PromptEnhanceRequest {
	if r.PromptMaxLength == 0 {
		r.PromptMaxLength = DefaultPromptMaxLength
	}
	if r.PromptVersions == 0 {
		r.PromptVersions = 1
	}
	return r
}

// Type implements Request.
func (r PromptEnhanceRequest) Type() TaskType {
	return TaskPromptEnhance
}

// Expected implements Request.
func (r PromptEnhanceRequest) Expected() (ReplyMode, int) {
	return BatchReply, r.withDefaults().PromptVersions
}

// Validate implements Request.
func (r PromptEnhanceRequest) Validate() error {
	r = r.withDefaults()
	if strings.TrimSpace(r.Prompt) == "" {
		return &ValidationError{Field: "prompt", Message: "must not be empty"}
	}
	if r.PromptMaxLength < 1 {
		return &ValidationError{Field: "promptMaxLength", Message: "must be at least 1"}
	}
	if r.PromptVersions < 1 {
		return &ValidationError{Field: "promptVersions", Message: "must be at least 1"}
	}
	return nil
}

// Task implements Request.
func (r PromptEnhanceRequest) Task(taskUUID string) Task {
	return &promptEnhanceTask{
		TaskHeader:           TaskHeader{TaskType: TaskPromptEnhance, TaskUUID: taskUUID},
		PromptEnhanceRequest: r.withDefaults(),
	}
}

func validateOutput(t OutputType, f OutputFormat) error {
	switch t {
	case OutputBase64Data, OutputDataURI, OutputURL:
	default:
		return &ValidationError{Field: "outputType", Message: fmt.Sprintf("unsupported value %q", t)}
	}
	switch f {
	case FormatJPG, FormatPNG, FormatWEBP:
	default:
		return &ValidationError{Field: "outputFormat", Message: fmt.Sprintf("unsupported value %q", f)}
	}
	return nil
}
