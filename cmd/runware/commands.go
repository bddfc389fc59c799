package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	runware "github.com/KotikNekot/Runware-Wrapper"
)

func newGenerateCmd(flags *globalFlags) *cobra.Command {
	var req runware.ImageInferenceRequest
	var format, outputType string
	var seed int64
	var loras, controlNets []string

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate images from a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.PositivePrompt = strings.Join(args, " ")
			req.OutputFormat = runware.OutputFormat(strings.ToUpper(format))
			req.OutputType = runware.OutputType(outputType)
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}
			var err error
			if req.LoRA, err = parseLoRAs(loras); err != nil {
				return err
			}
			if req.ControlNet, err = parseControlNets(controlNets); err != nil {
				return err
			}
			return runTask(cmd, flags, func(ctx context.Context, c *runware.Client) (any, error) {
				return c.ImageInference(ctx, req)
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&req.Model, "model", "m", "runware:100@1", "model identifier")
	f.StringVar(&req.NegativePrompt, "negative", "", "negative prompt")
	f.IntVarP(&req.NumberResults, "count", "n", 1, "number of images")
	f.IntVar(&req.Width, "width", runware.DefaultWidth, "image width")
	f.IntVar(&req.Height, "height", runware.DefaultHeight, "image height")
	f.IntVar(&req.Steps, "steps", runware.DefaultSteps, "inference steps")
	f.Float64Var(&req.CFGScale, "cfg-scale", runware.DefaultCFGScale, "guidance scale")
	f.StringVar(&req.SeedImage, "seed-image", "", "seed image for image-to-image")
	f.StringVar(&req.MaskImage, "mask-image", "", "mask image for inpainting")
	f.Int64Var(&seed, "seed", 0, "random seed")
	f.StringVar(&format, "format", string(runware.FormatJPG), "output format: JPG|PNG|WEBP")
	f.StringVar(&outputType, "output-type", string(runware.OutputURL), "output type: URL|base64Data|dataURI")
	f.StringArrayVar(&loras, "lora", nil, "LoRA model as model[=weight], repeatable")
	f.StringArrayVar(&controlNets, "controlnet", nil, `ControlNet as JSON, e.g. '{"model":"...","guideImage":"..."}', repeatable`)
	f.BoolVar(&req.CheckNSFW, "check-nsfw", false, "flag NSFW results")
	f.BoolVar(&req.IncludeCost, "cost", false, "include cost in results")

	return cmd
}

func newUpscaleCmd(flags *globalFlags) *cobra.Command {
	var req runware.UpscaleRequest
	var format, outputType string

	cmd := &cobra.Command{
		Use:   "upscale <image>",
		Short: "Upscale an image by UUID, URL or data URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.InputImage = args[0]
			req.OutputFormat = runware.OutputFormat(strings.ToUpper(format))
			req.OutputType = runware.OutputType(outputType)
			return runTask(cmd, flags, func(ctx context.Context, c *runware.Client) (any, error) {
				return c.Upscale(ctx, req)
			})
		},
	}

	cmd.Flags().IntVarP(&req.UpscaleFactor, "factor", "f", runware.DefaultUpscaleFactor, "upscale factor (2-4)")
	cmd.Flags().StringVar(&format, "format", string(runware.FormatJPG), "output format: JPG|PNG|WEBP")
	cmd.Flags().StringVar(&outputType, "output-type", string(runware.OutputURL), "output type: URL|base64Data|dataURI")
	cmd.Flags().BoolVar(&req.IncludeCost, "cost", false, "include cost in results")

	return cmd
}

func newRemoveBackgroundCmd(flags *globalFlags) *cobra.Command {
	var req runware.RemoveBackgroundRequest
	var format, outputType string
	var rgba []float64

	cmd := &cobra.Command{
		Use:   "remove-bg <image>",
		Short: "Remove the background of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.InputImage = args[0]
			req.OutputFormat = runware.OutputFormat(strings.ToUpper(format))
			req.OutputType = runware.OutputType(outputType)
			if len(rgba) > 0 {
				req.RGBA = rgba
			}
			return runTask(cmd, flags, func(ctx context.Context, c *runware.Client) (any, error) {
				return c.RemoveBackground(ctx, req)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&format, "format", string(runware.FormatPNG), "output format: JPG|PNG|WEBP")
	f.StringVar(&outputType, "output-type", string(runware.OutputURL), "output type: URL|base64Data|dataURI")
	f.Float64SliceVar(&rgba, "rgba", nil, "background colour as r,g,b,a")
	f.BoolVar(&req.PostProcessMask, "post-process-mask", false, "post-process the mask")
	f.BoolVar(&req.ReturnOnlyMask, "mask-only", false, "return only the mask")
	f.BoolVar(&req.AlphaMatting, "alpha-matting", false, "enable alpha matting")
	f.BoolVar(&req.IncludeCost, "cost", false, "include cost in results")

	return cmd
}

func newCaptionCmd(flags *globalFlags) *cobra.Command {
	var req runware.ImageToTextRequest

	cmd := &cobra.Command{
		Use:   "caption <image>",
		Short: "Describe an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.InputImage = args[0]
			return runTask(cmd, flags, func(ctx context.Context, c *runware.Client) (any, error) {
				return c.ImageToText(ctx, req)
			})
		},
	}

	cmd.Flags().BoolVar(&req.IncludeCost, "cost", false, "include cost in results")

	return cmd
}

func newEnhanceCmd(flags *globalFlags) *cobra.Command {
	var req runware.PromptEnhanceRequest

	cmd := &cobra.Command{
		Use:   "enhance <prompt>",
		Short: "Generate enriched variants of a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Prompt = strings.Join(args, " ")
			return runTask(cmd, flags, func(ctx context.Context, c *runware.Client) (any, error) {
				return c.PromptEnhance(ctx, req)
			})
		},
	}

	cmd.Flags().IntVarP(&req.PromptVersions, "versions", "n", 1, "number of variants")
	cmd.Flags().IntVar(&req.PromptMaxLength, "max-length", runware.DefaultPromptMaxLength, "maximum variant length")
	cmd.Flags().BoolVar(&req.IncludeCost, "cost", false, "include cost in results")

	return cmd
}

// parseLoRAs parses model[=weight] values. A missing weight is left zero so
// the request default applies.
func parseLoRAs(values []string) ([]runware.LoRA, error) {
	var out []runware.LoRA
	for _, v := range values {
		model, weight, hasWeight := strings.Cut(v, "=")
		l := runware.LoRA{Model: strings.TrimSpace(model)}
		if hasWeight {
			w, err := strconv.ParseFloat(strings.TrimSpace(weight), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid --lora %q: %w", v, err)
			}
			l.Weight = w
		}
		out = append(out, l)
	}
	return out, nil
}

func parseControlNets(values []string) ([]runware.ControlNet, error) {
	var out []runware.ControlNet
	for _, v := range values {
		var cn runware.ControlNet
		dec := json.NewDecoder(strings.NewReader(v))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cn); err != nil {
			return nil, fmt.Errorf("invalid --controlnet %q: %w", v, err)
		}
		out = append(out, cn)
	}
	return out, nil
}
