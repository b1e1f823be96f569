package oracle

import "github.com/openai/openai-go/v3"

func defineTools() []openai.ChatCompletionToolUnionParam {
	return []openai.ChatCompletionToolUnionParam{
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        "click",
			Description: openai.String("Click an element (link, button, checkbox)."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "integer",
						"description": "Element ID from the DOM structure (the number in square brackets).",
					},
				},
				"required": []string{"id"},
			},
		}),

		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        "fill_text",
			Description: openai.String("Replace the content of an input field with text."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "integer",
						"description": "Element ID of the input or textarea.",
					},
					"text": map[string]any{
						"type":        "string",
						"description": "Text to type. Keep <secret>NAME</secret> placeholders verbatim, never invent their values.",
					},
				},
				"required": []string{"id", "text"},
			},
		}),

		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        "navigate",
			Description: openai.String("Load a URL in the current tab. Use only when no link on the page leads there."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "Full URL including the scheme.",
					},
				},
				"required": []string{"url"},
			},
		}),

		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        "scroll",
			Description: openai.String("Scroll the page when the element you need is not visible."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"direction": map[string]any{
						"type": "string",
						"enum": []string{"up", "down"},
					},
				},
				"required": []string{"direction"},
			},
		}),

		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        "switch_tab",
			Description: openai.String("Switch to another open tab by its index."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"index": map[string]any{
						"type":        "integer",
						"description": "Zero-based tab index.",
					},
				},
				"required": []string{"index"},
			},
		}),

		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        "wait",
			Description: openai.String("Pause before the next action, for pages that load content slowly."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"seconds": map[string]any{
						"type":        "number",
						"description": "Seconds to wait, at most 10.",
					},
				},
				"required": []string{"seconds"},
			},
		}),

		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        "submit_task_result",
			Description: openai.String("Report that the original task is finished and end the recovery."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{
						"type":        "string",
						"description": "Short result summary for the user.",
					},
					"success": map[string]any{
						"type":        "boolean",
						"description": "Whether the original task actually succeeded.",
					},
				},
				"required": []string{"message", "success"},
			},
		}),
	}
}
