package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"

	"replay-agent/internal/entity"
)

const SystemPrompt = `You are a browser automation agent recovering a broken replay.

A previously recorded browser session was being replayed step by step and one
of its actions failed (the page changed since recording). You now control the
live browser and must finish the original task from the current page state.

### PROTOCOL
1. Read the ORIGINAL TASK and the decision log of the steps that already
   succeeded.
2. Inspect the current DOM structure.
3. Respond EVERY time with BOTH:
   - message content: a single JSON object
     {"evaluation_previous_goal": "...", "memory": "...", "next_goal": "..."}
   - tool calls performing the next actions.
4. When the original task is complete, call "submit_task_result".

### RULES
- Element IDs come from the DOM structure below and change after every page
  load. Never reuse an ID from a previous step.
- An action that changes the page (navigation, search, login) must be the
  ONLY or the LAST tool call in your response.
- Do not announce completion in text. Only "submit_task_result" ends the run.`

// actionRecord is one line of the oracle's own step history, fed back
// into the prompt as JSONL.
type actionRecord struct {
	Step    int    `json:"step"`
	Thought string `json:"thought,omitempty"`
	Action  string `json:"action"`
	Args    string `json:"args,omitempty"`
	Result  string `json:"result"`
}

// ConstructMessages builds the full prompt: system instructions, the
// decision log of the replay up to the failure, the oracle's own step
// history, and the live page state. Pure function, easy to test.
func ConstructMessages(task string, passed []entity.Decision, history []actionRecord, state *entity.PageState) []openai.ChatCompletionMessageParamUnion {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(SystemPrompt),
	}

	if len(passed) > 0 {
		var sb strings.Builder
		sb.WriteString("REPLAYED DECISIONS BEFORE THE FAILURE (read-only context):\n")
		for i, d := range passed {
			entry := map[string]any{
				"step":      i + 1,
				"next_goal": d.NextGoal,
			}
			if d.Evaluation != "" {
				entry["evaluation_previous_goal"] = d.Evaluation
			}
			if d.Memory != "" {
				entry["memory"] = d.Memory
			}
			line, _ := json.Marshal(entry)
			sb.Write(line)
			sb.WriteByte('\n')
		}
		messages = append(messages, openai.UserMessage(sb.String()))
	}

	if len(history) > 0 {
		var sb strings.Builder
		sb.WriteString("YOUR PREVIOUS RECOVERY ACTIONS (read-only context):\n")
		for _, record := range history {
			line, _ := json.Marshal(record)
			sb.Write(line)
			sb.WriteByte('\n')
		}
		messages = append(messages, openai.UserMessage(sb.String()))
	}

	userContent := fmt.Sprintf(
		"ORIGINAL TASK: %s\n\n"+
			"CURRENT BROWSER STATE:\n"+
			"URL: %s\n"+
			"Title: %s\n\n"+
			"DOM STRUCTURE (Interactive Elements):\n%s",
		task,
		state.URL,
		state.Title,
		state.Summary(),
	)
	messages = append(messages, openai.UserMessage(userContent))

	return messages
}

// parseDecision extracts the decision JSON from the assistant content.
// Content that is not valid JSON becomes the next goal verbatim so a
// chatty model still yields a usable decision.
func parseDecision(content string) entity.Decision {
	text := strings.TrimSpace(content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var d entity.Decision
	if err := json.Unmarshal([]byte(text), &d); err == nil && (d.NextGoal != "" || d.Evaluation != "" || d.Memory != "") {
		return d
	}
	return entity.Decision{NextGoal: text}
}
