package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"replay-agent/internal/entity"
	"replay-agent/internal/replay"
	"replay-agent/internal/selector"
)

// Page is the slice of browser behavior the oracle needs: a fresh
// snapshot of the live page before every step.
type Page interface {
	Observe(ctx context.Context) (*entity.PageState, error)
}

// Config selects the model backing the oracle. BaseURL is optional and
// supports OpenAI-compatible providers.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Client drives the healing loop against an LLM. Each Step observes
// the page, asks the model for the next decision, performs its tool
// calls and accumulates replayable actions with freshly generated
// locators.
type Client struct {
	client *openai.Client
	model  string

	task   string
	passed []entity.Decision
	page   Page
	runner replay.ActionRunner
	log    *slog.Logger

	history   []actionRecord
	actions   []entity.Action
	decisions []entity.Decision
}

func NewClient(cfg Config, task string, passed []entity.Decision, page Page, runner replay.ActionRunner, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &Client{
		client: &client,
		model:  cfg.Model,
		task:   task,
		passed: passed,
		page:   page,
		runner: runner,
		log:    log,
	}
}

// Factory adapts the client constructor to the shape the healing
// coordinator expects, binding the browser and executor once.
func Factory(cfg Config, page Page, runner replay.ActionRunner, log *slog.Logger) replay.OracleFactory {
	return func(ctx context.Context, task string, passed []entity.Decision) (replay.Oracle, error) {
		if cfg.APIKey == "" {
			return nil, &replay.ConfigurationError{Err: fmt.Errorf("healing requires an API key")}
		}
		return NewClient(cfg, task, passed, page, runner, log), nil
	}
}

// Actions returns the replayable actions taken so far, in execution
// order.
func (c *Client) Actions() []entity.Action { return c.actions }

// Decisions returns the decisions made so far, one per completed step.
func (c *Client) Decisions() []entity.Decision { return c.decisions }

// Step runs one decision cycle: observe, ask the model, perform the
// returned tool calls. A tool call the model got wrong is recorded so
// the model sees the failure in its next prompt; an executor failure
// on the live page ends the step with that error and with it the whole
// recovery.
func (c *Client) Step(ctx context.Context) error {
	state, err := c.page.Observe(ctx)
	if err != nil {
		return fmt.Errorf("observing page: %w", err)
	}

	messages := ConstructMessages(c.task, c.passed, c.history, state)
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Tools:       defineTools(),
		Temperature: openai.Opt[float64](0.1),
	})
	if err != nil {
		return fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("llm returned no choices")
	}
	msg := resp.Choices[0].Message

	decision := parseDecision(msg.Content)
	decision.ID = uuid.NewString()

	if len(msg.ToolCalls) == 0 {
		c.log.Warn("oracle step produced no tool calls", "content_len", len(msg.Content))
		c.record(decision.NextGoal, "none", "", "no tool calls returned")
		return nil
	}

	c.decisions = append(c.decisions, decision)

	for i, tc := range msg.ToolCalls {
		done, err := c.perform(ctx, decision, tc.Function.Name, tc.Function.Arguments, i, state)
		if err != nil {
			return err
		}
		if done {
			break
		}
	}

	return nil
}

// perform builds and executes one tool call. Malformed calls are
// recorded and skipped so the model can retry, but a failure of the
// executor itself is terminal: the action never joins the replayable
// tail and the error propagates to the coordinator.
func (c *Client) perform(ctx context.Context, decision entity.Decision, name, rawArgs string, idx int, state *entity.PageState) (bool, error) {
	action, err := c.buildAction(name, rawArgs, state)
	if err != nil {
		c.record(decision.NextGoal, name, rawArgs, "invalid: "+err.Error())
		return false, nil
	}
	action.DecisionID = decision.ID
	action.IdxInDecision = idx

	if execErr := c.runner.Execute(ctx, &action); execErr != nil {
		if replay.IsInterruption(execErr) {
			return false, execErr
		}
		c.record(decision.NextGoal, name, rawArgs, "failed: "+execErr.Error())
		return false, fmt.Errorf("performing %s: %w", name, execErr)
	}
	c.record(decision.NextGoal, name, rawArgs, "ok")
	c.actions = append(c.actions, action)

	return action.Payload.Kind == entity.KindDone, nil
}

func (c *Client) record(thought, action, args, result string) {
	c.history = append(c.history, actionRecord{
		Step:    len(c.history) + 1,
		Thought: thought,
		Action:  action,
		Args:    args,
		Result:  result,
	})
}

// buildAction converts one tool call into a replayable action. Element
// references resolve against the observed page and get durable
// locators generated from the snapshot HTML.
func (c *Client) buildAction(name, rawArgs string, state *entity.PageState) (entity.Action, error) {
	var args struct {
		ID        int     `json:"id"`
		Text      string  `json:"text"`
		URL       string  `json:"url"`
		Direction string  `json:"direction"`
		Index     int     `json:"index"`
		Seconds   float64 `json:"seconds"`
		Message   string  `json:"message"`
		Success   bool    `json:"success"`
	}
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return entity.Action{}, fmt.Errorf("parsing arguments for %s: %w", name, err)
	}

	switch name {
	case "click":
		el, err := c.describe(state, args.ID)
		if err != nil {
			return entity.Action{}, err
		}
		return entity.NewClick("", el), nil
	case "fill_text":
		el, err := c.describe(state, args.ID)
		if err != nil {
			return entity.Action{}, err
		}
		return entity.NewFillText("", args.Text, el), nil
	case "navigate":
		if args.URL == "" {
			return entity.Action{}, fmt.Errorf("navigate requires a url")
		}
		return entity.NewNavigate("", args.URL), nil
	case "scroll":
		return entity.NewScroll("", args.Direction, 0), nil
	case "switch_tab":
		return entity.NewSwitchTab("", args.Index), nil
	case "wait":
		secs := int(args.Seconds)
		if secs < 1 {
			secs = 1
		}
		if secs > 10 {
			secs = 10
		}
		return entity.NewWait("", secs), nil
	case "submit_task_result":
		return entity.NewDone("", args.Message, args.Success), nil
	default:
		return entity.Action{}, fmt.Errorf("unknown tool %q", name)
	}
}

// describe turns an observed element ID into a full descriptor with
// alternative locators generated against the page snapshot.
func (c *Client) describe(state *entity.PageState, id int) (*entity.ElementDescriptor, error) {
	var found *entity.ObservedElement
	for i := range state.Elements {
		if state.Elements[i].ID == id {
			found = &state.Elements[i]
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("element %d is not on the page", id)
	}

	if state.HTML != "" {
		factory, err := selector.NewFactory(state.HTML)
		if err == nil {
			if desc, err := factory.Describe(found.XPath); err == nil {
				return desc, nil
			}
			c.log.Warn("locator generation failed, keeping primary xpath only", "xpath", found.XPath)
		}
	}
	return &entity.ElementDescriptor{XPath: found.XPath, TagName: found.Tag}, nil
}
