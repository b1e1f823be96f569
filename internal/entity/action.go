package entity

import "fmt"

// ActionKind enumerates the browser operations a traversal can record.
// The set is closed; anything outside it is treated as unsupported at
// execution time (old recordings still load, the kind just has no
// typed payload attached).
type ActionKind string

const (
	KindNavigate  ActionKind = "navigate"
	KindClick     ActionKind = "click"
	KindFillText  ActionKind = "fill_text"
	KindSwitchTab ActionKind = "switch_tab"
	KindScroll    ActionKind = "scroll"
	KindWait      ActionKind = "wait"
	KindDone      ActionKind = "done"
)

type NavigatePayload struct {
	URL string `json:"url"`
}

// ClickPayload carries no fields: the target lives in the action's
// ElementDescriptor.
type ClickPayload struct{}

type FillPayload struct {
	// Text may contain <secret>NAME</secret> placeholders. Substitution
	// happens at execution time only; the recorded text stays masked.
	Text string `json:"text"`
}

type SwitchTabPayload struct {
	TabIndex int `json:"tab_index"`
}

type ScrollPayload struct {
	Direction string `json:"direction"` // "up" or "down"
	// Amount in pixels; 0 means one viewport height.
	Amount int `json:"amount,omitempty"`
}

type WaitPayload struct {
	Seconds int `json:"seconds"`
}

type DonePayload struct {
	Message string `json:"message,omitempty"`
	Success bool   `json:"success"`
}

// ActionPayload is a tagged union over ActionKind. Exactly one variant
// pointer matching Kind is set; the JSON form is {"kind": "...",
// "<kind>": {...}} which keeps recorded files human-diffable.
type ActionPayload struct {
	Kind      ActionKind        `json:"kind"`
	Navigate  *NavigatePayload  `json:"navigate,omitempty"`
	Click     *ClickPayload     `json:"click,omitempty"`
	Fill      *FillPayload      `json:"fill_text,omitempty"`
	SwitchTab *SwitchTabPayload `json:"switch_tab,omitempty"`
	Scroll    *ScrollPayload    `json:"scroll,omitempty"`
	Wait      *WaitPayload      `json:"wait,omitempty"`
	Done      *DonePayload      `json:"done,omitempty"`
}

// Validate checks that the variant set on the payload agrees with Kind.
// Unknown kinds are allowed as long as no variant is attached.
func (p ActionPayload) Validate() error {
	set := map[ActionKind]bool{
		KindNavigate:  p.Navigate != nil,
		KindClick:     p.Click != nil,
		KindFillText:  p.Fill != nil,
		KindSwitchTab: p.SwitchTab != nil,
		KindScroll:    p.Scroll != nil,
		KindWait:      p.Wait != nil,
		KindDone:      p.Done != nil,
	}
	for kind, present := range set {
		if present && kind != p.Kind {
			return fmt.Errorf("payload kind %q carries a %q variant", p.Kind, kind)
		}
	}
	if known, ok := set[p.Kind]; ok && !known {
		return fmt.Errorf("payload kind %q missing its variant", p.Kind)
	}
	return nil
}

// Action is one recorded browser operation tied to the decision that
// produced it.
type Action struct {
	DecisionID string        `json:"decision_id"`
	Payload    ActionPayload `json:"payload"`
	// Element is present for click/fill actions; read-only during replay.
	Element *ElementDescriptor `json:"element,omitempty"`
	// Screenshot is an opaque captured-artifact reference. The replay
	// engine carries it but never dereferences it.
	Screenshot    string `json:"screenshot,omitempty"`
	IdxInDecision int    `json:"idx_in_decision"`
}

// Constructors keep the Kind/variant pairing in one place.

func NewNavigate(decisionID, url string) Action {
	return Action{DecisionID: decisionID, Payload: ActionPayload{Kind: KindNavigate, Navigate: &NavigatePayload{URL: url}}}
}

func NewClick(decisionID string, el *ElementDescriptor) Action {
	return Action{DecisionID: decisionID, Payload: ActionPayload{Kind: KindClick, Click: &ClickPayload{}}, Element: el}
}

func NewFillText(decisionID, text string, el *ElementDescriptor) Action {
	return Action{DecisionID: decisionID, Payload: ActionPayload{Kind: KindFillText, Fill: &FillPayload{Text: text}}, Element: el}
}

func NewSwitchTab(decisionID string, idx int) Action {
	return Action{DecisionID: decisionID, Payload: ActionPayload{Kind: KindSwitchTab, SwitchTab: &SwitchTabPayload{TabIndex: idx}}}
}

func NewScroll(decisionID, direction string, amount int) Action {
	return Action{DecisionID: decisionID, Payload: ActionPayload{Kind: KindScroll, Scroll: &ScrollPayload{Direction: direction, Amount: amount}}}
}

func NewWait(decisionID string, seconds int) Action {
	return Action{DecisionID: decisionID, Payload: ActionPayload{Kind: KindWait, Wait: &WaitPayload{Seconds: seconds}}}
}

func NewDone(decisionID, message string, success bool) Action {
	return Action{DecisionID: decisionID, Payload: ActionPayload{Kind: KindDone, Done: &DonePayload{Message: message, Success: success}}}
}
