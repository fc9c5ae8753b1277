package state

import (
	"fmt"
	"time"
)

// ItemState is the pipeline position of an item.
type ItemState string

// Item states in pipeline order.
const (
	StateRaw          ItemState = "raw"
	StateResearched   ItemState = "researched"
	StatePlanned      ItemState = "planned"
	StateImplementing ItemState = "implementing"
	StateInPR         ItemState = "in_pr"
	StateDone         ItemState = "done"
)

// States lists every valid state in pipeline order.
var States = []ItemState{
	StateRaw,
	StateResearched,
	StatePlanned,
	StateImplementing,
	StateInPR,
	StateDone,
}

// Valid reports whether s is one of the known pipeline states.
func (s ItemState) Valid() bool {
	return s.Index() >= 0
}

// Index returns the position of s in the pipeline, or -1 if unknown.
func (s ItemState) Index() int {
	for i, st := range States {
		if st == s {
			return i
		}
	}
	return -1
}

// Item is a unit of work moving through the pipeline.
type Item struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Overview  string    `json:"overview,omitempty"`
	State     ItemState `json:"state"`
	Branch    *string   `json:"branch"`
	PRURL     *string   `json:"pr_url"`
	PRNumber  *int      `json:"pr_number"`
	DependsOn []string  `json:"depends_on,omitempty"`
	LastError *string   `json:"last_error"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsDone reports whether the item reached the terminal state.
func (i *Item) IsDone() bool {
	return i.State == StateDone
}

// DependenciesMet reports whether every dependency is in completed.
func (i *Item) DependenciesMet(completed map[string]bool) bool {
	for _, dep := range i.DependsOn {
		if !completed[dep] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	c := *i
	c.Branch = cloneString(i.Branch)
	c.PRURL = cloneString(i.PRURL)
	c.LastError = cloneString(i.LastError)
	if i.PRNumber != nil {
		n := *i.PRNumber
		c.PRNumber = &n
	}
	if i.DependsOn != nil {
		c.DependsOn = append([]string(nil), i.DependsOn...)
	}
	return &c
}

// SetLastError records msg, or clears the field when msg is empty.
func (i *Item) SetLastError(msg string) {
	if msg == "" {
		i.LastError = nil
		return
	}
	i.LastError = &msg
}

// Story is one entry of an item's prd.json.
type Story struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// Story status values.
const (
	StoryPending = "pending"
	StoryDone    = "done"
)

// PRD is the structured requirements file written by the plan phase.
type PRD struct {
	SchemaVersion int     `json:"schema_version"`
	ID            string  `json:"id"`
	BranchName    string  `json:"branch_name,omitempty"`
	UserStories   []Story `json:"user_stories"`
}

// AllStoriesDone reports whether the PRD has at least one story and all
// of them are done.
func (p *PRD) AllStoriesDone() bool {
	if len(p.UserStories) == 0 {
		return false
	}
	for _, s := range p.UserStories {
		if s.Status != StoryDone {
			return false
		}
	}
	return true
}

// BatchProgress is the durable checkpoint of a batch run.
type BatchProgress struct {
	SessionID       string     `json:"session_id"`
	PID             int        `json:"pid"`
	StartedAt       time.Time  `json:"started_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	QueuedItems     []string   `json:"queued_items"`
	CurrentItem     *string    `json:"current_item"`
	Completed       []string   `json:"completed"`
	Failed          []string   `json:"failed"`
	Skipped         []string   `json:"skipped"`
	HealingAttempts int        `json:"healing_attempts"`
	LastHealingAt   *time.Time `json:"last_healing_at"`
}

// LastActivity returns UpdatedAt, or StartedAt when the record was never
// updated.
func (p *BatchProgress) LastActivity() time.Time {
	if !p.UpdatedAt.IsZero() {
		return p.UpdatedAt
	}
	return p.StartedAt
}

// SetCurrent marks id as in flight; an empty id clears it.
func (p *BatchProgress) SetCurrent(id string) {
	if id == "" {
		p.CurrentItem = nil
		return
	}
	p.CurrentItem = &id
}

// RecordHealing bumps the self-repair counter.
func (p *BatchProgress) RecordHealing(at time.Time) {
	p.HealingAttempts++
	p.LastHealingAt = &at
}

// Validate checks the queued superset invariant.
func (p *BatchProgress) Validate() error {
	queued := make(map[string]bool, len(p.QueuedItems))
	for _, id := range p.QueuedItems {
		queued[id] = true
	}
	check := func(kind string, ids []string) error {
		for _, id := range ids {
			if !queued[id] {
				return fmt.Errorf("%s item %q is not queued", kind, id)
			}
		}
		return nil
	}
	if err := check("completed", p.Completed); err != nil {
		return err
	}
	if err := check("failed", p.Failed); err != nil {
		return err
	}
	if err := check("skipped", p.Skipped); err != nil {
		return err
	}
	if p.CurrentItem != nil && !queued[*p.CurrentItem] {
		return fmt.Errorf("current item %q is not queued", *p.CurrentItem)
	}
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
