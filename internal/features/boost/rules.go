package boost

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
	"github.com/koeurnDev/EZA-POST-sub000/internal/features/posts"
)

// ConditionType — дискриминатор условия в JSON.
type ConditionType string

const (
	ConditionTime       ConditionType = "time"
	ConditionEngagement ConditionType = "engagement"
)

// Condition — условие правила: TimeCondition или EngagementCondition.
type Condition interface {
	Type() ConditionType
	Matches(p *posts.Post, now time.Time) bool
	validate() error
	describe() string
}

// TimeCondition срабатывает, когда посту не меньше Hours часов.
type TimeCondition struct {
	Hours float64 `json:"hours"`
}

func (TimeCondition) Type() ConditionType { return ConditionTime }

func (c TimeCondition) Matches(p *posts.Post, now time.Time) bool {
	return p.HoursOld(now) >= c.Hours
}

func (c TimeCondition) validate() error {
	if c.Hours <= 0 {
		return fmt.Errorf("%w: для условия time нужно hours > 0", common.ErrInvalidRule)
	}
	return nil
}

func (c TimeCondition) describe() string {
	return fmt.Sprintf("time: %gh", c.Hours)
}

// EngagementCondition срабатывает, если хотя бы одна из заданных метрик
// ниже порога.
type EngagementCondition struct {
	MinLikes    *int64 `json:"minLikes,omitempty"`
	MinComments *int64 `json:"minComments,omitempty"`
	MinShares   *int64 `json:"minShares,omitempty"`
}

func (EngagementCondition) Type() ConditionType { return ConditionEngagement }

func (c EngagementCondition) Matches(p *posts.Post, _ time.Time) bool {
	m := p.Metrics
	return below(m.Likes, c.MinLikes) || below(m.Comments, c.MinComments) || below(m.Shares, c.MinShares)
}

func below(v int64, threshold *int64) bool {
	return threshold != nil && v < *threshold
}

func (c EngagementCondition) validate() error {
	if c.MinLikes == nil && c.MinComments == nil && c.MinShares == nil {
		return fmt.Errorf("%w: для условия engagement нужен хотя бы один порог", common.ErrInvalidRule)
	}
	for _, v := range []*int64{c.MinLikes, c.MinComments, c.MinShares} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: порог не может быть отрицательным", common.ErrInvalidRule)
		}
	}
	return nil
}

func (c EngagementCondition) describe() string {
	var parts []string
	if c.MinLikes != nil {
		parts = append(parts, fmt.Sprintf("likes<%d", *c.MinLikes))
	}
	if c.MinComments != nil {
		parts = append(parts, fmt.Sprintf("comments<%d", *c.MinComments))
	}
	if c.MinShares != nil {
		parts = append(parts, fmt.Sprintf("shares<%d", *c.MinShares))
	}
	return "engagement: " + strings.Join(parts, " or ")
}

type ruleJSON struct {
	Type      ConditionType   `json:"type"`
	Condition json.RawMessage `json:"condition"`
	Actions   []ActionKind    `json:"actions"`
	Intensity Intensity       `json:"intensity,omitempty"`
	Targets   Targets         `json:"targets"`
}

// UnmarshalJSON разбирает правило по полю type. Неизвестный type — ошибка.
func (r *Rule) UnmarshalJSON(b []byte) error {
	var raw ruleJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidRule, err)
	}

	var cond Condition
	switch raw.Type {
	case ConditionTime:
		var c TimeCondition
		if err := unmarshalCondition(raw.Condition, &c); err != nil {
			return err
		}
		cond = c
	case ConditionEngagement:
		var c EngagementCondition
		if err := unmarshalCondition(raw.Condition, &c); err != nil {
			return err
		}
		cond = c
	default:
		return fmt.Errorf("%w: неизвестный тип условия %q", common.ErrInvalidRule, raw.Type)
	}

	*r = Rule{
		Condition: cond,
		Actions:   raw.Actions,
		Intensity: raw.Intensity,
		Targets:   raw.Targets,
	}
	if r.Intensity == "" {
		r.Intensity = IntensityMedium
	}
	return nil
}

func unmarshalCondition(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: условие: %v", common.ErrInvalidRule, err)
	}
	return nil
}

// MarshalJSON пишет правило в том же формате, что читает UnmarshalJSON.
func (r Rule) MarshalJSON() ([]byte, error) {
	out := ruleJSON{Actions: r.Actions, Intensity: r.Intensity, Targets: r.Targets}
	if out.Actions == nil {
		out.Actions = []ActionKind{}
	}
	if r.Condition != nil {
		cond, err := json.Marshal(r.Condition)
		if err != nil {
			return nil, err
		}
		out.Type = r.Condition.Type()
		out.Condition = cond
	}
	return json.Marshal(out)
}

// Validate проверяет правило целиком.
func (r Rule) Validate() error {
	if r.Condition == nil {
		return fmt.Errorf("%w: нет условия", common.ErrInvalidRule)
	}
	if err := r.Condition.validate(); err != nil {
		return err
	}
	if len(r.Actions) == 0 {
		return fmt.Errorf("%w: нужно хотя бы одно действие", common.ErrInvalidRule)
	}
	seen := make(map[ActionKind]bool, len(r.Actions))
	for _, a := range r.Actions {
		if !a.Valid() {
			return fmt.Errorf("%w: неизвестное действие %q", common.ErrInvalidRule, a)
		}
		if seen[a] {
			return fmt.Errorf("%w: действие %q указано дважды", common.ErrInvalidRule, a)
		}
		seen[a] = true
	}
	if !r.Intensity.Valid() {
		return fmt.Errorf("%w: неизвестная интенсивность %q", common.ErrInvalidRule, r.Intensity)
	}
	for _, t := range []*int64{r.Targets.Likes, r.Targets.Comments, r.Targets.Shares} {
		if t != nil && *t < 1 {
			return fmt.Errorf("%w: цель должна быть не меньше 1", common.ErrInvalidRule)
		}
	}
	return nil
}

// ParseRules разбирает JSON-массив правил и проверяет каждое.
func ParseRules(raw []byte) ([]Rule, error) {
	var rules []Rule
	if err := json.Unmarshal(raw, &rules); err != nil {
		if errors.Is(err, common.ErrInvalidRule) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidRule, err)
	}
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	if rules == nil {
		rules = []Rule{}
	}
	return rules, nil
}

// ValidateRules проверяет список правил.
func ValidateRules(rules []Rule) error {
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("правило %d: %w", i+1, err)
		}
	}
	return nil
}

// Matches сообщает, подходит ли пост под правило.
func (r Rule) Matches(p *posts.Post, now time.Time) bool {
	return r.Condition != nil && r.Condition.Matches(p, now)
}

// Has сообщает, входит ли действие в набор правила.
func (r Rule) Has(kind ActionKind) bool {
	for _, a := range r.Actions {
		if a == kind {
			return true
		}
	}
	return false
}

// Cost — сколько кредитов стоит реальный буст по правилу: сумма целей
// по видам действий. Незаданная цель считается как MaxAccountsPerTask.
func (r Rule) Cost() int64 {
	var total int64
	for _, a := range r.Actions {
		if t := r.Targets.For(a); t != nil {
			total += *t
		} else {
			total += MaxAccountsPerTask
		}
	}
	return total
}

// Describe — текст для поля ruleTriggered.
func (r Rule) Describe() string {
	if r.Condition == nil {
		return ""
	}
	return r.Condition.describe()
}

// FirstMatch возвращает первое подходящее правило по порядку списка.
func FirstMatch(rules []Rule, p *posts.Post, now time.Time) (Rule, bool) {
	for _, r := range rules {
		if r.Matches(p, now) {
			return r, true
		}
	}
	return Rule{}, false
}
