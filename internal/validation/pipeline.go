package validation

import (
	"sort"
	"strings"
)

// フィールド名→エラーメッセージ。400応答にそのまま載せる。
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// 1フィールド分の検証ルール。
type Rule func(value string) error

type fieldRule struct {
	field string
	value string
	rule  Rule
}

// (field, rule)の並びを順番に全部評価して、エラーを集めて返す。
// 最初の失敗で止めず、フィールドごとに独立して検証する。
// 同じフィールドに複数ルールがある場合は最初のエラーだけ残す。
type Pipeline struct {
	rules []fieldRule
}

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

func (p *Pipeline) Add(field string, value string, rules ...Rule) *Pipeline {
	for _, r := range rules {
		p.rules = append(p.rules, fieldRule{field: field, value: value, rule: r})
	}
	return p
}

// 値が空のときだけ検証をスキップする（PATCHの部分更新用）。
func (p *Pipeline) AddOptional(field string, value string, rules ...Rule) *Pipeline {
	if value == "" {
		return p
	}
	return p.Add(field, value, rules...)
}

// 全ルールを評価する。エラーが無ければnil。
func (p *Pipeline) Run() FieldErrors {
	errs := FieldErrors{}
	for _, fr := range p.rules {
		if _, done := errs[fr.field]; done {
			continue
		}
		if err := fr.rule(fr.value); err != nil {
			errs[fr.field] = err.Error()
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
