package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.nkwa.submission.result"

// defaultModule gates submissions when no external policy bundle is
// configured: open licenses only, and the content types the vault curates.
const defaultModule = `package nkwa.submission

default allow = false

allowed_licenses = {"CC-BY-4.0", "CC-BY-SA-4.0", "CC0-1.0", "PUBLIC-DOMAIN"}

allowed_types = {"conte", "proverbe", "chanson", "recette", "artisanat", "histoire", "audio", "video", "image", "texte"}

deny[reason] {
	input.license != ""
	not allowed_licenses[input.license]
	reason := {"code": "license_not_allowed", "message": sprintf("license %q is not accepted", [input.license])}
}

deny[reason] {
	input.content_type != ""
	not allowed_types[input.content_type]
	reason := {"code": "content_type_not_allowed", "message": sprintf("content type %q is not accepted", [input.content_type])}
}

allow {
	count(deny) == 0
}

result = {"allow": allow, "deny": deny}
`

type Input struct {
	ContentID   string `json:"content_id"`
	ContentType string `json:"content_type"`
	License     string `json:"license"`
	Contributor string `json:"contributor"`
}

type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Decision struct {
	Allow bool        `json:"allow"`
	Deny  []Violation `json:"deny"`
}

type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine compiles the submission policy. A non-empty modulePath overrides
// the built-in module.
func NewEngine(ctx context.Context, modulePath string) (*Engine, error) {
	source := defaultModule
	if modulePath != "" {
		raw, err := os.ReadFile(modulePath)
		if err != nil {
			return nil, fmt.Errorf("read policy module: %w", err)
		}
		source = string(raw)
	}
	prepared, err := rego.New(
		rego.Query(defaultQuery),
		rego.Module("submission.rego", source),
		rego.StrictBuiltinErrors(true),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile submission policy: %w", err)
	}
	return &Engine{query: prepared}, nil
}

func (e *Engine) Evaluate(ctx context.Context, input Input) (Decision, error) {
	if e == nil {
		return Decision{}, errors.New("policy engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{}, errors.New("empty policy result")
	}
	decision, err := decodeDecision(results[0].Expressions[0].Value)
	if err != nil {
		return Decision{}, err
	}
	sort.Slice(decision.Deny, func(i, j int) bool {
		if decision.Deny[i].Code == decision.Deny[j].Code {
			return decision.Deny[i].Message < decision.Deny[j].Message
		}
		return decision.Deny[i].Code < decision.Deny[j].Code
	})
	return decision, nil
}

func decodeDecision(value any) (Decision, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return Decision{}, err
	}
	var decision Decision
	if err := json.Unmarshal(payload, &decision); err != nil {
		return Decision{}, err
	}
	return decision, nil
}
